package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port              string
	DatabasePath      string
	LogLevel          string
	JWTSecret         string
	AccessTokenExpiry time.Duration

	MaxUploadSizeBytes int64

	// Transfer pair detection tuning.
	TransferDateWindowDays   int
	TransferTolerancePct     float64
	TransferToleranceAbs     string // decimal string, e.g. "5.00"
	ForecastMatchWindowDays  int
	RowErrorRateThreshold    float64
	ProjectionCacheTTL       time.Duration
	ProjectionCacheSweep     time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "change-me-to-a-proper-32-byte-minimum-hs256-secret")
	if jwtSecret == "change-me-to-a-proper-32-byte-minimum-hs256-secret" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	tolerancePctStr := getEnv("TRANSFER_AMOUNT_TOLERANCE_PCT", "0.01")
	tolerancePct, err := strconv.ParseFloat(tolerancePctStr, 64)
	if err != nil || tolerancePct < 0 {
		log.Printf("WARNING: Invalid TRANSFER_AMOUNT_TOLERANCE_PCT '%s'. Using default 0.01.", tolerancePctStr)
		tolerancePct = 0.01
	}

	errorRateStr := getEnv("ROW_ERROR_RATE_THRESHOLD", "0.20")
	errorRate, err := strconv.ParseFloat(errorRateStr, 64)
	if err != nil || errorRate <= 0 || errorRate > 1 {
		log.Printf("WARNING: Invalid ROW_ERROR_RATE_THRESHOLD '%s'. Using default 0.20.", errorRateStr)
		errorRate = 0.20
	}

	Cfg = &AppConfig{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "./tesoreria.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         jwtSecret,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),

		MaxUploadSizeBytes: maxUploadSizeBytes,

		TransferDateWindowDays:  getEnvAsInt("TRANSFER_DATE_WINDOW_DAYS", 3),
		TransferTolerancePct:    tolerancePct,
		TransferToleranceAbs:    getEnv("TRANSFER_AMOUNT_TOLERANCE_ABS", "5.00"),
		ForecastMatchWindowDays: getEnvAsInt("FORECAST_MATCH_WINDOW_DAYS", 3),
		RowErrorRateThreshold:   errorRate,
		ProjectionCacheTTL:      getEnvAsDuration("PROJECTION_CACHE_TTL", 15*time.Minute),
		ProjectionCacheSweep:    getEnvAsDuration("PROJECTION_CACHE_SWEEP", 30*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, TransferWindow=%dd",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.TransferDateWindowDays)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
