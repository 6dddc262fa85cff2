package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tesoreria/backend/src/config"
	"github.com/username/tesoreria/backend/src/database"
	"github.com/username/tesoreria/backend/src/handlers"
	"github.com/username/tesoreria/backend/src/logger"
	"github.com/username/tesoreria/backend/src/security"
	"github.com/username/tesoreria/backend/src/services"
	"github.com/username/tesoreria/backend/src/storage"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Tesoreria backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	store := storage.NewSQLiteStore(database.DB)

	logger.L.Info("Initializing projection cache...")
	projectionCache := cache.New(config.Cfg.ProjectionCacheTTL, config.Cfg.ProjectionCacheSweep)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	projectionService := services.NewProjectionService(store, projectionCache)
	importService := services.NewImportService(store, projectionService, config.Cfg)
	transferService := services.NewTransferService(store, projectionService)
	movementService := services.NewMovementService(store, projectionService)

	importHandler := handlers.NewImportHandler(importService)
	accountHandler := handlers.NewAccountHandler(store)
	projectionHandler := handlers.NewProjectionHandler(projectionService)
	movementHandler := handlers.NewMovementHandler(movementService)
	transferHandler := handlers.NewTransferHandler(transferService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	requireAuth := handlers.AuthMiddleware(authService)
	protected := func(handler http.HandlerFunc) http.Handler {
		return requireAuth(handler)
	}

	apiRouter.Handle("POST /api/import", protected(importHandler.HandleImport))

	apiRouter.Handle("GET /api/accounts", protected(accountHandler.HandleListAccounts))
	apiRouter.Handle("POST /api/accounts", protected(accountHandler.HandleCreateAccount))
	apiRouter.Handle("GET /api/accounts/{id}", protected(accountHandler.HandleGetAccount))
	apiRouter.Handle("GET /api/accounts/{id}/movements", protected(accountHandler.HandleListMovements))
	apiRouter.Handle("GET /api/accounts/{id}/movements/export", protected(accountHandler.HandleExportMovements))

	apiRouter.Handle("GET /api/projection", protected(projectionHandler.HandleProjection))
	apiRouter.Handle("GET /api/projection/risk", protected(projectionHandler.HandleProjectionRisk))

	apiRouter.Handle("POST /api/movements", protected(movementHandler.HandleCreateMovement))
	apiRouter.Handle("POST /api/movements/{id}/confirm", protected(movementHandler.HandleConfirm))
	apiRouter.Handle("POST /api/movements/{id}/reconcile", protected(movementHandler.HandleReconcile))

	apiRouter.Handle("POST /api/transfers", protected(transferHandler.HandleCreateTransfer))
	apiRouter.Handle("DELETE /api/transfers/{id}", protected(transferHandler.HandleDeleteTransfer))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Tesoreria Backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
