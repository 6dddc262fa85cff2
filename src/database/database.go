package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/tesoreria/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if _, err := DB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		stdlog.Fatalf("failed to enable foreign keys: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alias TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		iban TEXT UNIQUE,
		currency TEXT NOT NULL DEFAULT 'EUR',
		scope TEXT NOT NULL DEFAULT 'personal',
		opening_balance TEXT NOT NULL DEFAULT '0',
		balance TEXT NOT NULL DEFAULT '0',
		minimum_balance TEXT NOT NULL DEFAULT '0',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS import_batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		account_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		total_rows INTEGER NOT NULL,
		imported_rows INTEGER NOT NULL,
		duplicate_rows INTEGER NOT NULL,
		error_rows INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(account_id) REFERENCES accounts(id)
	);

	CREATE TABLE IF NOT EXISTS movements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		booking_date TEXT,
		amount TEXT NOT NULL,
		description TEXT NOT NULL,
		counterparty TEXT,
		reference TEXT,
		origin TEXT NOT NULL,
		status TEXT NOT NULL,
		category TEXT,
		transfer_id INTEGER,
		paired_movement_id INTEGER,
		matched_movement_id INTEGER,
		ignored BOOLEAN NOT NULL DEFAULT FALSE,
		batch_id INTEGER,
		fingerprint TEXT NOT NULL,
		FOREIGN KEY(account_id) REFERENCES accounts(id),
		FOREIGN KEY(batch_id) REFERENCES import_batches(id)
	);
	CREATE INDEX IF NOT EXISTS idx_movements_account_date ON movements(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_movements_fingerprint ON movements(fingerprint);

	CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_account_id INTEGER NOT NULL,
		to_account_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		note TEXT,
		out_movement_id INTEGER NOT NULL,
		in_movement_id INTEGER NOT NULL,
		FOREIGN KEY(from_account_id) REFERENCES accounts(id),
		FOREIGN KEY(to_account_id) REFERENCES accounts(id),
		FOREIGN KEY(out_movement_id) REFERENCES movements(id),
		FOREIGN KEY(in_movement_id) REFERENCES movements(id)
	);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateMovementsTable()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateMovementsTable adds columns introduced after the first release to
// databases created with the old schema.
func migrateMovementsTable() {
	rows, err := DB.Query("PRAGMA table_info(movements)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'movements'", "error", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'movements'", "error", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'movements'", "error", err)
		}
		return
	}

	if !columnExists["matched_movement_id"] {
		if _, err := DB.Exec("ALTER TABLE movements ADD COLUMN matched_movement_id INTEGER"); err != nil {
			logger.L.Error("Error adding 'matched_movement_id' column to 'movements' table", "error", err)
		} else {
			logger.L.Info("Added 'matched_movement_id' column to 'movements' table")
		}
	}
	if !columnExists["ignored"] {
		if _, err := DB.Exec("ALTER TABLE movements ADD COLUMN ignored BOOLEAN NOT NULL DEFAULT FALSE"); err != nil {
			logger.L.Error("Error adding 'ignored' column to 'movements' table", "error", err)
		} else {
			logger.L.Info("Added 'ignored' column to 'movements' table")
		}
	}
}
