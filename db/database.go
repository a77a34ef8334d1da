package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashermasroor/SlowRvbBass/config"
	"github.com/ashermasroor/SlowRvbBass/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // pure-Go SQLite driver
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// ConnectDB opens the catalog database for the configured driver and verifies the connection.
func ConnectDB(cfg *config.Config) (*sql.DB, error) {
	return Open(cfg.DBDriver, cfg.DBDSN)
}

// Open opens a catalog database. For SQLite the DSN is a file path whose parent
// directory is created when missing.
func Open(driver, dsn string) (*sql.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverMySQL:
		if !strings.Contains(dsn, "parseTime") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "parseTime=true"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; SQLite serializes anyway and this avoids SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database.", logger.String("driver", driver))
	return conn, nil
}

// Migrate creates the catalog tables if they don't exist.
func Migrate(conn *sql.DB) error {
	if err := createSourceAssetsTable(conn); err != nil {
		return err
	}
	if err := createVariantsTable(conn); err != nil {
		return err
	}
	logger.Info("Database initialization completed.")
	return nil
}

func createSourceAssetsTable(conn *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS source_assets (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		origin_url TEXT NOT NULL,
		provider VARCHAR(32) NOT NULL,
		local_path TEXT NOT NULL,
		codec VARCHAR(16) NOT NULL,
		created_at BIGINT NOT NULL
	)`
	if _, err := conn.Exec(query); err != nil {
		return fmt.Errorf("failed to create source_assets table: %w", err)
	}
	return nil
}

func createVariantsTable(conn *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS variants (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		source_id VARCHAR(64) NOT NULL,
		speed DOUBLE NOT NULL,
		reverb DOUBLE NOT NULL,
		bass_boost INTEGER NOT NULL,
		local_path TEXT NOT NULL,
		durable_ref TEXT NOT NULL,
		duration DOUBLE NOT NULL,
		created_at BIGINT NOT NULL,
		placed_at BIGINT NULL
	)`
	if _, err := conn.Exec(query); err != nil {
		return fmt.Errorf("failed to create variants table: %w", err)
	}
	return nil
}
