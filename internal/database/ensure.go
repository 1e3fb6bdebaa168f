package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/gustavohdab/rettiwt-backend/internal/config"
	"github.com/gustavohdab/rettiwt-backend/internal/middleware"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var dbNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// EnsureDatabase creates the configured database if it does not exist, using
// a maintenance connection to the postgres database. SQLite files are created
// on open, so the sqlite driver is a no-op.
func EnsureDatabase(ctx context.Context, cfg *config.Config) error {
	if driverName(cfg) == "sqlite" {
		return nil
	}

	// CREATE DATABASE cannot take bind parameters, so the name is validated
	// as a plain identifier before interpolation.
	if !dbNameRegex.MatchString(cfg.DBName) {
		return fmt.Errorf("invalid database name %q", cfg.DBName)
	}

	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	maintenanceDSN := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, sslMode,
	)

	db, err := sql.Open("pgx", maintenanceDSN)
	if err != nil {
		return fmt.Errorf("failed to open maintenance connection: %w", err)
	}
	defer db.Close()

	var exists bool
	err = db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for database %s: %w", cfg.DBName, err)
	}
	if exists {
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+cfg.DBName); err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.DBName, err)
	}

	middleware.Logger.Info("Database created: " + cfg.DBName)
	return nil
}
