// Package store is the PostgreSQL report archive: raw uploads and their
// generated reports, keyed by content-hash match id.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database is the archive database connection.
type Database struct {
	conn *sql.DB
	dsn  string
}

// NewDatabase opens a connection to the archive database.
func NewDatabase(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		conn: db,
		dsn:  dsn,
	}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB for queries
func (db *Database) DB() *sql.DB {
	return db.conn
}

// migrations are applied in order and tracked in schema_migrations. They are
// inlined rather than read from disk so the binary works the same inside and
// outside a container.
var migrations = []struct {
	version string
	sql     string
}{
	{
		version: "001_create_replays",
		sql: `
			CREATE TABLE IF NOT EXISTS replays (
				match_id VARCHAR(64) PRIMARY KEY,
				format VARCHAR(8) NOT NULL,
				raw_replay TEXT NOT NULL,
				uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		version: "002_create_reports",
		sql: `
			CREATE TABLE IF NOT EXISTS reports (
				report_id VARCHAR(36) PRIMARY KEY,
				match_id VARCHAR(64) NOT NULL REFERENCES replays(match_id) ON DELETE CASCADE,
				team_count INT NOT NULL,
				turn_count INT NOT NULL,
				report JSONB NOT NULL,
				generated_at TIMESTAMPTZ NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
	{
		version: "003_reports_match_idx",
		sql:     `CREATE UNIQUE INDEX IF NOT EXISTS reports_match_id_idx ON reports(match_id)`,
	},
}

// RunMigrations executes all migrations in order.
func (db *Database) RunMigrations() error {
	if err := db.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range migrations {
		if err := db.runMigration(migration.version, migration.sql); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", migration.version, err)
		}
	}

	return nil
}

// createMigrationsTable creates a table to track which migrations have been run
func (db *Database) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := db.conn.Exec(query)
	return err
}

// runMigration runs a single migration if it hasn't been applied yet.
func (db *Database) runMigration(version, migrationSQL string) error {
	var exists bool
	err := db.conn.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migrationSQL); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return err
	}

	return tx.Commit()
}

// HealthCheck performs a health check on the database
func (db *Database) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return db.conn.PingContext(ctx)
}
