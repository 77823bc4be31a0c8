package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the sqlite3 driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embeds the sqlite3 engine
)

// Config holds database connection configuration.
type Config struct {
	// Path is the database file path, or a full "file:..." DSN for
	// special cases such as in-memory databases.
	Path string

	BusyTimeout    time.Duration
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults for database configuration.
func DefaultConfig() Config {
	return Config{
		Path:           "data/events.db",
		BusyTimeout:    5 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// Open opens the SQLite database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := cfg.Path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
			cfg.Path, cfg.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates the events schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id             TEXT PRIMARY KEY,
			title          TEXT NOT NULL,
			description    TEXT,
			start_datetime TEXT NOT NULL,
			end_datetime   TEXT,
			location       TEXT,
			address        TEXT,
			city           TEXT,
			postal_code    TEXT,
			latitude       REAL,
			longitude      REAL,
			category       TEXT,
			organizer      TEXT,
			url            TEXT,
			image_url      TEXT,
			price          TEXT,
			source         TEXT NOT NULL,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events (start_datetime)`,
		`CREATE INDEX IF NOT EXISTS idx_events_city ON events (city)`,
		`CREATE INDEX IF NOT EXISTS idx_events_category ON events (category)`,
		`CREATE INDEX IF NOT EXISTS idx_events_source ON events (source)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// HealthCheck performs a database health check.
func HealthCheck(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected health check result: %d", result)
	}
	return nil
}
