// Package database holds the sqlx persistence layer: connection setup, schema
// bootstrap, and one repository per table.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Config selects the backing database. SQLite is the default; setting
// DatabaseURL switches to postgres.
type Config struct {
	// DatabaseURL is a postgres connection string. Empty means sqlite.
	DatabaseURL string
	// SQLitePath is the sqlite file path; ":memory:" is valid for tests.
	SQLitePath string
}

// ConfigFromEnv reads DATABASE_URL and SQLITE_PATH.
func ConfigFromEnv() Config {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join("data", "studyengine.db")
	}
	return cfg
}

// Connect opens the database and initializes the schema. The returned handle
// is injected into repositories; the engine keeps no package-level connection.
func Connect(cfg Config) (*sqlx.DB, error) {
	if cfg.DatabaseURL != "" {
		db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, initializeSchema(db)
	}

	if cfg.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// SQLite doesn't support multiple writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, initializeSchema(db)
}

// initializeSchema creates the tables if they don't exist. The DDL sticks to
// the dialect intersection of sqlite and postgres.
func initializeSchema(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			card_type TEXT NOT NULL,
			question TEXT NOT NULL,
			hint TEXT NOT NULL DEFAULT '',
			explanation TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_course ON cards(course_id)`,
		`CREATE TABLE IF NOT EXISTS review_states (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			card_id TEXT NOT NULL,
			interval_days INTEGER NOT NULL DEFAULT 0,
			ease_factor REAL NOT NULL DEFAULT 2.5,
			repetitions INTEGER NOT NULL DEFAULT 0,
			last_reviewed_at TIMESTAMP,
			next_review_at TIMESTAMP NOT NULL,
			times_reviewed INTEGER NOT NULL DEFAULT 0,
			times_correct INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(user_id, card_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_review_states_due ON review_states(user_id, next_review_at)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id TEXT PRIMARY KEY,
			frequency_mode TEXT NOT NULL DEFAULT 'normal',
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS study_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			course_id TEXT NOT NULL DEFAULT '',
			total_answered INTEGER NOT NULL,
			total_correct INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_study_sessions_user ON study_sessions(user_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
