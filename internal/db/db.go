// Package db owns the SQLite schema and all SQL for the capture engine.
// Query helpers accept a DBTX so multi-step engine sequences can run
// inside a single transaction.
package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/juneyoungl/jot/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Init initializes the SQLite database at baseDir/jot.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.jot.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "jot.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS captures (
		  id                          TEXT PRIMARY KEY,
		  original_text               TEXT NOT NULL,
		  ai_title                    TEXT,
		  classified_type             TEXT NOT NULL DEFAULT 'TEMP',
		  note_sub_type               TEXT,
		  confidence                  TEXT,
		  source                      TEXT NOT NULL DEFAULT '',
		  is_confirmed                INTEGER NOT NULL DEFAULT 0,
		  confirmed_at                INTEGER,
		  is_deleted                  INTEGER NOT NULL DEFAULT 0,
		  deleted_at                  INTEGER,
		  is_trashed                  INTEGER NOT NULL DEFAULT 0,
		  trashed_at                  INTEGER,
		  created_at                  INTEGER NOT NULL,
		  updated_at                  INTEGER NOT NULL,
		  classification_completed_at INTEGER,
		  image_uri                   TEXT,
		  parent_capture_id           TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_captures_type
		ON captures(classified_type, updated_at DESC)
		WHERE is_deleted = 0 AND is_trashed = 0;

		CREATE INDEX IF NOT EXISTS idx_captures_unconfirmed
		ON captures(classification_completed_at)
		WHERE is_confirmed = 0 AND is_deleted = 0 AND is_trashed = 0;

		CREATE TABLE IF NOT EXISTS todos (
		  id                TEXT PRIMARY KEY,
		  source_capture_id TEXT NOT NULL UNIQUE,
		  title             TEXT NOT NULL,
		  deadline          INTEGER,
		  priority          TEXT NOT NULL DEFAULT 'NONE',
		  labels_json       TEXT,
		  is_completed      INTEGER NOT NULL DEFAULT 0,
		  completed_at      INTEGER,
		  created_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS schedules (
		  id                TEXT PRIMARY KEY,
		  source_capture_id TEXT NOT NULL UNIQUE,
		  title             TEXT NOT NULL,
		  start_time        INTEGER NOT NULL,
		  end_time          INTEGER NOT NULL,
		  location          TEXT,
		  is_all_day        INTEGER NOT NULL DEFAULT 0,
		  calendar_event_id TEXT,
		  created_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_schedules_range
		ON schedules(start_time, end_time);

		CREATE TABLE IF NOT EXISTS notes (
		  id                TEXT PRIMARY KEY,
		  source_capture_id TEXT NOT NULL UNIQUE,
		  title             TEXT NOT NULL,
		  body              TEXT NOT NULL,
		  folder            TEXT NOT NULL,
		  created_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tags (
		  id         TEXT PRIMARY KEY,
		  name       TEXT NOT NULL UNIQUE,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS capture_tags (
		  capture_id TEXT NOT NULL,
		  tag_id     TEXT NOT NULL,
		  PRIMARY KEY (capture_id, tag_id)
		);

		CREATE TABLE IF NOT EXISTS extracted_entities (
		  id               TEXT PRIMARY KEY,
		  capture_id       TEXT NOT NULL,
		  entity_type      TEXT NOT NULL,
		  raw_value        TEXT NOT NULL,
		  normalized_value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entities_capture
		ON extracted_entities(capture_id);

		CREATE TABLE IF NOT EXISTS classification_log (
		  id                           TEXT PRIMARY KEY,
		  capture_id                   TEXT NOT NULL,
		  original_type                TEXT NOT NULL,
		  original_sub_type            TEXT,
		  new_type                     TEXT NOT NULL,
		  new_sub_type                 TEXT,
		  time_since_classification_ms INTEGER,
		  modified_at                  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_log_capture
		ON classification_log(capture_id, modified_at DESC);

		CREATE TABLE IF NOT EXISTS outbox (
		  id           TEXT PRIMARY KEY,
		  kind         TEXT NOT NULL,
		  payload      TEXT NOT NULL,
		  retry_count  INTEGER NOT NULL DEFAULT 0,
		  max_retries  INTEGER NOT NULL,
		  status       TEXT NOT NULL DEFAULT 'PENDING',
		  created_at   INTEGER NOT NULL,
		  updated_at   INTEGER NOT NULL,
		  next_retry_at INTEGER,
		  started_at   INTEGER,
		  last_error   TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_outbox_dispatch
		ON outbox(status, next_retry_at, created_at);

		CREATE TABLE IF NOT EXISTS sync_state (
		  key   TEXT PRIMARY KEY,
		  value TEXT NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// NewID generates a new monotonic ULID for a row.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Now returns the current time as unix milliseconds, the timestamp unit
// used throughout the schema.
func Now() int64 {
	return time.Now().UnixMilli()
}
