// Package sqlite implements the reading store on SQLite via
// mattn/go-sqlite3. It is the default backend: WAL mode lets a dashboard
// process read while the producer process writes, with lock waits bounded
// by the busy timeout.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/weatherdeck/weatherdeck/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on readings.timestamp
const currentSchemaVersion = 1

// Store is the SQLite-backed reading log.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the reading database at the given path and
// idempotently applies the schema. Safe to call from multiple processes
// concurrently; safe to call repeatedly on the same path.
//
// The database is configured with:
//   - WAL mode so readers never block the single writer
//   - NORMAL synchronous mode (durable enough for cross-process reads)
//   - 5-second busy timeout to bound lock waits
//
// Returns *store.UnavailableError when the file cannot be opened or
// created.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &store.UnavailableError{Path: path, Err: err}
	}

	// Verify the file is actually reachable; sql.Open is lazy.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &store.UnavailableError{Path: path, Err: err}
	}

	// SQLite allows one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY between this process's own goroutines. Other
	// processes contend via WAL + busy_timeout instead.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, &store.UnavailableError{Path: path, Err: err}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, &store.UnavailableError{Path: path, Err: err}
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the timestamp index for databases created before it
// was part of schema.sql. CREATE INDEX IF NOT EXISTS is a no-op when the
// index already exists.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_readings_timestamp
		ON readings(timestamp)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
