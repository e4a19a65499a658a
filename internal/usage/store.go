// Package usage tracks daily API usage against a soft quota and persists a
// single usage record in SQLite (~/.local/share/taskfleet/usage.db).
package usage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is the persisted usage state. It is a single implicit record:
// the store is single-tenant and keeps exactly one row.
type Record struct {
	// Day is the calendar day the *_Today counters belong to, as YYYY-MM-DD.
	Day string
	// RequestsToday is the number of requests recorded on Day.
	RequestsToday int
	// TokensToday is the token total recorded on Day.
	TokensToday int
	// RequestsTotal is the all-time request count.
	RequestsTotal int
	// TokensTotal is the all-time token count.
	TokensTotal int
	// FallbackCount is the all-time count of requests served by the fallback model.
	FallbackCount int
	// LastWarningAt is when the approaching-quota warning last fired, nil if
	// it has not fired on Day.
	LastWarningAt *time.Time
}

// Store persists the usage record. It is re-read on first access each process
// start and re-written after every mutation, with no batching.
type Store struct {
	conn *sql.DB
	path string
}

// OpenStore opens (or creates) the usage database at the given path.
// Parent directories are created as needed. WAL mode is enabled for
// concurrent reads.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create usage db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS usage_record (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			day TEXT NOT NULL,
			requests_today INTEGER NOT NULL DEFAULT 0,
			tokens_today INTEGER NOT NULL DEFAULT 0,
			requests_total INTEGER NOT NULL DEFAULT 0,
			tokens_total INTEGER NOT NULL DEFAULT 0,
			fallback_count INTEGER NOT NULL DEFAULT 0,
			last_warning_at TEXT
		)
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create usage_record table: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the usage record. A missing row yields a zero record for the
// given day (lazy creation on first Save).
func (s *Store) Load(today string) (*Record, error) {
	rec := &Record{Day: today}

	var lastWarning sql.NullString
	row := s.conn.QueryRow(`
		SELECT day, requests_today, tokens_today, requests_total, tokens_total, fallback_count, last_warning_at
		FROM usage_record WHERE id = 1
	`)
	err := row.Scan(&rec.Day, &rec.RequestsToday, &rec.TokensToday,
		&rec.RequestsTotal, &rec.TokensTotal, &rec.FallbackCount, &lastWarning)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load usage record: %w", err)
	}

	if lastWarning.Valid {
		if ts, parseErr := time.Parse(time.RFC3339, lastWarning.String); parseErr == nil {
			rec.LastWarningAt = &ts
		}
	}

	return rec, nil
}

// Save writes the usage record, replacing the single row.
func (s *Store) Save(rec *Record) error {
	var lastWarning any
	if rec.LastWarningAt != nil {
		lastWarning = rec.LastWarningAt.Format(time.RFC3339)
	}

	_, err := s.conn.Exec(`
		INSERT INTO usage_record (id, day, requests_today, tokens_today, requests_total, tokens_total, fallback_count, last_warning_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day = excluded.day,
			requests_today = excluded.requests_today,
			tokens_today = excluded.tokens_today,
			requests_total = excluded.requests_total,
			tokens_total = excluded.tokens_total,
			fallback_count = excluded.fallback_count,
			last_warning_at = excluded.last_warning_at
	`, rec.Day, rec.RequestsToday, rec.TokensToday,
		rec.RequestsTotal, rec.TokensTotal, rec.FallbackCount, lastWarning)
	if err != nil {
		return fmt.Errorf("save usage record: %w", err)
	}
	return nil
}
