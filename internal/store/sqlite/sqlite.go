// Package sqlite provides SQLite-backed profile and log stores.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/v0xg/screenpilot/internal/faults"
	"github.com/v0xg/screenpilot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	genre      TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS log_entries (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	phase        TEXT NOT NULL DEFAULT '',
	threat_level TEXT NOT NULL DEFAULT '',
	steps        INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fault_records (
	id         TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	backoff_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store implements store.ProfileStore and store.LogStore over SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and bootstraps the
// schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not bootstrap schema: %w", err)
	}

	return &Store{db: db, logger: logger.With("svc", "store.SQLite")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, id string) (store.Profile, error) {
	query := `SELECT id, genre, notes, updated_at FROM profiles WHERE id = ?`

	var p store.Profile
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Genre, &p.Notes, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Profile{}, store.ErrNotFound
		}
		return store.Profile{}, fmt.Errorf("could not query profile: %w", err)
	}

	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return p, nil
}

func (s *Store) Save(ctx context.Context, p store.Profile) error {
	query := `
		INSERT INTO profiles (id, genre, notes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET genre = excluded.genre, notes = excluded.notes, updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Genre, p.Notes, now.Unix()); err != nil {
		return fmt.Errorf("could not save profile: %w", err)
	}

	s.logger.Debug("Saved profile", "id", p.ID)
	return nil
}

func (s *Store) AppendEntry(ctx context.Context, e store.LogEntry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO log_entries (id, title, summary, phase, threat_level, steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, e.ID, e.Title, e.Summary, e.Phase, e.ThreatLevel, e.Steps, e.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("could not insert log entry: %w", err)
	}

	return nil
}

func (s *Store) AppendFault(ctx context.Context, r faults.Record) error {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO fault_records (id, category, message, backoff_ms, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, ulid.Make().String(), string(r.Category), r.Message, r.Backoff.Milliseconds(), ts.Unix()); err != nil {
		return fmt.Errorf("could not insert fault record: %w", err)
	}

	return nil
}

func (s *Store) RecentFaults(ctx context.Context, n int) ([]faults.Record, error) {
	if n <= 0 {
		n = 50
	}

	query := `
		SELECT category, message, backoff_ms, created_at
		FROM fault_records
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("could not query fault records: %w", err)
	}
	defer rows.Close()

	var out []faults.Record
	for rows.Next() {
		var r faults.Record
		var backoffMs, createdAt int64
		var category string
		if err := rows.Scan(&category, &r.Message, &backoffMs, &createdAt); err != nil {
			return nil, fmt.Errorf("could not scan fault record: %w", err)
		}
		r.Category = faults.Category(category)
		r.Backoff = time.Duration(backoffMs) * time.Millisecond
		r.Timestamp = time.Unix(createdAt, 0).UTC()
		out = append(out, r)
	}

	return out, rows.Err()
}
