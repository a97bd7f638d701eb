// Package history records completed sync runs in a local SQLite ledger.
// Single writer assumed, same as the checkpoint file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one completed synchronization pass.
type Run struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	Added       int       `json:"added"`
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	Partial     bool      `json:"partial"`
}

// Store is the SQLite-backed run ledger.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at   TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP NOT NULL,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	added        INTEGER NOT NULL,
	updated      INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	partial      INTEGER NOT NULL DEFAULT 0
);`

// Open opens (or creates) the ledger at path and ensures its schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// RecordRun appends one run to the ledger.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (started_at, finished_at, window_start, window_end, added, updated, skipped, partial)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC(), r.FinishedAt.UTC(), r.WindowStart, r.WindowEnd,
		r.Added, r.Updated, r.Skipped, boolToInt(r.Partial))
	return err
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT started_at, finished_at, window_start, window_end, added, updated, skipped, partial
		 FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var partial int
		if err := rows.Scan(&r.StartedAt, &r.FinishedAt, &r.WindowStart, &r.WindowEnd,
			&r.Added, &r.Updated, &r.Skipped, &partial); err != nil {
			return nil, err
		}
		r.Partial = partial != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
