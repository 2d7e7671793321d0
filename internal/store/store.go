package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/verifyshot/internal/types"
)

// ErrNoRuns is returned when no recorded run matches a query
var ErrNoRuns = errors.New("no recorded runs")

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer; watch mode and the CLI never need more
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", dbPath, err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		url TEXT NOT NULL,
		output_path TEXT NOT NULL,
		status TEXT NOT NULL,
		modal TEXT,
		step TEXT,
		error TEXT,
		bytes INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run
func (s *Store) SaveRun(r *types.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, kind, url, output_path, status, modal, step, error,
			bytes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			modal = excluded.modal,
			step = excluded.step,
			error = excluded.error,
			bytes = excluded.bytes,
			finished_at = excluded.finished_at
	`, r.ID, string(r.Kind), r.URL, r.OutputPath, string(r.Status), string(r.Modal),
		r.Step, r.Error, r.Bytes, r.StartedAt.UTC(), r.FinishedAt.UTC())

	return err
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]types.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, url, output_path, status, modal, step, error,
			bytes, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// LastRun returns the most recent run of the given kind
func (s *Store) LastRun(kind types.Kind) (*types.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, url, output_path, status, modal, step, error,
			bytes, started_at, finished_at
		FROM runs
		WHERE kind = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w of kind %s", ErrNoRuns, kind)
	}
	return &runs[0], nil
}

// Prune deletes all but the newest keep runs and returns how many were removed
func (s *Store) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRuns(rows *sql.Rows) ([]types.Run, error) {
	var runs []types.Run
	for rows.Next() {
		var r types.Run
		var kind, status string
		var modal, step, errText sql.NullString
		var startedAt, finishedAt time.Time

		err := rows.Scan(
			&r.ID, &kind, &r.URL, &r.OutputPath, &status, &modal, &step, &errText,
			&r.Bytes, &startedAt, &finishedAt,
		)
		if err != nil {
			return nil, err
		}

		r.Kind = types.Kind(kind)
		r.Status = types.Status(status)
		r.Modal = types.ModalOutcome(modal.String)
		r.Step = step.String
		r.Error = errText.String
		r.StartedAt = startedAt.Local()
		r.FinishedAt = finishedAt.Local()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
