package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists results in a single-file database. Zero-setup
// persistence for local runs; use ":memory:" in tests.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS run_finishes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	vehicle_id TEXT NOT NULL,
	steps INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_finishes_run ON run_finishes(run_id);

CREATE TABLE IF NOT EXISTS run_summaries (
	run_id TEXT PRIMARY KEY,
	vehicles INTEGER NOT NULL,
	threshold INTEGER NOT NULL,
	finished INTEGER NOT NULL,
	total_steps INTEGER NOT NULL,
	elapsed_ns INTEGER NOT NULL
);
`

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// RecordFinish appends one finish record to the run.
func (s *SQLiteStore) RecordFinish(ctx context.Context, runID string, rec FinishRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_finishes (run_id, vehicle_id, steps, rank, finished_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, rec.VehicleID, int64(rec.Steps), rec.Rank, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("record finish: %w", err)
	}
	return nil
}

// RecordSummary stores the run's summary.
func (s *SQLiteStore) RecordSummary(ctx context.Context, runID string, sum Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_summaries (run_id, vehicles, threshold, finished, total_steps, elapsed_ns)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			vehicles=excluded.vehicles,
			threshold=excluded.threshold,
			finished=excluded.finished,
			total_steps=excluded.total_steps,
			elapsed_ns=excluded.elapsed_ns`,
		runID, sum.Vehicles, sum.Threshold, sum.Finished, int64(sum.TotalSteps), sum.Elapsed.Nanoseconds())
	if err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	return nil
}

// Finishes returns the run's finish records in insertion order.
func (s *SQLiteStore) Finishes(ctx context.Context, runID string) ([]FinishRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vehicle_id, steps, rank, finished_at
		 FROM run_finishes WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query finishes: %w", err)
	}
	defer rows.Close()

	var out []FinishRecord
	for rows.Next() {
		var rec FinishRecord
		var steps int64
		if err := rows.Scan(&rec.VehicleID, &steps, &rec.Rank, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan finish: %w", err)
		}
		rec.Steps = uint64(steps)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// LoadSummary returns the run's summary.
func (s *SQLiteStore) LoadSummary(ctx context.Context, runID string) (Summary, error) {
	var sum Summary
	var steps, elapsed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT vehicles, threshold, finished, total_steps, elapsed_ns
		 FROM run_summaries WHERE run_id = ?`,
		runID).Scan(&sum.Vehicles, &sum.Threshold, &sum.Finished, &steps, &elapsed)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("load summary: %w", err)
	}
	sum.TotalSteps = uint64(steps)
	sum.Elapsed = durationFromNanos(elapsed)
	return sum, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
