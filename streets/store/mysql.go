package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func durationFromNanos(ns int64) time.Duration {
	return time.Duration(ns)
}

// MySQLStore persists results in a MySQL database, for aggregating
// many runs on a shared server.
//
// The DSN must enable parseTime, e.g.
//
//	user:pass@tcp(localhost:3306)/streetsim?parseTime=true
type MySQLStore struct {
	db *sql.DB
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS run_finishes (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL,
		vehicle_id VARCHAR(64) NOT NULL,
		steps BIGINT NOT NULL,
		ranknum INT NOT NULL,
		finished_at DATETIME(6) NOT NULL,
		INDEX idx_run_finishes_run (run_id)
	)`,
	`CREATE TABLE IF NOT EXISTS run_summaries (
		run_id VARCHAR(64) PRIMARY KEY,
		vehicles INT NOT NULL,
		threshold INT NOT NULL,
		finished INT NOT NULL,
		total_steps BIGINT NOT NULL,
		elapsed_ns BIGINT NOT NULL
	)`,
}

// NewMySQLStore connects to the database described by dsn and runs
// the schema migration.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql store: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql store: %w", err)
	}
	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate mysql store: %w", err)
		}
	}

	return &MySQLStore{db: db}, nil
}

// RecordFinish appends one finish record to the run.
func (s *MySQLStore) RecordFinish(ctx context.Context, runID string, rec FinishRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_finishes (run_id, vehicle_id, steps, ranknum, finished_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, rec.VehicleID, int64(rec.Steps), rec.Rank, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("record finish: %w", err)
	}
	return nil
}

// RecordSummary stores the run's summary.
func (s *MySQLStore) RecordSummary(ctx context.Context, runID string, sum Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_summaries (run_id, vehicles, threshold, finished, total_steps, elapsed_ns)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
			vehicles=VALUES(vehicles),
			threshold=VALUES(threshold),
			finished=VALUES(finished),
			total_steps=VALUES(total_steps),
			elapsed_ns=VALUES(elapsed_ns)`,
		runID, sum.Vehicles, sum.Threshold, sum.Finished, int64(sum.TotalSteps), sum.Elapsed.Nanoseconds())
	if err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	return nil
}

// Finishes returns the run's finish records in insertion order.
func (s *MySQLStore) Finishes(ctx context.Context, runID string) ([]FinishRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vehicle_id, steps, ranknum, finished_at
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
func (s *MySQLStore) LoadSummary(ctx context.Context, runID string) (Summary, error) {
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

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
