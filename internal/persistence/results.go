package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecord is returned by SaveResult for records missing their keys.
var ErrInvalidRecord = errors.New("invalid result record")

// SaveResult stores a task outcome, creating the run row on first sight.
// Saving the same (run, task) pair again replaces the earlier record.
func (s *SQLiteStore) SaveResult(ctx context.Context, rec ResultRecord) error {
	if rec.RunID == "" || rec.TaskID == "" {
		return fmt.Errorf("%w: run and task ids are required", ErrInvalidRecord)
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	finished := rec.FinishedAt.UnixNano()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = MIN(runs.started_at, excluded.started_at),
			updated_at = MAX(runs.updated_at, excluded.updated_at)
	`, rec.RunID, rec.FinishedAt.Add(-rec.Duration).UnixNano(), finished)
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results (run_id, task_id, worker_type, status, output, error, attempts, cached, duration_ns, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, task_id) DO UPDATE SET
			worker_type = excluded.worker_type,
			status = excluded.status,
			output = excluded.output,
			error = excluded.error,
			attempts = excluded.attempts,
			cached = excluded.cached,
			duration_ns = excluded.duration_ns,
			finished_at = excluded.finished_at
	`, rec.RunID, rec.TaskID, rec.WorkerType, rec.Status, rec.Output, rec.Error,
		rec.Attempts, rec.Cached, int64(rec.Duration), finished)
	if err != nil {
		return fmt.Errorf("failed to upsert result %s/%s: %w", rec.RunID, rec.TaskID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.updated_at,
			COUNT(res.task_id),
			COALESCE(SUM(CASE WHEN res.status = 'COMPLETED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN res.status = 'FAILED' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN results res ON res.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var started, updated int64
		if err := rows.Scan(&run.ID, &started, &updated, &run.Total, &run.Completed, &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(0, started)
		run.UpdatedAt = time.Unix(0, updated)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ListResults returns a run's results in completion order.
func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, task_id, worker_type, status, COALESCE(output, ''), COALESCE(error, ''),
			attempts, cached, duration_ns, finished_at
		FROM results
		WHERE run_id = ?
		ORDER BY finished_at, task_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		var duration, finished int64
		if err := rows.Scan(&rec.RunID, &rec.TaskID, &rec.WorkerType, &rec.Status, &rec.Output, &rec.Error,
			&rec.Attempts, &rec.Cached, &duration, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Duration = time.Duration(duration)
		rec.FinishedAt = time.Unix(0, finished)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}
