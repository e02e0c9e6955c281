package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/datallboy/bulkfetch/internal/domain"
)

// RecordRun saves a finished run and all of its task results in one transaction.
func (s *PersistentStore) RecordRun(ctx context.Context, rep *domain.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var run runDBO
	run.FromDomain(rep)

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, status, out_dir, started_at, finished_at,
			total, dispatched, succeeded, failed, skipped, bytes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, run.OutDir, run.StartedAt, run.FinishedAt,
		run.Total, run.Dispatched, run.Succeeded, run.Failed, run.Skipped, run.Bytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rep.ID, err)
	}

	// A replaced run must not keep stale results
	if _, err := tx.ExecContext(ctx, "DELETE FROM task_results WHERE run_id = ?", rep.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_results (
			run_id, url, target_path, execution_id, outcome, skipped, started_at, duration_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	// Reuse a single DBO instance for efficiency
	var dbo taskResultDBO
	for _, res := range rep.Results {
		dbo.FromDomain(res)
		_, err := stmt.ExecContext(ctx,
			rep.ID, dbo.URL, dbo.TargetPath, dbo.ExecutionID, dbo.Outcome,
			dbo.Skipped, dbo.StartedAt, dbo.DurationMS, dbo.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to save result for %s: %w", res.Task.URL, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first, without task results.
func (s *PersistentStore) ListRuns(ctx context.Context, limit int) ([]*domain.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, out_dir, started_at, finished_at,
			total, dispatched, succeeded, failed, skipped, bytes
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.RunReport, 0)
	for rows.Next() {
		var dbo runDBO
		if err := rows.Scan(
			&dbo.ID, &dbo.Status, &dbo.OutDir, &dbo.StartedAt, &dbo.FinishedAt,
			&dbo.Total, &dbo.Dispatched, &dbo.Succeeded, &dbo.Failed, &dbo.Skipped, &dbo.Bytes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, dbo.ToDomain())
	}

	return runs, rows.Err()
}

// GetRun fetches one run with its task results. Returns nil, nil when it doesn't exist.
func (s *PersistentStore) GetRun(ctx context.Context, id string) (*domain.RunReport, error) {
	var dbo runDBO
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, out_dir, started_at, finished_at,
			total, dispatched, succeeded, failed, skipped, bytes
		FROM runs WHERE id = ? LIMIT 1`, id).Scan(
		&dbo.ID, &dbo.Status, &dbo.OutDir, &dbo.StartedAt, &dbo.FinishedAt,
		&dbo.Total, &dbo.Dispatched, &dbo.Succeeded, &dbo.Failed, &dbo.Skipped, &dbo.Bytes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}

	rep := dbo.ToDomain()

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, target_path, execution_id, outcome, skipped, started_at, duration_ms, error
		FROM task_results
		WHERE run_id = ?
		ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query task results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t taskResultDBO
		if err := rows.Scan(&t.URL, &t.TargetPath, &t.ExecutionID, &t.Outcome, &t.Skipped, &t.StartedAt, &t.DurationMS, &t.Error); err != nil {
			return nil, fmt.Errorf("failed to scan task result: %w", err)
		}
		rep.Results = append(rep.Results, t.ToDomain())
	}

	return rep, rows.Err()
}
