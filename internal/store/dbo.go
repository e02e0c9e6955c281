package store

import (
	"database/sql"
	"time"

	"github.com/datallboy/bulkfetch/internal/domain"
)

// runDBO maps to the runs table
type runDBO struct {
	ID         string `db:"id"`
	Status     string `db:"status"`
	OutDir     string `db:"out_dir"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt int64  `db:"finished_at"`
	Total      int    `db:"total"`
	Dispatched int    `db:"dispatched"`
	Succeeded  int    `db:"succeeded"`
	Failed     int    `db:"failed"`
	Skipped    int    `db:"skipped"`
	Bytes      int64  `db:"bytes"`
}

// Mapper: DBO to Domain RunReport
func (r *runDBO) ToDomain() *domain.RunReport {
	started := time.UnixMilli(r.StartedAt)
	finished := time.UnixMilli(r.FinishedAt)

	return &domain.RunReport{
		ID:         r.ID,
		Status:     domain.RunStatus(r.Status),
		OutDir:     r.OutDir,
		StartedAt:  started,
		FinishedAt: finished,
		Summary: domain.Summary{
			Total:      r.Total,
			Dispatched: r.Dispatched,
			Succeeded:  r.Succeeded,
			Failed:     r.Failed,
			Skipped:    r.Skipped,
			Bytes:      uint64(r.Bytes),
			Duration:   finished.Sub(started),
		},
	}
}

// Mapper: Domain RunReport to DBO
func (r *runDBO) FromDomain(rep *domain.RunReport) {
	r.ID = rep.ID
	r.Status = string(rep.Status)
	r.OutDir = rep.OutDir
	r.StartedAt = rep.StartedAt.UnixMilli()
	r.FinishedAt = rep.FinishedAt.UnixMilli()
	r.Total = rep.Summary.Total
	r.Dispatched = rep.Summary.Dispatched
	r.Succeeded = rep.Summary.Succeeded
	r.Failed = rep.Summary.Failed
	r.Skipped = rep.Summary.Skipped
	r.Bytes = int64(rep.Summary.Bytes)
}

// taskResultDBO maps to the task_results table
type taskResultDBO struct {
	URL         string         `db:"url"`
	TargetPath  string         `db:"target_path"`
	ExecutionID sql.NullString `db:"execution_id"`
	Outcome     string         `db:"outcome"`
	Skipped     bool           `db:"skipped"`
	StartedAt   int64          `db:"started_at"`
	DurationMS  int64          `db:"duration_ms"`
	Error       sql.NullString `db:"error"`
}

func (t *taskResultDBO) ToDomain() domain.TaskResult {
	outcome := domain.Succeeded
	if t.Outcome == domain.Failed.String() {
		outcome = domain.Failed
	}

	return domain.TaskResult{
		Task:        domain.Task{URL: t.URL, TargetPath: t.TargetPath},
		ExecutionID: t.ExecutionID.String,
		Outcome:     outcome,
		Skipped:     t.Skipped,
		StartedAt:   time.UnixMilli(t.StartedAt),
		Duration:    time.Duration(t.DurationMS) * time.Millisecond,
		Error:       t.Error.String,
	}
}

func (t *taskResultDBO) FromDomain(res domain.TaskResult) {
	t.URL = res.Task.URL
	t.TargetPath = res.Task.TargetPath
	t.ExecutionID = sql.NullString{String: res.ExecutionID, Valid: res.ExecutionID != ""}
	t.Outcome = res.Outcome.String()
	t.Skipped = res.Skipped
	t.StartedAt = res.StartedAt.UnixMilli()
	t.DurationMS = res.Duration.Milliseconds()
	t.Error = sql.NullString{String: res.Error, Valid: res.Error != ""}
}
