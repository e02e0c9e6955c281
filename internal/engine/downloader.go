package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/segmentio/ksuid"

	"github.com/datallboy/bulkfetch/internal/app"
	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/infra/config"
	"github.com/datallboy/bulkfetch/internal/progress"
)

// Downloader is the bounded-concurrency orchestrator.
type Downloader struct {
	ctx      *app.Context
	pool     *Pool
	board    *Board
	out      io.Writer
	drainAll bool
}

// NewDownloader wires a pool of Config.Workers.Max slots around launcher.
// board may be nil when nobody watches the run; out receives the progress line and summary.
func NewDownloader(ctx *app.Context, launcher Launcher, board *Board, out io.Writer) *Downloader {
	if out == nil {
		out = os.Stdout
	}

	return &Downloader{
		ctx:      ctx,
		pool:     NewPool(launcher, ctx.Config.Workers.Max),
		board:    board,
		out:      out,
		drainAll: ctx.Config.Workers.Policy == config.PolicyDrainAll,
	}
}

// run is the state exclusively owned by one Run call.
type run struct {
	state    *domain.RunState
	report   *domain.RunReport
	reporter *progress.Reporter
}

// Run fetches every URL, at most Workers.Max at a time, and returns the run report.
//
// Task-level failures only show up in the report. The returned error is
// domain.ErrNoTasks for an empty queue, or the context error when the run was
// interrupted; in that case the report is still returned and every dispatched
// worker has been reaped.
func (d *Downloader) Run(ctx context.Context, urls []string) (*domain.RunReport, error) {
	log := d.ctx.Logger
	outDir := d.ctx.Config.Download.OutDir

	tasks := BuildQueue(urls, log)
	if len(tasks) == 0 {
		return nil, domain.ErrNoTasks
	}

	start := time.Now()
	r := &run{
		state: domain.NewRunState(len(tasks), start),
		report: &domain.RunReport{
			ID:        ksuid.New().String(),
			Status:    domain.RunRunning,
			OutDir:    outDir,
			StartedAt: start,
			Results:   make([]domain.TaskResult, 0, len(tasks)),
		},
		reporter: progress.NewReporter(progress.Options{Total: len(tasks), Output: d.out}),
	}

	fmt.Fprintf(d.out, "Starting downloads w/ %d workers\n", d.pool.Limit())
	log.Info("Run %s: %d tasks, %d workers, policy %s", r.report.ID, len(tasks), d.pool.Limit(), d.ctx.Config.Workers.Policy)
	d.publish(r)

	runErr := d.dispatchAll(ctx, r, tasks, outDir)

	// Every dispatched worker is reaped, even when interrupted. Cancelled workers exit on their own.
	for d.pool.Running() > 0 {
		if err := d.reapOne(context.Background(), r); err != nil {
			runErr = errors.Join(runErr, err)
			break
		}
	}

	r.reporter.Finish()

	finished := time.Now()
	r.report.FinishedAt = finished
	r.report.Summary = r.state.Summary(finished)
	r.report.Status = domain.RunCompleted
	if runErr != nil {
		r.report.Status = domain.RunInterrupted
	}
	d.publish(r)

	d.printSummary(r.report)
	log.Info("Run %s %s: %d succeeded, %d failed, %d already present, %d total",
		r.report.ID, r.report.Status, r.state.Succeeded, r.state.Failed, r.state.Skipped, r.state.Total)

	if d.ctx.History != nil {
		if err := d.ctx.History.RecordRun(context.WithoutCancel(ctx), r.report); err != nil {
			log.Error("Failed to record run %s: %v", r.report.ID, err)
		}
	}

	return r.report, runErr
}

// dispatchAll walks the queue in order, making room in the pool before each dispatch.
func (d *Downloader) dispatchAll(ctx context.Context, r *run, tasks []domain.Task, outDir string) error {
	log := d.ctx.Logger

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			log.Warn("Interrupted, %d tasks not dispatched", len(tasks)-i)
			return err
		}

		// Already satisfied targets are never dispatched
		if _, err := os.Stat(task.Path(outDir)); err == nil {
			log.Info("Skipping task %d: %s already present", i+1, task.TargetPath)
			r.state.Skipped++
			r.report.Results = append(r.report.Results, domain.TaskResult{
				Task:      task,
				Outcome:   domain.Succeeded,
				Skipped:   true,
				StartedAt: time.Now(),
			})
			d.advance(r)
			continue
		}

		if err := d.makeRoom(ctx, r); err != nil {
			log.Warn("Interrupted while waiting for a free worker, %d tasks not dispatched", len(tasks)-i)
			return err
		}

		log.Info("dispatching task %d: %s", i+1, task.URL)

		r.state.Dispatched++
		h, err := d.pool.Dispatch(ctx, task)
		if err != nil {
			var dispatchErr *domain.DispatchError
			if !errors.As(err, &dispatchErr) {
				// makeRoom guarantees a slot, so this is a bookkeeping bug
				return fmt.Errorf("dispatch %s: %w", task.URL, err)
			}

			log.Error("Task %d failed to start: %v", i+1, err)
			r.state.Record(domain.Failed)
			r.report.Results = append(r.report.Results, domain.TaskResult{
				Task:      task,
				Outcome:   domain.Failed,
				StartedAt: time.Now(),
				Error:     err.Error(),
			})
			d.advance(r)
			continue
		}

		log.Debug("Task %d running as %s", i+1, h.ExecutionID)
		d.publish(r)
	}

	return nil
}

// makeRoom blocks until a slot is free. Under reap-any it frees exactly one
// slot; under drain-all it waits for the whole wave.
func (d *Downloader) makeRoom(ctx context.Context, r *run) error {
	if !d.pool.Full() {
		return nil
	}

	target := d.pool.Limit() - 1
	if d.drainAll {
		target = 0
	}

	for d.pool.Running() > target {
		if err := d.reapOne(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) reapOne(ctx context.Context, r *run) error {
	reaped, err := d.pool.Reap(ctx)
	if err != nil {
		return err
	}

	r.state.Record(reaped.Outcome)
	if reaped.Bytes > 0 {
		r.state.Bytes += uint64(reaped.Bytes)
	}

	res := domain.TaskResult{
		Task:        reaped.Handle.Task,
		ExecutionID: reaped.Handle.ExecutionID,
		Outcome:     reaped.Outcome,
		StartedAt:   reaped.Handle.StartedAt,
		Duration:    reaped.Duration,
	}
	if reaped.Err != nil {
		res.Error = reaped.Err.Error()
		d.ctx.Logger.Warn("Task %s failed after %s: %v", reaped.Handle.Task.URL, reaped.Duration.Truncate(time.Millisecond), reaped.Err)
	} else {
		d.ctx.Logger.Debug("Task %s done in %s", reaped.Handle.Task.URL, reaped.Duration.Truncate(time.Millisecond))
	}
	r.report.Results = append(r.report.Results, res)

	d.advance(r)
	return nil
}

// advance refreshes the progress line and the status board after a task completes.
func (d *Downloader) advance(r *run) {
	r.reporter.Update(r.state.Completed(), time.Since(r.state.StartTime))
	d.publish(r)
}

func (d *Downloader) publish(r *run) {
	if d.board == nil {
		return
	}

	state := r.report.Status
	d.board.Publish(Status{
		RunID:      r.report.ID,
		State:      state,
		Total:      r.state.Total,
		Dispatched: r.state.Dispatched,
		Succeeded:  r.state.Succeeded,
		Failed:     r.state.Failed,
		Skipped:    r.state.Skipped,
		Running:    d.pool.Handles(),
		Progress:   progress.Compute(r.state.Completed(), r.state.Total, time.Since(r.state.StartTime)),
	})
}

func (d *Downloader) printSummary(rep *domain.RunReport) {
	s := rep.Summary
	fmt.Fprintf(d.out, "\tDownloaded %d out of %d files in %s\n", s.Downloaded(), s.Total, progress.FormatClock(s.Duration))

	if s.Failed > 0 || s.Skipped > 0 {
		fmt.Fprintf(d.out, "\t%d fetched, %d already present, %d failed\n", s.Succeeded, s.Skipped, s.Failed)
	}
	if s.Bytes > 0 {
		fmt.Fprintf(d.out, "\t%s transferred\n", humanize.Bytes(s.Bytes))
	}
	if rep.Status == domain.RunInterrupted {
		fmt.Fprintln(d.out, "\tRun interrupted, run again to fetch the rest")
	}
}
