package domain

import (
	"time"
)

type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
)

// RunState is the tally for a single run.
// It is owned by the orchestrator's control loop and never shared.
type RunState struct {
	Total      int
	Dispatched int
	Succeeded  int
	Failed     int

	// Skipped counts targets that already existed before dispatch.
	// They are neither dispatched, succeeded nor failed.
	Skipped int

	// Bytes is only known for in-process workers
	Bytes uint64

	StartTime time.Time
}

func NewRunState(total int, start time.Time) *RunState {
	return &RunState{Total: total, StartTime: start}
}

// Record tallies one reaped worker.
func (s *RunState) Record(o Outcome) {
	switch o {
	case Succeeded:
		s.Succeeded++
	default:
		s.Failed++
	}
}

// Reaped is how many dispatched workers have been reaped so far.
func (s *RunState) Reaped() int { return s.Succeeded + s.Failed }

// Completed counts every task that needs no further work, satisfied ones included.
func (s *RunState) Completed() int { return s.Reaped() + s.Skipped }

// Downloaded counts tasks whose file is present at the end of the run.
func (s *RunState) Downloaded() int { return s.Succeeded + s.Skipped }

// Running is the number of dispatched but not yet reaped workers.
func (s *RunState) Running() int { return s.Dispatched - s.Reaped() }

// Summary is the final report of a run.
type Summary struct {
	Total      int           `json:"total"`
	Dispatched int           `json:"dispatched"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Bytes      uint64        `json:"bytes"`
	Duration   time.Duration `json:"duration"`
}

// Downloaded counts tasks whose file is present at the end of the run.
func (s Summary) Downloaded() int { return s.Succeeded + s.Skipped }

func (s *RunState) Summary(now time.Time) Summary {
	return Summary{
		Total:      s.Total,
		Dispatched: s.Dispatched,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Bytes:      s.Bytes,
		Duration:   now.Sub(s.StartTime),
	}
}

// TaskResult is the recorded fate of one task.
type TaskResult struct {
	Task        Task          `json:"task"`
	ExecutionID string        `json:"execution_id,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	Skipped     bool          `json:"skipped"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// RunReport represents a finished run, as kept in the run history.
type RunReport struct {
	ID         string       `json:"id"`
	Status     RunStatus    `json:"status"`
	OutDir     string       `json:"out_dir"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Summary    Summary      `json:"summary"`
	Results    []TaskResult `json:"results,omitempty"`
}
