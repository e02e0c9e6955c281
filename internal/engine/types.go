package engine

import (
	"context"
	"time"

	"github.com/datallboy/bulkfetch/internal/domain"
)

// Launcher starts one execution unit per task.
// The unit must be cancelled when ctx is done.
type Launcher interface {
	Launch(ctx context.Context, task domain.Task) (Unit, error)
}

// Unit is a running worker. Wait blocks until it terminates and is called exactly once.
type Unit interface {
	Wait() UnitResult
}

// UnitResult is everything a worker reports back.
// Process workers only ever fill Err; bytes are unknown to the orchestrator.
type UnitResult struct {
	Bytes   int64
	Skipped bool
	Err     error
}

// Reaped is a terminated worker whose slot has been freed.
type Reaped struct {
	Handle   domain.WorkerHandle
	Outcome  domain.Outcome
	Bytes    int64
	Duration time.Duration
	Err      error
}

type completion struct {
	id       string
	result   UnitResult
	finished time.Time
}
