package engine

import (
	"sync"

	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/progress"
)

// Status is a point-in-time copy of a run, safe to hand to other goroutines.
type Status struct {
	RunID      string                `json:"run_id"`
	State      domain.RunStatus      `json:"state"`
	Total      int                   `json:"total"`
	Dispatched int                   `json:"dispatched"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	Skipped    int                   `json:"skipped"`
	Running    []domain.WorkerHandle `json:"running"`
	Progress   progress.Snapshot     `json:"progress"`
}

// Board publishes the latest Status.
// The control loop is its only writer; readers get copies.
type Board struct {
	mu     sync.RWMutex
	status Status
}

func NewBoard() *Board {
	return &Board{status: Status{Running: []domain.WorkerHandle{}}}
}

func (b *Board) Publish(s Status) {
	if b == nil {
		return
	}
	if s.Running == nil {
		s.Running = []domain.WorkerHandle{}
	}

	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

func (b *Board) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.status
	s.Running = make([]domain.WorkerHandle, len(b.status.Running))
	copy(s.Running, b.status.Running)
	return s
}
