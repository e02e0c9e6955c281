package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/sync/semaphore"

	"github.com/datallboy/bulkfetch/internal/domain"
)

// ErrNothingRunning is returned by Reap when no worker holds a slot
var ErrNothingRunning = errors.New("no running workers to reap")

// Pool holds up to limit running workers and reclaims slots as they terminate.
//
// A Pool belongs to a single control loop: Dispatch, Reap and Running must
// not be called concurrently. Workers only talk back through the completion channel.
type Pool struct {
	launcher Launcher
	limit    int
	slots    *semaphore.Weighted

	running map[string]*domain.WorkerHandle
	done    chan completion
}

func NewPool(launcher Launcher, limit int) *Pool {
	if limit < 1 {
		limit = 1
	}

	return &Pool{
		launcher: launcher,
		limit:    limit,
		slots:    semaphore.NewWeighted(int64(limit)),
		running:  make(map[string]*domain.WorkerHandle, limit),
		// Every running worker sends exactly once and holds its slot until reaped,
		// so sends never block
		done: make(chan completion, limit),
	}
}

func (p *Pool) Limit() int { return p.limit }

// Running returns the number of dispatched workers not yet reaped.
func (p *Pool) Running() int { return len(p.running) }

// Full reports whether every slot is occupied.
func (p *Pool) Full() bool { return len(p.running) >= p.limit }

// Handles returns a copy of the running handles, oldest first.
func (p *Pool) Handles() []domain.WorkerHandle {
	out := make([]domain.WorkerHandle, 0, len(p.running))
	for _, h := range p.running {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Dispatch starts a worker for task in a free slot.
// It fails with domain.ErrResourceExhausted when the pool is full and with
// a *domain.DispatchError when the worker cannot be started; the slot is free again in both cases.
func (p *Pool) Dispatch(ctx context.Context, task domain.Task) (*domain.WorkerHandle, error) {
	if !p.slots.TryAcquire(1) {
		return nil, domain.ErrResourceExhausted
	}

	unit, err := p.launcher.Launch(ctx, task)
	if err != nil {
		p.slots.Release(1)
		return nil, &domain.DispatchError{Task: task, Err: err}
	}

	h := &domain.WorkerHandle{
		Task:        task,
		ExecutionID: ksuid.New().String(),
		StartedAt:   time.Now(),
	}
	p.running[h.ExecutionID] = h

	go func(id string) {
		res := unit.Wait()
		p.done <- completion{id: id, result: res, finished: time.Now()}
	}(h.ExecutionID)

	return h, nil
}

// Reap blocks until any running worker terminates, frees its slot and classifies it.
// Workers that are still running stay tracked; only the one that finished is removed.
func (p *Pool) Reap(ctx context.Context) (Reaped, error) {
	if len(p.running) == 0 {
		return Reaped{}, ErrNothingRunning
	}

	select {
	case c := <-p.done:
		return p.settle(c), nil
	case <-ctx.Done():
		return Reaped{}, ctx.Err()
	}
}

func (p *Pool) settle(c completion) Reaped {
	h, ok := p.running[c.id]
	if !ok {
		// Can't happen: every completion belongs to exactly one dispatched handle
		panic("engine: completion for unknown execution " + c.id)
	}
	delete(p.running, c.id)
	p.slots.Release(1)

	r := Reaped{
		Handle:   *h,
		Outcome:  domain.Succeeded,
		Bytes:    c.result.Bytes,
		Duration: c.finished.Sub(h.StartedAt),
		Err:      c.result.Err,
	}
	if c.result.Err != nil {
		r.Outcome = domain.Failed
	}

	return r
}
