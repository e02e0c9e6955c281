package engine

import (
	"context"

	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/fetch"
)

// InProcessLauncher runs each download as a goroutine.
type InProcessLauncher struct {
	Fetcher *fetch.Fetcher
	OutDir  string
}

func NewInProcessLauncher(f *fetch.Fetcher, outDir string) *InProcessLauncher {
	return &InProcessLauncher{Fetcher: f, OutDir: outDir}
}

func (l *InProcessLauncher) Launch(ctx context.Context, task domain.Task) (Unit, error) {
	u := &goroutineUnit{done: make(chan UnitResult, 1)}

	go func() {
		res, err := l.Fetcher.Fetch(ctx, task.URL, l.OutDir)
		u.done <- UnitResult{Bytes: res.Bytes, Skipped: res.Skipped, Err: err}
	}()

	return u, nil
}

type goroutineUnit struct {
	done chan UnitResult
}

func (u *goroutineUnit) Wait() UnitResult {
	return <-u.done
}
