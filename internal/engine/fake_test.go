package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datallboy/bulkfetch/internal/domain"
)

// fakeLauncher simulates workers: each one writes its target after delay,
// unless its URL is listed in fail or refuse.
type fakeLauncher struct {
	outDir string
	delay  time.Duration
	delays map[string]time.Duration

	fail   map[string]bool
	refuse map[string]bool

	mu       sync.Mutex
	launched []string
	// finishedAt records how many workers had finished when each URL launched
	finishedAt map[string]int32

	active    atomic.Int32
	maxActive atomic.Int32
	finished  atomic.Int32
}

func newFakeLauncher(outDir string) *fakeLauncher {
	return &fakeLauncher{
		outDir:     outDir,
		delay:      10 * time.Millisecond,
		delays:     map[string]time.Duration{},
		fail:       map[string]bool{},
		refuse:     map[string]bool{},
		finishedAt: map[string]int32{},
	}
}

func (f *fakeLauncher) Launch(ctx context.Context, task domain.Task) (Unit, error) {
	if f.refuse[task.URL] {
		return nil, errors.New("exec: no such file")
	}

	f.mu.Lock()
	f.launched = append(f.launched, task.URL)
	f.finishedAt[task.URL] = f.finished.Load()
	f.mu.Unlock()

	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	u := &goroutineUnit{done: make(chan UnitResult, 1)}
	go func() {
		res := f.work(ctx, task)
		// Leave the active count before reporting so the next dispatch can't overlap us
		f.active.Add(-1)
		f.finished.Add(1)
		u.done <- res
	}()

	return u, nil
}

func (f *fakeLauncher) work(ctx context.Context, task domain.Task) UnitResult {
	delay := f.delay
	if d, ok := f.delays[task.URL]; ok {
		delay = d
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return UnitResult{Err: ctx.Err()}
	}

	if f.fail[task.URL] {
		return UnitResult{Err: errors.New("worker exited with status 1")}
	}

	err := os.WriteFile(filepath.Join(f.outDir, task.TargetPath), []byte(task.URL), 0644)
	return UnitResult{Bytes: int64(len(task.URL)), Err: err}
}

// FinishedAt returns how many workers had already finished when url was launched.
func (f *fakeLauncher) FinishedAt(url string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishedAt[url]
}

func (f *fakeLauncher) Launched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.launched...)
}
