package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/bulkfetch/internal/domain"
)

func mustTask(t *testing.T, url string) domain.Task {
	t.Helper()
	task, err := domain.NewTask(url)
	require.NoError(t, err)
	return task
}

func TestPoolDispatchRespectsLimit(t *testing.T) {
	fl := newFakeLauncher(t.TempDir())
	fl.delay = time.Hour
	p := NewPool(fl, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := p.Dispatch(ctx, mustTask(t, "http://x/a"))
	require.NoError(t, err)
	_, err = p.Dispatch(ctx, mustTask(t, "http://x/b"))
	require.NoError(t, err)

	assert.True(t, p.Full())
	_, err = p.Dispatch(ctx, mustTask(t, "http://x/c"))
	assert.ErrorIs(t, err, domain.ErrResourceExhausted)
	assert.Equal(t, 2, p.Running())
	assert.Len(t, fl.Launched(), 2)

	// Cancelled workers still have to be reaped to free their slots
	cancel()
	for p.Running() > 0 {
		r, err := p.Reap(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.Failed, r.Outcome)
	}
	assert.False(t, p.Full())
}

func TestPoolReapsEachHandleOnce(t *testing.T) {
	fl := newFakeLauncher(t.TempDir())
	p := NewPool(fl, 3)

	ids := map[string]bool{}
	for _, u := range []string{"http://x/a", "http://x/b", "http://x/c"} {
		h, err := p.Dispatch(context.Background(), mustTask(t, u))
		require.NoError(t, err)
		assert.NotEmpty(t, h.ExecutionID)
		ids[h.ExecutionID] = true
	}
	require.Len(t, ids, 3)
	assert.Len(t, p.Handles(), 3)

	for i := 0; i < 3; i++ {
		r, err := p.Reap(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.Succeeded, r.Outcome)
		assert.True(t, ids[r.Handle.ExecutionID], "reaped twice or unknown: %s", r.Handle.ExecutionID)
		delete(ids, r.Handle.ExecutionID)
	}

	assert.Empty(t, ids)
	assert.Equal(t, 0, p.Running())

	_, err := p.Reap(context.Background())
	assert.ErrorIs(t, err, ErrNothingRunning)
}

func TestPoolReapClassifiesFailure(t *testing.T) {
	fl := newFakeLauncher(t.TempDir())
	fl.fail["http://x/bad"] = true
	p := NewPool(fl, 1)

	_, err := p.Dispatch(context.Background(), mustTask(t, "http://x/bad"))
	require.NoError(t, err)

	r, err := p.Reap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Failed, r.Outcome)
	assert.Error(t, r.Err)
	assert.Equal(t, "http://x/bad", r.Handle.Task.URL)
}

func TestPoolLaunchFailureReleasesSlot(t *testing.T) {
	fl := newFakeLauncher(t.TempDir())
	fl.refuse["http://x/a"] = true
	p := NewPool(fl, 1)

	_, err := p.Dispatch(context.Background(), mustTask(t, "http://x/a"))
	var dErr *domain.DispatchError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "http://x/a", dErr.Task.URL)
	assert.Equal(t, 0, p.Running())

	_, err = p.Dispatch(context.Background(), mustTask(t, "http://x/b"))
	require.NoError(t, err)

	_, err = p.Reap(context.Background())
	require.NoError(t, err)
}

func TestPoolReapHonoursContext(t *testing.T) {
	fl := newFakeLauncher(t.TempDir())
	fl.delay = time.Hour
	p := NewPool(fl, 1)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	_, err := p.Dispatch(workerCtx, mustTask(t, "http://x/a"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Reap(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, p.Running(), "an abandoned reap must not drop the handle")

	stopWorker()
	_, err = p.Reap(context.Background())
	require.NoError(t, err)
}

func TestNewPoolClampsLimit(t *testing.T) {
	assert.Equal(t, 1, NewPool(newFakeLauncher(t.TempDir()), 0).Limit())
}
