package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/bulkfetch/internal/domain"
)

func openStore(t *testing.T) *PersistentStore {
	t.Helper()
	s, err := NewPersistentStore(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(started time.Time) *domain.RunReport {
	started = started.Truncate(time.Millisecond)
	return &domain.RunReport{
		ID:         ksuid.New().String(),
		Status:     domain.RunCompleted,
		OutDir:     "./gzips",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Summary: domain.Summary{
			Total: 3, Dispatched: 2, Succeeded: 1, Failed: 1, Skipped: 1,
			Bytes: 2048, Duration: 90 * time.Second,
		},
		Results: []domain.TaskResult{
			{
				Task:    domain.Task{URL: "http://h/a.gz", TargetPath: "a.gz"},
				Outcome: domain.Succeeded, Skipped: true, StartedAt: started,
			},
			{
				Task:        domain.Task{URL: "http://h/b.gz", TargetPath: "b.gz"},
				ExecutionID: "exec-b", Outcome: domain.Succeeded,
				StartedAt: started, Duration: 1500 * time.Millisecond,
			},
			{
				Task:        domain.Task{URL: "http://h/c.gz", TargetPath: "c.gz"},
				ExecutionID: "exec-c", Outcome: domain.Failed,
				StartedAt: started, Duration: time.Second, Error: "worker exited with status 1",
			},
		},
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	run := sampleRun(time.Now())

	require.NoError(t, s.RecordRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, run.Status, got.Status)
	assert.Equal(t, run.Summary, got.Summary)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	require.Len(t, got.Results, 3)

	assert.True(t, got.Results[0].Skipped)
	assert.Empty(t, got.Results[0].ExecutionID)
	assert.Equal(t, "exec-b", got.Results[1].ExecutionID)
	assert.Equal(t, 1500*time.Millisecond, got.Results[1].Duration)
	assert.Equal(t, domain.Failed, got.Results[2].Outcome)
	assert.Equal(t, "worker exited with status 1", got.Results[2].Error)
}

func TestRecordRunReplacesResults(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	run := sampleRun(time.Now())
	require.NoError(t, s.RecordRun(ctx, run))

	run.Status = domain.RunInterrupted
	run.Results = run.Results[:1]
	require.NoError(t, s.RecordRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunInterrupted, got.Status)
	assert.Len(t, got.Results, 1)
}

func TestGetRunMissing(t *testing.T) {
	got, err := openStore(t).GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	var ids []string
	for i := 0; i < 3; i++ {
		r := sampleRun(base.Add(time.Duration(i) * time.Minute))
		ids = append(ids, r.ID)
		require.NoError(t, s.RecordRun(ctx, r))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Empty(t, runs[0].Results)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewPersistentStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordRun(context.Background(), sampleRun(time.Now())))
	require.NoError(t, s.Close())

	s, err = NewPersistentStore(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)
}
