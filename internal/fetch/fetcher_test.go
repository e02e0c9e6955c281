package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/bulkfetch/internal/domain"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/files/ok.csv.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	})
	mux.HandleFunc("/files/missing.csv.gz", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/files/short.csv.gz", func(w http.ResponseWriter, r *http.Request) {
		// Promise more than we send so the client sees a truncated body
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("partial"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchWritesFile(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	res, err := NewFetcherWithClient(srv.Client()).Fetch(context.Background(), srv.URL+"/files/ok.csv.gz", dir)
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.Equal(t, int64(7), res.Bytes)
	assert.Equal(t, filepath.Join(dir, "ok.csv.gz"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	assert.NoFileExists(t, res.Path+partSuffix)
}

func TestFetchSkipsExistingTarget(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "ok.csv.gz")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0644))

	res, err := NewFetcherWithClient(srv.Client()).Fetch(context.Background(), srv.URL+"/files/ok.csv.gz", dir)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFetchFailuresLeaveNoFile(t *testing.T) {
	srv := newServer(t)

	for _, name := range []string{"missing.csv.gz", "short.csv.gz"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			_, err := NewFetcherWithClient(srv.Client()).Fetch(context.Background(), srv.URL+"/files/"+name, dir)
			require.Error(t, err)

			var tErr *domain.TransferError
			assert.ErrorAs(t, err, &tErr)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	srv := newServer(t)
	url := srv.URL + "/files/ok.csv.gz"
	srv.Close()

	dir := t.TempDir()
	_, err := NewFetcher(0).Fetch(context.Background(), url, dir)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "ok.csv.gz"))
}

func TestFetchRejectsURLWithoutFileName(t *testing.T) {
	_, err := NewFetcher(0).Fetch(context.Background(), "http://example.com/dir/", t.TempDir())
	require.Error(t, err)

	var tErr *domain.TransferError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "resolve", tErr.Op)
}

func TestFetchCancelled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	_, err := NewFetcherWithClient(srv.Client()).Fetch(ctx, srv.URL+"/files/ok.csv.gz", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "ok.csv.gz"))
}
