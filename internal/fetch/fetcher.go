package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/datallboy/bulkfetch/internal/domain"
)

const partSuffix = ".part"

// Result describes a single finished fetch.
type Result struct {
	Path    string
	Bytes   int64
	Skipped bool
}

// Fetcher downloads exactly one URL into one file.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with the given request timeout (0 disables it).
func NewFetcher(timeout time.Duration) *Fetcher {
	return NewFetcherWithClient(&http.Client{Timeout: timeout})
}

func NewFetcherWithClient(c *http.Client) *Fetcher {
	if c == nil {
		c = http.DefaultClient
	}
	return &Fetcher{client: c}
}

// Fetch downloads rawURL into dir, named by the URL's final path segment.
//
// An existing target is left untouched and reported as Skipped. Data is
// streamed into a .part file that is renamed once complete, so a failed
// transfer never leaves a file that looks finished.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string) (Result, error) {
	task, err := domain.NewTask(rawURL)
	if err != nil {
		return Result{}, &domain.TransferError{URL: rawURL, Op: "resolve", Err: err}
	}

	finalPath := task.Path(dir)
	res := Result{Path: finalPath}

	// Skip if already exists
	if _, err := os.Stat(finalPath); err == nil {
		res.Skipped = true
		return res, nil
	}

	partPath := finalPath + partSuffix

	n, err := f.transfer(ctx, rawURL, partPath)
	if err != nil {
		cleanup(partPath)
		return res, err
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		cleanup(partPath)
		return res, &domain.TransferError{URL: rawURL, Op: "finalize", Err: err}
	}

	res.Bytes = n
	return res, nil
}

func (f *Fetcher) transfer(ctx context.Context, rawURL, partPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, &domain.TransferError{URL: rawURL, Op: "request", Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, &domain.TransferError{URL: rawURL, Op: "get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &domain.TransferError{URL: rawURL, Op: "get", Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	out, err := os.OpenFile(partPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, &domain.TransferError{URL: rawURL, Op: "create", Err: err}
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		return n, &domain.TransferError{URL: rawURL, Op: "copy", Err: err}
	}

	// A short body is a transfer failure, not a smaller file
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		out.Close()
		return n, &domain.TransferError{URL: rawURL, Op: "copy", Err: fmt.Errorf("size mismatch: expected %d, got %d", resp.ContentLength, n)}
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return n, &domain.TransferError{URL: rawURL, Op: "sync", Err: err}
	}

	if err := out.Close(); err != nil {
		return n, &domain.TransferError{URL: rawURL, Op: "close", Err: err}
	}

	return n, nil
}

// cleanup is best effort, the caller already reports the original failure
func cleanup(path string) {
	_ = os.Remove(path)
}
