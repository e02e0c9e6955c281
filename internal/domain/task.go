package domain

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Task is one URL to local file download unit.
// Tasks are immutable once built by the queue.
type Task struct {
	URL string `json:"url"`

	// TargetPath is the file name derived from the last path segment of URL.
	// It is relative to the output directory.
	TargetPath string `json:"target_path"`
}

// NewTask derives the target file name from the final segment of rawURL.
func NewTask(rawURL string) (Task, error) {
	name := TargetName(rawURL)
	if name == "" || name == "." || name == ".." {
		return Task{}, fmt.Errorf("url %q has no file name segment", rawURL)
	}

	return Task{URL: rawURL, TargetPath: name}, nil
}

// TargetName returns everything after the last '/' of the URL path.
// Query strings and fragments are ignored when the URL parses.
func TargetName(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}

	name := p[strings.LastIndex(p, "/")+1:]

	// Never let a crafted segment escape the output directory
	if strings.ContainsAny(name, `\`) || filepath.Base(name) != name {
		return ""
	}

	return name
}

// Path joins the target with the output directory.
func (t Task) Path(outDir string) string {
	return filepath.Join(outDir, t.TargetPath)
}

// Outcome is the binary result of a reaped worker.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// WorkerHandle tracks one dispatched task while its worker runs.
type WorkerHandle struct {
	Task        Task      `json:"task"`
	ExecutionID string    `json:"execution_id"`
	StartedAt   time.Time `json:"started_at"`
}
