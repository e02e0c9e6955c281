package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/platform"
)

// ProcessLauncher runs an external single-URL fetch program per task.
// The program gets the URL as its only argument, runs inside OutDir and
// reports success with exit status 0.
type ProcessLauncher struct {
	BinaryPath string
	OutDir     string

	// Output receives the worker's stdout and stderr. Nil discards them.
	Output io.Writer
}

// NewProcessLauncher resolves binary through PATH (or as a path) before any task is dispatched.
func NewProcessLauncher(binary, outDir string) (*ProcessLauncher, error) {
	path, err := platform.ResolveExecutable(binary)
	if err != nil {
		return nil, err
	}

	return &ProcessLauncher{BinaryPath: path, OutDir: outDir}, nil
}

func (l *ProcessLauncher) Launch(ctx context.Context, task domain.Task) (Unit, error) {
	cmd := exec.CommandContext(ctx, l.BinaryPath, task.URL)
	cmd.Dir = l.OutDir
	cmd.Stdout = l.Output
	cmd.Stderr = l.Output
	// Don't hang on grandchildren holding the output pipes after a kill
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &processUnit{cmd: cmd}, nil
}

type processUnit struct {
	cmd *exec.Cmd
}

func (u *processUnit) Wait() UnitResult {
	err := u.cmd.Wait()
	if err == nil {
		return UnitResult{}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return UnitResult{Err: fmt.Errorf("worker exited with status %d", exitErr.ExitCode())}
	}
	return UnitResult{Err: err}
}
