package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitDiscoveryFailed = 3
	ExitNoTasks         = 4
	ExitConfigError     = 5
	ExitInterrupted     = 130
)

// exitError carries a specific exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code != ExitInterrupted {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}

	// Anything cobra itself rejected (unknown flag, bad arg count)
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitInvalidArgs
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bulkfetch",
		Short: "Fetch every file of a remote listing with a bounded pool of workers",
		Long: `bulkfetch downloads each file linked from an HTML directory listing (or given
explicitly) into an output directory, running at most N downloads at once.
Files already present are skipped, so an interrupted run can simply be repeated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to an optional YAML config file")

	root.AddCommand(newRunCmd(), newHistoryCmd())
	return root
}
