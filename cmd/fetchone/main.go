// Command fetchone downloads a single URL into the current directory.
//
// It is the external worker bulkfetch runs when workers.downloader_path is
// set: exit status 0 means the file is in place (fetched or already present),
// 1 means the fetch failed, 2 means it was called wrongly.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/datallboy/bulkfetch/internal/fetch"
	"github.com/datallboy/bulkfetch/internal/infra/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	code := 0

	cmd := &cobra.Command{
		Use:           "fetchone URL",
		Short:         "Download one URL into the current directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			verbose, _ := cmd.Flags().GetBool("verbose")

			level := logger.LevelInfo
			if verbose {
				level = logger.LevelDebug
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), level)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir, err := os.Getwd()
			if err != nil {
				code = 1
				return err
			}

			start := time.Now()
			res, err := fetch.NewFetcher(timeout).Fetch(ctx, args[0], dir)
			if err != nil {
				code = 1
				return err
			}

			if res.Skipped {
				log.Debug("%s already present", res.Path)
				return nil
			}
			log.Debug("Saved %s (%s) in %s", res.Path, humanize.Bytes(uint64(res.Bytes)), time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().Duration("timeout", 0, "Request timeout (0 waits forever)")
	cmd.Flags().BoolP("verbose", "v", false, "Log each fetch")
	// cobra falls back to os.Args on nil
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "fetchone: %v\n", err)
		if code == 0 {
			// Wrong argument count or an unknown flag
			code = 2
		}
		return code
	}

	return 0
}
