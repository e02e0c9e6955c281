package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/datallboy/bulkfetch/internal/infra/config"
	"github.com/datallboy/bulkfetch/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous runs recorded in the history database",
		Args:  cobra.NoArgs,
		RunE:  showHistory,
	}

	cmd.Flags().String("history-db", "", "SQLite file recording finished runs")
	cmd.Flags().Int("limit", 20, "Number of runs to show")

	return cmd
}

func showHistory(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	if cfg.Store.SQLitePath == "" {
		return withCode(ExitConfigError, errors.New("no history database configured (set store.sqlite_path or --history-db)"))
	}

	limit, _ := cmd.Flags().GetInt("limit")

	st, err := store.NewPersistentStore(cfg.Store.SQLitePath)
	if err != nil {
		return withCode(ExitConfigError, err)
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), limit)
	if err != nil {
		return withCode(ExitGeneralError, err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tDOWNLOADED\tFAILED\tSIZE\tDURATION")
	for _, r := range runs {
		s := r.Summary
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			r.ID,
			humanize.Time(r.StartedAt),
			r.Status,
			s.Downloaded(), s.Total,
			s.Failed,
			humanize.Bytes(s.Bytes),
			s.Duration.Round(time.Second),
		)
	}

	return w.Flush()
}
