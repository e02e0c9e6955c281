package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/datallboy/bulkfetch/internal/api"
	"github.com/datallboy/bulkfetch/internal/app"
	"github.com/datallboy/bulkfetch/internal/discovery"
	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/engine"
	"github.com/datallboy/bulkfetch/internal/fetch"
	"github.com/datallboy/bulkfetch/internal/infra/config"
	"github.com/datallboy/bulkfetch/internal/infra/logger"
	"github.com/datallboy/bulkfetch/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [URL...]",
		Short: "Download every URL, or every file of the listing when none are given",
		RunE:  runDownloads,
	}

	f := cmd.Flags()
	f.IntP("num-workers", "n", 0, "Maximum concurrent downloads (default: number of CPUs)")
	f.String("downloader", "", "External single-URL fetch program; empty fetches in-process")
	f.String("policy", "", "Slot reuse policy: reap-any or drain-all")
	f.StringP("output-dir", "o", "", "Directory the files are saved into")
	f.String("listing-url", "", "HTML directory listing to discover URLs from")
	f.String("status-addr", "", "Serve live run status on this address, e.g. :8080")
	f.String("history-db", "", "SQLite file recording finished runs")
	f.String("urls-file", "", "Read URLs from this file, one per line, instead of the listing")

	return cmd
}

func runDownloads(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return withCode(ExitConfigError, fmt.Errorf("failed to open log: %w", err))
	}
	defer log.Close()

	appCtx := app.NewContext(cfg, log)

	if cfg.Store.SQLitePath != "" {
		st, err := store.NewPersistentStore(cfg.Store.SQLitePath)
		if err != nil {
			return withCode(ExitConfigError, err)
		}
		defer st.Close()
		appCtx.History = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls, err := collectURLs(ctx, cmd, cfg, args)
	if err != nil {
		var discErr *domain.DiscoveryError
		if errors.As(err, &discErr) {
			log.Error("Discovery failed: %v", err)
			return withCode(ExitDiscoveryFailed, err)
		}
		return withCode(ExitInvalidArgs, err)
	}

	if err := os.MkdirAll(cfg.Download.OutDir, 0755); err != nil {
		return withCode(ExitConfigError, fmt.Errorf("failed to create output directory: %w", err))
	}

	launcher, err := newLauncher(cfg, log)
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	board := engine.NewBoard()
	dl := engine.NewDownloader(appCtx, launcher, board, cmd.OutOrStdout())

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.Status.Addr != "" {
		// Bind before downloading so a taken port fails the run up front
		ln, err := net.Listen("tcp", cfg.Status.Addr)
		if err != nil {
			return withCode(ExitConfigError, fmt.Errorf("status server: %w", err))
		}

		srv = api.NewServer(cfg.Status.Addr, appCtx, board)
		log.Info("Status server listening on %s", ln.Addr())

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
	}

	var runErr error
	g.Go(func() error {
		defer func() {
			if srv == nil {
				return
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		// The status server failing cancels gctx, which interrupts the run
		_, runErr = dl.Run(gctx, urls)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("%v", err)
		return withCode(ExitGeneralError, err)
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, domain.ErrNoTasks):
		return withCode(ExitNoTasks, runErr)
	case errors.Is(runErr, context.Canceled):
		return withCode(ExitInterrupted, runErr)
	default:
		return withCode(ExitGeneralError, runErr)
	}
}

// collectURLs takes positional args first, then --urls-file, then the listing.
func collectURLs(ctx context.Context, cmd *cobra.Command, cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	if path, _ := cmd.Flags().GetString("urls-file"); path != "" {
		return readURLsFile(path)
	}

	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	return discovery.NewLister(client).List(ctx, cfg.Download.ListingURL)
}

// readURLsFile reads one URL per line. Blank lines and # comments are ignored.
func readURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	return urls, sc.Err()
}

func newLauncher(cfg *config.Config, log *logger.Logger) (engine.Launcher, error) {
	if cfg.Workers.DownloaderPath == "" {
		log.Debug("Using in-process fetch workers")
		return engine.NewInProcessLauncher(fetch.NewFetcher(cfg.HTTP.Timeout), cfg.Download.OutDir), nil
	}

	l, err := engine.NewProcessLauncher(cfg.Workers.DownloaderPath, cfg.Download.OutDir)
	if err != nil {
		return nil, err
	}
	// Worker chatter goes to the log file, not the progress line
	l.Output = log.With("source", "worker")
	log.Debug("Using external workers: %s", l.BinaryPath)
	return l, nil
}
