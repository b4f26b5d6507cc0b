package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qf-luck/emby-toolkit-sub001/internal/server"
)

const eventRetention = 90 * 24 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon",
	Long: `Run the reconciliation and watchlist cycles on their configured cron
schedules until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("run-now", false, "Run a sync and a watchlist cycle immediately")
}

func runServe(cmd *cobra.Command, args []string) error {
	runNow, _ := cmd.Flags().GetBool("run-now")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := server.NewRunner(server.Config{
		SyncSchedule:      a.cfg.Sync.Schedule,
		SyncTimeout:       a.cfg.Sync.Timeout.Duration,
		WatchlistSchedule: a.cfg.Watchlist.Schedule,
		WatchlistTimeout:  a.cfg.Watchlist.Timeout.Duration,
		RunOnStart:        runNow,
	}, a.engine(), a.processor(), map[string]server.Pruner{
		"metadata": a.meta,
		"events": server.PruneFunc(func(context.Context) (int64, error) {
			return a.eventLog.Prune(eventRetention)
		}),
	}, a.bus, a.log)

	a.log.Info("embytk starting",
		"version", version,
		"database", a.cfg.Database.Path,
		"moviepilot", a.pilot != nil,
	)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info("embytk stopped")
	return nil
}
