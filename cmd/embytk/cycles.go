package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation cycle",
	Long: `Scan the Emby catalog, fetch metadata for everything that changed and
write it to the local database. Interrupting stops after the current batch.`,
	Args: cobra.NoArgs,
	RunE: runSyncCmd,
}

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Run one watchlist cycle",
	Long: `Classify every tracked series, or only the one given with --series,
and mirror the result to MoviePilot.

Examples:
  embytk watchlist               # Evaluate every tracked series
  embytk watchlist --series 1399 # Re-evaluate one series`,
	Args: cobra.NoArgs,
	RunE: runWatchlistCmd,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.Flags().String("series", "", "TMDB id of a single series to evaluate")
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := interruptible()
	defer stop()
	ctx, cancel := withTimeout(ctx, a.cfg.Sync.Timeout.Duration)
	defer cancel()

	res, err := a.engine().Run(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if jsonOutput {
		printJSON(res)
		return nil
	}

	fmt.Printf("Scanned:     %s items\n", humanize.Comma(int64(res.Scanned)))
	fmt.Printf("Changed:     %d (%d unresolved)\n", res.Dirty, res.Unresolved)
	fmt.Printf("Written:     %d created, %d updated\n", res.Created, res.Updated)
	fmt.Printf("Offline:     %d items, %d children\n", res.Offline, res.ChildrenOffline)
	if len(res.Failures) > 0 || len(res.FetchErrors) > 0 {
		fmt.Printf("Failed:      %d writes, %d fetches (retried next cycle)\n", len(res.Failures), len(res.FetchErrors))
	}
	fmt.Printf("Took:        %s\n", res.Duration.Round(time.Millisecond))
	if res.Interrupted {
		fmt.Println("\nStopped early; remaining batches run on the next cycle.")
	}
	return nil
}

func runWatchlistCmd(cmd *cobra.Command, args []string) error {
	seriesID, _ := cmd.Flags().GetString("series")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := interruptible()
	defer stop()
	ctx, cancel := withTimeout(ctx, a.cfg.Watchlist.Timeout.Duration)
	defer cancel()

	proc := a.processor()
	if seriesID != "" {
		d, err := proc.ProcessSeries(ctx, seriesID)
		if err != nil {
			return fmt.Errorf("series %s: %w", seriesID, err)
		}
		if jsonOutput {
			printJSON(d)
			return nil
		}
		fmt.Printf("Series %s: %s (%s)\n", seriesID, d.Status, d.Reason)
		if d.PausedUntil != nil {
			fmt.Printf("  paused until %s\n", d.PausedUntil.Format(time.DateOnly))
		}
		return nil
	}

	res, err := proc.Run(ctx)
	if err != nil {
		return fmt.Errorf("watchlist: %w", err)
	}
	if jsonOutput {
		printJSON(res)
		return nil
	}
	fmt.Printf("Processed:   %d series (%d failed)\n", res.Processed, res.Failed)
	fmt.Printf("Changed:     %d transitions, %d upgrades\n", res.Transitions, res.Upgrades)
	fmt.Printf("Took:        %s\n", res.Duration.Round(time.Millisecond))
	if res.Interrupted {
		fmt.Println("\nStopped early; remaining series run on the next cycle.")
	}
	return nil
}

// withTimeout bounds a one-shot cycle the way the daemon does.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
