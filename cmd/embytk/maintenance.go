package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete orphaned records and expired caches",
	Long: `Physically remove seasons and episodes whose parent series no longer
exists, expired metadata cache entries, cached metadata of offline titles
and events older than --events. Offline records are otherwise kept so
overrides survive a re-add.`,
	Args: cobra.NoArgs,
	RunE: runSweepCmd,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().Duration("events", eventRetention, "Remove events older than this")
}

func runSweepCmd(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("events")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	orphans, err := a.store.SweepOrphans()
	if err != nil {
		return fmt.Errorf("sweep orphans: %w", err)
	}
	ctx := context.Background()
	cached, err := a.meta.Prune(ctx)
	if err != nil {
		return fmt.Errorf("prune metadata cache: %w", err)
	}
	forgotten, err := forgetOffline(ctx, a)
	if err != nil {
		a.log.Warn("drop cached metadata of offline titles", "error", err)
	}
	var events int64
	if olderThan > 0 {
		events, err = a.eventLog.Prune(olderThan)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		printJSON(map[string]int64{"orphans": orphans, "cache": cached, "offline_titles": int64(forgotten), "events": events})
		return nil
	}
	fmt.Printf("Removed %d orphaned records, %d cache entries (%d offline titles), %d events older than %s\n",
		orphans, cached, forgotten, events, olderThan.Round(time.Hour))
	return nil
}

// forgetOffline drops the cached provider responses of retired movies and
// series and returns how many titles it cleared.
func forgetOffline(ctx context.Context, a *app) (int, error) {
	offline := false
	var (
		n    int
		errs []error
	)
	for _, t := range []library.EntityType{library.EntityMovie, library.EntitySeries} {
		records, _, err := a.store.List(library.RecordFilter{Type: &t, InLibrary: &offline})
		if err != nil {
			return n, err
		}
		for _, r := range records {
			id, ok := providerID(r)
			if !ok {
				continue
			}
			if err := a.meta.Invalidate(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Key(), err))
				continue
			}
			n++
		}
	}
	return n, errors.Join(errs...)
}

// providerID returns the provider id whose cached responses cover r: its
// own for movies and series, its series' for seasons and episodes.
func providerID(r *library.Record) (int64, bool) {
	id := r.TMDBID
	if !r.Type.TopLevel() {
		if r.ParentSeriesTMDBID == nil {
			return 0, false
		}
		id = *r.ParentSeriesTMDBID
	}
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}
