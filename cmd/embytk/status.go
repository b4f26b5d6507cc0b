package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library and watchlist summary",
	Long: `Show how many records are mirrored and how the tracked series are
classified.

Examples:
  embytk status              # Counts only
  embytk status --watchlist  # Also list every tracked series`,
	Args: cobra.NoArgs,
	RunE: runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("watchlist", "w", false, "List tracked series")
}

type statusReport struct {
	Online    map[library.EntityType]int     `json:"online"`
	Offline   map[library.EntityType]int     `json:"offline"`
	Watchlist map[library.WatchingStatus]int `json:"watchlist"`
	Series    []*library.Record              `json:"series,omitempty"`
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	listSeries, _ := cmd.Flags().GetBool("watchlist")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var report statusReport
	report.Online, report.Offline, err = a.store.LibraryCounts()
	if err != nil {
		return fmt.Errorf("library counts: %w", err)
	}
	report.Watchlist, err = a.store.StatusCounts()
	if err != nil {
		return fmt.Errorf("watchlist counts: %w", err)
	}
	if listSeries {
		report.Series, err = a.store.Watchlist()
		if err != nil {
			return fmt.Errorf("watchlist: %w", err)
		}
	}

	if jsonOutput {
		printJSON(report)
		return nil
	}
	printStatus(&report)
	return nil
}

func printStatus(r *statusReport) {
	fmt.Println("Library:")
	for _, t := range []library.EntityType{library.EntityMovie, library.EntitySeries, library.EntitySeason, library.EntityEpisode} {
		fmt.Printf("  %-10s %10s online  %8s offline\n", t,
			humanize.Comma(int64(r.Online[t])), humanize.Comma(int64(r.Offline[t])))
	}

	fmt.Println("\nWatchlist:")
	for _, s := range []library.WatchingStatus{library.StatusWatching, library.StatusPaused, library.StatusPending, library.StatusCompleted} {
		fmt.Printf("  %-10s %10s\n", s, humanize.Comma(int64(r.Watchlist[s])))
	}

	if len(r.Series) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("  %-8s %-32s %-10s %-20s %-16s %s\n", "TMDB", "TITLE", "STATUS", "NEXT", "MISSING", "CHECKED")
	fmt.Println("  " + strings.Repeat("-", 100))
	for _, s := range r.Series {
		status := string(s.WatchingStatus)
		if s.ForceEnded {
			status += "*"
		}
		checked := "-"
		if s.WatchlistCheckedAt != nil {
			checked = formatTimeAgo(*s.WatchlistCheckedAt)
		}
		fmt.Printf("  %-8s %-32s %-10s %-20s %-16s %s\n",
			s.TMDBID, truncate(s.Title, 32), status,
			formatNextEpisode(s.NextEpisode), formatMissing(s.MissingInfo), checked)
	}
}
