package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manual overrides that survive synchronization",
}

var overrideTotalCmd = &cobra.Command{
	Use:   "total <tmdb-id> <episodes>",
	Short: "Pin the episode total of a series or season",
	Long: `Pin the episode total of a series or season. A pinned total is never
replaced by the provider count; --unlock hands it back.

Examples:
  embytk override total 1399 73
  embytk override total 1399_S1 10 --type Season
  embytk override total 1399 0 --unlock`,
	Args: cobra.ExactArgs(2),
	RunE: runOverrideTotal,
}

var overrideRatingCmd = &cobra.Command{
	Use:   "rating <tmdb-id> [rating]",
	Short: "Set or clear the custom rating of a movie or series",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runOverrideRating,
}

var overrideEndedCmd = &cobra.Command{
	Use:   "ended <series-tmdb-id>",
	Short: "Force a series to be treated as ended",
	Long: `Force a series to be treated as ended. The classifier then always
reports it as completed and never re-subscribes it. --off clears the flag.`,
	Args: cobra.ExactArgs(1),
	RunE: runOverrideEnded,
}

var overrideStatusCmd = &cobra.Command{
	Use:   "status <series-tmdb-id> <status>",
	Short: "Set the watchlist status of a series",
	Long: `Set the watchlist status of a series. Use Watching to start tracking a
series and NONE to stop.`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"NONE", "Watching", "Paused", "Pending", "Completed"},
	RunE:      runOverrideStatus,
}

func init() {
	rootCmd.AddCommand(overrideCmd)
	overrideCmd.AddCommand(overrideTotalCmd, overrideRatingCmd, overrideEndedCmd, overrideStatusCmd)

	overrideTotalCmd.Flags().String("type", string(library.EntitySeries), "Record type (Series or Season)")
	overrideTotalCmd.Flags().Bool("unlock", false, "Release the pinned total")
	overrideRatingCmd.Flags().String("type", string(library.EntityMovie), "Record type (Movie or Series)")
	overrideEndedCmd.Flags().Bool("off", false, "Clear the flag")
}

func parseEntityType(s string, allowed ...library.EntityType) (library.EntityType, error) {
	for _, t := range allowed {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = string(t)
	}
	return "", fmt.Errorf("invalid type %q (want %s)", s, strings.Join(names, " or "))
}

func parseWatchingStatus(s string) (library.WatchingStatus, error) {
	for _, st := range []library.WatchingStatus{
		library.StatusNone, library.StatusWatching, library.StatusPaused,
		library.StatusPending, library.StatusCompleted,
	} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// forget drops the cached provider data behind key so the next cycle works
// from a fresh copy. The override itself is already stored; failures warn.
func forget(a *app, key library.Key) {
	r, err := a.store.Get(key)
	if err != nil {
		a.log.Warn("invalidate cached metadata", "key", key.String(), "error", err)
		return
	}
	id, ok := providerID(r)
	if !ok {
		return
	}
	if err := a.meta.Invalidate(context.Background(), id); err != nil {
		a.log.Warn("invalidate cached metadata", "key", key.String(), "error", err)
	}
}

func runOverrideTotal(cmd *cobra.Command, args []string) error {
	typeFlag, _ := cmd.Flags().GetString("type")
	unlock, _ := cmd.Flags().GetBool("unlock")

	t, err := parseEntityType(typeFlag, library.EntitySeries, library.EntitySeason)
	if err != nil {
		return err
	}
	total, err := strconv.Atoi(args[1])
	if err != nil || total < 0 {
		return fmt.Errorf("invalid episode count: %s", args[1])
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	key := library.Key{TMDBID: args[0], Type: t}
	if err := a.store.SetTotalEpisodes(key, total, !unlock); err != nil {
		return err
	}
	forget(a, key)
	if unlock {
		fmt.Printf("%s: total unlocked, next sync restores the provider count\n", key)
	} else {
		fmt.Printf("%s: total pinned to %d\n", key, total)
	}
	return nil
}

func runOverrideRating(cmd *cobra.Command, args []string) error {
	typeFlag, _ := cmd.Flags().GetString("type")
	t, err := parseEntityType(typeFlag, library.EntityMovie, library.EntitySeries)
	if err != nil {
		return err
	}
	rating := ""
	if len(args) > 1 {
		rating = args[1]
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	key := library.Key{TMDBID: args[0], Type: t}
	if err := a.store.SetCustomRating(key, rating); err != nil {
		return err
	}
	if rating == "" {
		fmt.Printf("%s: custom rating cleared\n", key)
	} else {
		fmt.Printf("%s: custom rating %s\n", key, rating)
	}
	return nil
}

func runOverrideEnded(cmd *cobra.Command, args []string) error {
	off, _ := cmd.Flags().GetBool("off")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.store.SetForceEnded(args[0], !off); err != nil {
		return err
	}
	forget(a, library.Key{TMDBID: args[0], Type: library.EntitySeries})
	fmt.Printf("Series %s: force ended = %v\n", args[0], !off)
	return nil
}

func runOverrideStatus(cmd *cobra.Command, args []string) error {
	status, err := parseWatchingStatus(args[1])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	err = a.store.SetWatchingStatus(args[0], status)
	if errors.Is(err, library.ErrOffline) {
		return fmt.Errorf("series %s is not in the library, run 'embytk sync' once it is back in Emby", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Printf("Series %s: %s\n", args[0], status)
	return nil
}
