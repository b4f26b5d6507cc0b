package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qf-luck/emby-toolkit-sub001/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events [series-tmdb-id]",
	Short: "Show recent events",
	Long: `Show recent events of one type, or the full history of a series.

Examples:
  embytk events                                # Recent status changes
  embytk events --type reconcile.completed     # Recent sync summaries
  embytk events 1399                           # Everything about series 1399`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsCmd.Flags().StringP("type", "t", events.EventSeriesStatusChanged, "Event type")
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	eventType, _ := cmd.Flags().GetString("type")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var list []events.RawEvent
	if len(args) > 0 {
		list, err = a.eventLog.ForEntity(events.EntitySeries, args[0])
	} else {
		list, err = a.eventLog.Recent(eventType, limit)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	if jsonOutput {
		printJSON(list)
		return nil
	}

	if len(list) == 0 {
		fmt.Println("No events")
		return nil
	}

	registry := events.DefaultRegistry()
	fmt.Printf("Events (%d):\n\n", len(list))
	fmt.Printf("  %-16s %-26s %-20s %s\n", "TIME", "TYPE", "ENTITY", "DETAIL")
	fmt.Println("  " + strings.Repeat("-", 90))
	for _, raw := range list {
		entity := fmt.Sprintf("%s/%s", raw.EntityType, raw.EntityID)
		detail := truncate(raw.Payload, 60)
		if e, err := registry.Unmarshal(raw); err == nil {
			detail = truncate(events.Describe(e), 60)
		}
		fmt.Printf("  %-16s %-26s %-20s %s\n", formatTimeAgo(raw.OccurredAt), raw.EventType, entity, detail)
	}
	return nil
}
