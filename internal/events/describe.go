package events

import "fmt"

// Describe renders the interesting fields of a known event as one line.
// Unknown events render as their type.
func Describe(e Event) string {
	switch e := e.(type) {
	case *SeriesStatusChanged:
		s := fmt.Sprintf("%s: %s -> %s", e.Title, e.OldStatus, e.NewStatus)
		if e.PausedUntil != "" {
			s += " until " + e.PausedUntil
		}
		return s
	case *SeriesCompleted:
		s := fmt.Sprintf("%s: season %d", e.Title, e.FinalSeason)
		if e.Upgrade {
			s += ", upgrade requested"
		}
		return s
	case *ItemsOffline:
		return fmt.Sprintf("%d records offline", len(e.Keys))
	case *ReconcileCompleted:
		return fmt.Sprintf("scanned %d, %d created, %d updated, %d offline, %d failed",
			e.Scanned, e.Created, e.Updated, e.Offline, e.RowFailures+e.FetchErrors)
	case *WatchlistCompleted:
		return fmt.Sprintf("processed %d, %d transitions, %d failed", e.Processed, e.Transitions, e.Failed)
	}
	return e.EventType()
}
