package events

// Entity types
const (
	EntitySeries = "series"
	EntityCycle  = "cycle"
)

// Event type constants
const (
	EventSeriesStatusChanged = "series.status.changed"
	EventSeriesCompleted     = "series.completed"
	EventItemsOffline        = "items.offline"
	EventReconcileCompleted  = "reconcile.completed"
	EventWatchlistCompleted  = "watchlist.completed"
)

// Cycle entity ids
const (
	CycleReconcile = "reconcile"
	CycleWatchlist = "watchlist"
)

// SeriesStatusChanged is emitted when the classifier moves a series to a
// different watching status.
type SeriesStatusChanged struct {
	BaseEvent
	Title       string `json:"title"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	PausedUntil string `json:"paused_until,omitempty"`
}

// SeriesCompleted is emitted when a series leaves the active statuses for
// Completed. Upgrade reports whether a best-version re-subscription was issued.
type SeriesCompleted struct {
	BaseEvent
	Title       string `json:"title"`
	FinalSeason int    `json:"final_season"`
	Upgrade     bool   `json:"upgrade"`
}

// ItemsOffline is emitted when a cycle soft-retires records.
type ItemsOffline struct {
	BaseEvent
	Keys []string `json:"keys"`
}

// ReconcileCompleted summarises one reconciliation cycle.
type ReconcileCompleted struct {
	BaseEvent
	Scanned     int   `json:"scanned"`
	Dirty       int   `json:"dirty"`
	Created     int   `json:"created"`
	Updated     int   `json:"updated"`
	Offline     int   `json:"offline"`
	RowFailures int   `json:"row_failures"`
	FetchErrors int   `json:"fetch_errors"`
	Interrupted bool  `json:"interrupted"`
	DurationMS  int64 `json:"duration_ms"`
}

// WatchlistCompleted summarises one classifier cycle.
type WatchlistCompleted struct {
	BaseEvent
	Processed   int   `json:"processed"`
	Transitions int   `json:"transitions"`
	Failed      int   `json:"failed"`
	Interrupted bool  `json:"interrupted"`
	DurationMS  int64 `json:"duration_ms"`
}
