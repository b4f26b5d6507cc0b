package library

// RecordFilter specifies criteria for listing records.
type RecordFilter struct {
	Type           *EntityType
	InLibrary      *bool
	WatchingStatus *WatchingStatus
	ParentSeriesID *string
	SeasonNumber   *int
	Limit          int // 0 = no limit
	Offset         int
}
