// Package library stores the local mirror of the media server catalog.
package library

import (
	"fmt"
	"time"
)

// EntityType distinguishes the four kinds of catalog entries.
type EntityType string

const (
	EntityMovie   EntityType = "Movie"
	EntitySeries  EntityType = "Series"
	EntitySeason  EntityType = "Season"
	EntityEpisode EntityType = "Episode"
)

// TopLevel reports whether the type is a movie or series.
func (t EntityType) TopLevel() bool {
	return t == EntityMovie || t == EntitySeries
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityMovie, EntitySeries, EntitySeason, EntityEpisode:
		return true
	}
	return false
}

// WatchingStatus is the watchlist state of a series.
type WatchingStatus string

const (
	StatusNone      WatchingStatus = "NONE"
	StatusWatching  WatchingStatus = "Watching"
	StatusPaused    WatchingStatus = "Paused"
	StatusPending   WatchingStatus = "Pending"
	StatusCompleted WatchingStatus = "Completed"
)

// Active reports whether the status is one the watchlist keeps tracking.
func (s WatchingStatus) Active() bool {
	return s == StatusWatching || s == StatusPaused || s == StatusPending
}

// Key is the composite identity of a record.
type Key struct {
	TMDBID string
	Type   EntityType
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.TMDBID)
}

// AssetDetail describes one physical file backing a record.
type AssetDetail struct {
	EmbyItemID        string   `json:"emby_item_id"`
	Path              string   `json:"path,omitempty"`
	Resolution        string   `json:"resolution,omitempty"`
	VideoCodec        string   `json:"video_codec,omitempty"`
	ReleaseGroup      string   `json:"release_group,omitempty"`
	AudioLanguages    []string `json:"audio_languages,omitempty"`
	SubtitleLanguages []string `json:"subtitle_languages,omitempty"`
	SourceLibraryID   string   `json:"source_library_id,omitempty"`
	SizeBytes         int64    `json:"size_bytes,omitempty"`
}

// NextEpisode is the cached watch pointer of a series.
type NextEpisode struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title,omitempty"`
	AirDate string `json:"air_date,omitempty"`
}

// MissingInfo is the cached gap summary of a series.
type MissingInfo struct {
	Seasons  []int         `json:"missing_seasons"`
	Episodes map[int][]int `json:"missing_episodes"`
}

// Empty reports whether nothing is missing.
func (m *MissingInfo) Empty() bool {
	return m == nil || (len(m.Seasons) == 0 && len(m.Episodes) == 0)
}

// Record is a movie, series, season or episode in the local mirror.
type Record struct {
	ID                 int64
	TMDBID             string
	Type               EntityType
	ParentSeriesTMDBID *string // required for seasons and episodes
	SeasonNumber       *int
	EpisodeNumber      *int

	Title          string
	OriginalTitle  string
	Overview       string
	ReleaseDate    string // YYYY-MM-DD, empty when unknown
	PosterPath     string
	Rating         float64
	CustomRating   string
	OfficialRating map[string]string // country code -> certification

	InLibrary    bool
	EmbyItemIDs  []string
	AssetDetails []AssetDetail
	LastSyncedAt *time.Time

	TotalEpisodes       int
	TotalEpisodesLocked bool

	WatchingStatus     WatchingStatus
	ForceEnded         bool
	PausedUntil        *time.Time
	NextEpisode        *NextEpisode
	MissingInfo        *MissingInfo
	ProviderStatus     string
	IsAiring           bool
	SubscriptionStatus string
	WatchlistCheckedAt *time.Time
	LastStatusChangeAt *time.Time
	UpgradePending     bool // completion upgrade still owed

	AddedAt   time.Time
	UpdatedAt time.Time
}

// Key returns the composite identity of the record.
func (r *Record) Key() Key {
	return Key{TMDBID: r.TMDBID, Type: r.Type}
}

// validate checks the structural invariants before a write.
func (r *Record) validate() error {
	if r.TMDBID == "" {
		return fmt.Errorf("%w: empty tmdb id", ErrConstraint)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown item type %q", ErrConstraint, r.Type)
	}
	if !r.Type.TopLevel() && (r.ParentSeriesTMDBID == nil || *r.ParentSeriesTMDBID == "") {
		return fmt.Errorf("%w: %s %s has no parent series", ErrConstraint, r.Type, r.TMDBID)
	}
	return nil
}
