// Package emby provides a client for the Emby media server REST API.
package emby

import (
	"strings"
)

// ItemType is the Emby item type name.
type ItemType string

// Item types the toolkit consumes.
const (
	TypeMovie   ItemType = "Movie"
	TypeSeries  ItemType = "Series"
	TypeSeason  ItemType = "Season"
	TypeEpisode ItemType = "Episode"
)

// TopLevel reports whether the type is a Movie or Series.
func (t ItemType) TopLevel() bool {
	return t == TypeMovie || t == TypeSeries
}

// Item is one catalog entry as returned by the Items endpoints.
type Item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	OriginalTitle     string            `json:"OriginalTitle,omitempty"`
	Type              ItemType          `json:"Type"`
	ParentID          string            `json:"ParentId,omitempty"`
	SeriesID          string            `json:"SeriesId,omitempty"`
	SeasonID          string            `json:"SeasonId,omitempty"`
	ParentIndexNumber *int              `json:"ParentIndexNumber,omitempty"` // season number for episodes
	IndexNumber       *int              `json:"IndexNumber,omitempty"`
	ProviderIDs       map[string]string `json:"ProviderIds,omitempty"`
	Path              string            `json:"Path,omitempty"`
	Overview          string            `json:"Overview,omitempty"`
	PremiereDate      string            `json:"PremiereDate,omitempty"`
	ProductionYear    int               `json:"ProductionYear,omitempty"`
	OfficialRating    string            `json:"OfficialRating,omitempty"`
	CommunityRating   float64           `json:"CommunityRating,omitempty"`
	MediaSources      []MediaSource     `json:"MediaSources,omitempty"`

	// LibraryID is the library the item was listed from. Set by the client
	// during library scans, never sent by the server.
	LibraryID string `json:"-"`
}

// TMDBID returns the item's TMDB provider id, or "" when absent.
// Emby is inconsistent about the key's case.
func (i *Item) TMDBID() string {
	for k, v := range i.ProviderIDs {
		if strings.EqualFold(k, "tmdb") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// MediaSource is one physical file backing an item.
type MediaSource struct {
	ID           string        `json:"Id"`
	Path         string        `json:"Path"`
	Container    string        `json:"Container,omitempty"`
	Size         int64         `json:"Size,omitempty"`
	MediaStreams []MediaStream `json:"MediaStreams,omitempty"`
}

// MediaStream is a video, audio or subtitle stream of a media source.
type MediaStream struct {
	Type     string `json:"Type"` // "Video", "Audio", "Subtitle"
	Codec    string `json:"Codec,omitempty"`
	Language string `json:"Language,omitempty"`
	Width    int    `json:"Width,omitempty"`
	Height   int    `json:"Height,omitempty"`
}

// Streams returns the streams of the given type.
func (s *MediaSource) Streams(kind string) []MediaStream {
	var out []MediaStream
	for _, st := range s.MediaStreams {
		if strings.EqualFold(st.Type, kind) {
			out = append(out, st)
		}
	}
	return out
}

// itemsResponse is the paged envelope of the Items endpoints.
type itemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// Query selects items for a listing.
type Query struct {
	LibraryIDs []string   // empty lists from the user root
	Types      []ItemType // IncludeItemTypes
	Fields     []string   // Fields projection
}

// ScanFields is the projection used for catalog scans: identifiers only.
var ScanFields = []string{"ProviderIds", "ParentId", "SeriesId"}

// DetailFields is the projection used when an item is re-fetched for merging.
var DetailFields = []string{
	"ProviderIds", "ParentId", "SeriesId", "SeasonId", "Path", "Overview",
	"PremiereDate", "ProductionYear", "OfficialRating", "CommunityRating",
	"OriginalTitle", "MediaSources", "MediaStreams",
}
