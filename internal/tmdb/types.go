// Package tmdb provides a client for The Movie Database API.
package tmdb

import (
	"sort"
	"strconv"
	"time"
)

// Movie represents TMDB movie metadata.
type Movie struct {
	ID            int64        `json:"id"`
	IMDBID        string       `json:"imdb_id,omitempty"` // e.g., "tt0133093"
	Title         string       `json:"title"`
	OriginalTitle string       `json:"original_title"`
	Overview      string       `json:"overview"`
	ReleaseDate   string       `json:"release_date"` // "2024-03-01"
	PosterPath    string       `json:"poster_path"`  // "/abc123.jpg"
	VoteAverage   float64      `json:"vote_average"`
	Runtime       int          `json:"runtime"` // minutes
	Genres        []Genre      `json:"genres"`
	ReleaseDates  releaseDates `json:"release_dates"`
}

// Genre represents a movie or series genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type releaseDates struct {
	Results []struct {
		Country      string `json:"iso_3166_1"`
		ReleaseDates []struct {
			Certification string `json:"certification"`
		} `json:"release_dates"`
	} `json:"results"`
}

// Certifications returns the first non-empty certification per country.
func (m *Movie) Certifications() map[string]string {
	out := make(map[string]string)
	for _, r := range m.ReleaseDates.Results {
		for _, d := range r.ReleaseDates {
			if d.Certification != "" {
				out[r.Country] = d.Certification
				break
			}
		}
	}
	return out
}

// Year extracts the year from ReleaseDate.
func (m *Movie) Year() int {
	return yearOf(m.ReleaseDate)
}

// TV represents TMDB series metadata.
type TV struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	OriginalName     string          `json:"original_name"`
	Overview         string          `json:"overview"`
	FirstAirDate     string          `json:"first_air_date"`
	PosterPath       string          `json:"poster_path"`
	VoteAverage      float64         `json:"vote_average"`
	Status           string          `json:"status"` // "Returning Series", "Ended", "Canceled", ...
	InProduction     bool            `json:"in_production"`
	NumberOfEpisodes int             `json:"number_of_episodes"`
	NumberOfSeasons  int             `json:"number_of_seasons"`
	LastEpisodeToAir *Episode        `json:"last_episode_to_air"`
	NextEpisodeToAir *Episode        `json:"next_episode_to_air"`
	Seasons          []SeasonSummary `json:"seasons"`
	Genres           []Genre         `json:"genres"`
	ContentRatings   contentRatings  `json:"content_ratings"`
}

type contentRatings struct {
	Results []struct {
		Country string `json:"iso_3166_1"`
		Rating  string `json:"rating"`
	} `json:"results"`
}

// Certifications returns the content rating per country.
func (t *TV) Certifications() map[string]string {
	out := make(map[string]string)
	for _, r := range t.ContentRatings.Results {
		if r.Rating != "" {
			out[r.Country] = r.Rating
		}
	}
	return out
}

// SeasonSummary is the per-season entry embedded in a TV response.
type SeasonSummary struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
	PosterPath   string `json:"poster_path"`
}

// Season represents a full TMDB season including its episodes.
type Season struct {
	ID           int64     `json:"id"`
	SeasonNumber int       `json:"season_number"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview"`
	AirDate      string    `json:"air_date"`
	PosterPath   string    `json:"poster_path"`
	VoteAverage  float64   `json:"vote_average"`
	Episodes     []Episode `json:"episodes"`
}

// Episode represents a TMDB episode.
type Episode struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// Aired returns the parsed air date, or false when unknown.
func (e *Episode) Aired() (time.Time, bool) {
	return ParseDate(e.AirDate)
}

// SeriesAggregate is a series together with every season and episode.
type SeriesAggregate struct {
	Series  *TV       `json:"series"`
	Seasons []*Season `json:"seasons"` // ascending by season number, specials excluded
}

// Episodes returns every episode of the aggregate in (season, episode) order.
func (a *SeriesAggregate) Episodes() []Episode {
	var out []Episode
	for _, s := range a.Seasons {
		out = append(out, s.Episodes...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SeasonNumber != out[j].SeasonNumber {
			return out[i].SeasonNumber < out[j].SeasonNumber
		}
		return out[i].EpisodeNumber < out[j].EpisodeNumber
	})
	return out
}

// ParseDate parses a TMDB date ("2006-01-02") in UTC.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// PosterURL returns the full image URL for a poster path.
// Size can be: w92, w154, w185, w342, w500, w780, original
func PosterURL(path, size string) string {
	if path == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/" + size + path
}
