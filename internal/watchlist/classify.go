// Package watchlist keeps the watching status of tracked series current:
// it classifies each series from provider and local data, derives the next
// wanted episode and the gaps, and mirrors the result to the download
// automation service.
package watchlist

import (
	"time"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

// Thresholds tune the classifier.
type Thresholds struct {
	AutoPauseDays              int // next episode this far away pauses the series; 0 never pauses
	AutoPendingDays            int // newest season aired within this window may be pending; 0 disables
	AutoPendingEpisodeCount    int // ...when it lists at most this many episodes
	AggressiveEpisodeThreshold int // seasons longer than this complete on episode arithmetic; 0 disables
}

// Provider lifecycle statuses that end a series.
const (
	providerEnded    = "Ended"
	providerCanceled = "Canceled"
)

const (
	// A finale season this short that aired this recently is assumed to be
	// missing episodes upstream.
	lagSeasonEpisodes = 3
	lagWindow         = 7 * 24 * time.Hour
)

// Inventory is the set of local episode numbers per season.
type Inventory map[int][]int

// Has reports whether the episode is present locally.
func (inv Inventory) Has(season, episode int) bool {
	for _, e := range inv[season] {
		if e == episode {
			return true
		}
	}
	return false
}

// Count returns the number of local episodes of a season.
func (inv Inventory) Count(season int) int {
	return len(inv[season])
}

// Input is everything the classifier looks at for one series.
type Input struct {
	Aggregate  *tmdb.SeriesAggregate
	Inventory  Inventory
	ForceEnded bool
}

// Decision is the classifier's verdict.
type Decision struct {
	Status      library.WatchingStatus
	PausedUntil *time.Time
	Reason      string
}

// Airing reports whether the series is still expected to get episodes.
func (d Decision) Airing() bool {
	return d.Status.Active()
}

// Classify decides the watching status of one series. It is deterministic
// for a given input and day and never fails: a series without any date
// signal is Watching.
func Classify(in Input, th Thresholds, now time.Time) Decision {
	today := day(now)
	d := classify(in, th, today)

	if pending(in.Aggregate, th, today) {
		d = Decision{Status: library.StatusPending, Reason: "new season"}
	}
	if in.ForceEnded {
		d = Decision{Status: library.StatusCompleted, Reason: "force ended"}
	}
	return d
}

func classify(in Input, th Thresholds, today time.Time) Decision {
	agg := in.Aggregate
	last := lastAired(agg, today)
	next := nextToAir(agg, today)

	if last != nil && th.AggressiveEpisodeThreshold > 0 {
		total := seasonEpisodes(agg, last.SeasonNumber)
		aired, _ := last.Aired()
		if total > th.AggressiveEpisodeThreshold &&
			((last.EpisodeNumber >= total && !aired.After(today)) || in.Inventory.Count(last.SeasonNumber) >= total) {
			return completed("episode count reached")
		}
	}

	switch agg.Series.Status {
	case providerEnded, providerCanceled:
		return completed("provider " + agg.Series.Status)
	}

	if last == nil && next == nil {
		return Decision{Status: library.StatusWatching, Reason: "no air dates"}
	}

	if next == nil {
		total := seasonEpisodes(agg, last.SeasonNumber)
		if last.EpisodeNumber >= total {
			aired, _ := last.Aired()
			if total <= lagSeasonEpisodes && today.Sub(aired) <= lagWindow {
				return Decision{Status: library.StatusWatching, Reason: "short finale, waiting for provider"}
			}
			return completed("season finale aired")
		}
	}

	if next != nil {
		if in.Inventory.Count(next.SeasonNumber) == 0 {
			return completed("next season not in library")
		}
		airs, _ := next.Aired()
		if th.AutoPauseDays > 0 && airs.Sub(today) >= time.Duration(th.AutoPauseDays)*24*time.Hour {
			return Decision{Status: library.StatusPaused, PausedUntil: &airs, Reason: "next episode far away"}
		}
		return Decision{Status: library.StatusWatching, Reason: "next episode soon"}
	}

	if last.EpisodeNumber < seasonEpisodes(agg, last.SeasonNumber) {
		return Decision{Status: library.StatusWatching, Reason: "season incomplete upstream"}
	}
	return completed("nothing left to air")
}

func completed(reason string) Decision {
	return Decision{Status: library.StatusCompleted, Reason: reason}
}

// pending reports whether the series is in a newest season that started
// recently and is still short.
func pending(agg *tmdb.SeriesAggregate, th Thresholds, today time.Time) bool {
	if th.AutoPendingDays <= 0 || len(agg.Seasons) == 0 {
		return false
	}
	newest := agg.Seasons[len(agg.Seasons)-1]
	if last := lastAired(agg, today); last != nil && last.SeasonNumber != newest.SeasonNumber {
		return false
	}
	aired, ok := tmdb.ParseDate(newest.AirDate)
	if !ok {
		return false
	}
	if today.Sub(aired) > time.Duration(th.AutoPendingDays)*24*time.Hour {
		return false
	}
	return len(newest.Episodes) <= th.AutoPendingEpisodeCount
}

// lastAired returns the provider's last aired episode, or the latest
// episode of the list that aired by today.
func lastAired(agg *tmdb.SeriesAggregate, today time.Time) *tmdb.Episode {
	if e := agg.Series.LastEpisodeToAir; e != nil && e.SeasonNumber > 0 {
		if aired, ok := e.Aired(); ok && !aired.After(today) {
			return e
		}
	}
	var last *tmdb.Episode
	for _, e := range agg.Episodes() {
		if aired, ok := e.Aired(); ok && !aired.After(today) {
			last = &e
		}
	}
	return last
}

// nextToAir returns the first dated episode airing after today.
func nextToAir(agg *tmdb.SeriesAggregate, today time.Time) *tmdb.Episode {
	if e := agg.Series.NextEpisodeToAir; e != nil && e.SeasonNumber > 0 {
		if airs, ok := e.Aired(); ok && airs.After(today) {
			return e
		}
	}
	for _, e := range agg.Episodes() {
		if airs, ok := e.Aired(); ok && airs.After(today) {
			return &e
		}
	}
	return nil
}

// seasonEpisodes returns the provider's episode count for a season.
func seasonEpisodes(agg *tmdb.SeriesAggregate, season int) int {
	for _, s := range agg.Seasons {
		if s.SeasonNumber == season {
			return len(s.Episodes)
		}
	}
	for _, s := range agg.Series.Seasons {
		if s.SeasonNumber == season {
			return s.EpisodeCount
		}
	}
	return 0
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
