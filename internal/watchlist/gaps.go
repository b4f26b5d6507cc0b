package watchlist

import (
	"slices"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

// NextEpisode returns the first provider episode, in (season, episode)
// order, that is not in the library. Seasons older than the newest local
// season that have no local episodes at all were skipped on purpose and
// are passed over. Returns nil when nothing is wanted.
func NextEpisode(episodes []tmdb.Episode, inv Inventory) *library.NextEpisode {
	newestLocal := 0
	for s, eps := range inv {
		if len(eps) > 0 && s > newestLocal {
			newestLocal = s
		}
	}

	for _, e := range sortedEpisodes(episodes) {
		if e.SeasonNumber < newestLocal && inv.Count(e.SeasonNumber) == 0 {
			continue
		}
		if !inv.Has(e.SeasonNumber, e.EpisodeNumber) {
			return &library.NextEpisode{
				Season:  e.SeasonNumber,
				Episode: e.EpisodeNumber,
				Title:   e.Name,
				AirDate: e.AirDate,
			}
		}
	}
	return nil
}

// Missing summarises every provider season absent from the library and,
// within the seasons present, every absent episode. Unlike NextEpisode it
// skips nothing.
func Missing(episodes []tmdb.Episode, inv Inventory) *library.MissingInfo {
	info := &library.MissingInfo{Episodes: make(map[int][]int)}
	for _, e := range sortedEpisodes(episodes) {
		switch {
		case inv.Count(e.SeasonNumber) == 0:
			if !slices.Contains(info.Seasons, e.SeasonNumber) {
				info.Seasons = append(info.Seasons, e.SeasonNumber)
			}
		case !inv.Has(e.SeasonNumber, e.EpisodeNumber):
			info.Episodes[e.SeasonNumber] = append(info.Episodes[e.SeasonNumber], e.EpisodeNumber)
		}
	}
	if len(info.Episodes) == 0 {
		info.Episodes = nil
	}
	return info
}

func sortedEpisodes(episodes []tmdb.Episode) []tmdb.Episode {
	out := slices.Clone(episodes)
	slices.SortStableFunc(out, func(a, b tmdb.Episode) int {
		if a.SeasonNumber != b.SeasonNumber {
			return a.SeasonNumber - b.SeasonNumber
		}
		return a.EpisodeNumber - b.EpisodeNumber
	})
	return out
}
