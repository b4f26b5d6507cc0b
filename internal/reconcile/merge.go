package reconcile

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/qf-luck/emby-toolkit-sub001/internal/emby"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
	"github.com/qf-luck/emby-toolkit-sub001/pkg/release"
)

// group is the merged record set of one dirty key: the top-level record
// and, for series, every season and episode currently in the library.
type group struct {
	top      *library.Record
	children []*library.Record
}

// merger turns local items plus provider metadata into records.
type merger struct {
	libraryOf     map[string]string
	ratingCountry string
	ratingMap     map[string]string
	log           *slog.Logger
}

func (m *merger) movie(key library.Key, items []emby.Item, movie *tmdb.Movie) *group {
	local := &items[0]
	if match := release.MatchTitle(local.Name, []string{movie.Title, movie.OriginalTitle}); match.Confidence == release.ConfidenceNone {
		m.log.Warn("local title differs from provider", "key", key.String(), "local", local.Name, "provider", movie.Title)
	}

	r := &library.Record{
		TMDBID:         key.TMDBID,
		Type:           library.EntityMovie,
		Title:          firstNonEmpty(movie.Title, local.Name),
		OriginalTitle:  firstNonEmpty(movie.OriginalTitle, local.OriginalTitle),
		Overview:       firstNonEmpty(movie.Overview, local.Overview),
		ReleaseDate:    firstNonEmpty(movie.ReleaseDate, localDate(local.PremiereDate)),
		PosterPath:     movie.PosterPath,
		Rating:         movie.VoteAverage,
		OfficialRating: m.ratings(movie.Certifications(), local.OfficialRating),
		InLibrary:      true,
		EmbyItemIDs:    itemIDs(items),
		AssetDetails:   m.assets(items),
	}
	return &group{top: r}
}

func (m *merger) series(key library.Key, items []emby.Item, children []emby.Item, agg *tmdb.SeriesAggregate, extra map[episodeRef]*tmdb.Episode) *group {
	local := &items[0]
	tv := agg.Series

	r := &library.Record{
		TMDBID:         key.TMDBID,
		Type:           library.EntitySeries,
		Title:          firstNonEmpty(tv.Name, local.Name),
		OriginalTitle:  firstNonEmpty(tv.OriginalName, local.OriginalTitle),
		Overview:       firstNonEmpty(tv.Overview, local.Overview),
		ReleaseDate:    firstNonEmpty(tv.FirstAirDate, localDate(local.PremiereDate)),
		PosterPath:     tv.PosterPath,
		Rating:         tv.VoteAverage,
		OfficialRating: m.ratings(tv.Certifications(), local.OfficialRating),
		InLibrary:      true,
		EmbyItemIDs:    itemIDs(items),
		TotalEpisodes:  len(agg.Episodes()),
		ProviderStatus: tv.Status,
	}
	return &group{top: r, children: m.children(key.TMDBID, children, agg, extra)}
}

type childSlot struct {
	season, episode int
	typ             library.EntityType
}

// children merges the season and episode items of one series. Copies of the
// same episode collapse into one record. Episodes missing from the aggregate
// are matched against extra. Children the provider does not know get a
// synthetic id derived from their position so reruns stay stable.
func (m *merger) children(seriesID string, items []emby.Item, agg *tmdb.SeriesAggregate, extra map[episodeRef]*tmdb.Episode) []*library.Record {
	slots := make(map[childSlot][]emby.Item)
	for _, item := range items {
		season, episode, ok := childNumbers(&item)
		if !ok {
			continue
		}
		slot := childSlot{season: season, episode: episode, typ: library.EntitySeason}
		if item.Type == emby.TypeEpisode {
			slot.typ = library.EntityEpisode
		}
		slots[slot] = append(slots[slot], item)
	}
	// Seasons the server lists only through their episodes.
	for slot := range slots {
		if slot.typ == library.EntityEpisode {
			s := childSlot{season: slot.season, typ: library.EntitySeason}
			if _, ok := slots[s]; !ok {
				slots[s] = nil
			}
		}
	}

	seasons := make(map[int]*tmdb.Season, len(agg.Seasons))
	for _, s := range agg.Seasons {
		seasons[s.SeasonNumber] = s
	}

	out := make([]*library.Record, 0, len(slots))
	for slot, group := range slots {
		parent := seriesID
		season := slot.season
		r := &library.Record{
			Type:               slot.typ,
			ParentSeriesTMDBID: &parent,
			SeasonNumber:       &season,
			InLibrary:          true,
			EmbyItemIDs:        itemIDs(group),
		}
		if len(group) > 0 {
			r.Title = group[0].Name
			r.Overview = group[0].Overview
			r.ReleaseDate = localDate(group[0].PremiereDate)
		}

		ps := seasons[slot.season]
		switch slot.typ {
		case library.EntitySeason:
			r.TMDBID = fmt.Sprintf("%s_S%d", seriesID, slot.season)
			if ps != nil {
				r.TMDBID = strconv.FormatInt(ps.ID, 10)
				r.Title = firstNonEmpty(ps.Name, r.Title)
				r.Overview = firstNonEmpty(ps.Overview, r.Overview)
				r.ReleaseDate = firstNonEmpty(ps.AirDate, r.ReleaseDate)
				r.PosterPath = ps.PosterPath
				r.Rating = ps.VoteAverage
				r.TotalEpisodes = len(ps.Episodes)
			}
		case library.EntityEpisode:
			episode := slot.episode
			r.EpisodeNumber = &episode
			r.TMDBID = fmt.Sprintf("%s_S%dE%d", seriesID, slot.season, slot.episode)
			r.AssetDetails = m.assets(group)
			pe := findEpisode(ps, slot.episode)
			if pe == nil {
				pe = extra[episodeRef{season: slot.season, episode: slot.episode}]
			}
			if pe != nil {
				r.TMDBID = strconv.FormatInt(pe.ID, 10)
				r.Title = firstNonEmpty(pe.Name, r.Title)
				r.Overview = firstNonEmpty(pe.Overview, r.Overview)
				r.ReleaseDate = firstNonEmpty(pe.AirDate, r.ReleaseDate)
				r.PosterPath = pe.StillPath
				r.Rating = pe.VoteAverage
			}
		}
		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b *library.Record) int {
		if d := *a.SeasonNumber - *b.SeasonNumber; d != 0 {
			return d
		}
		return episodeOf(a) - episodeOf(b)
	})
	return out
}

func findSeason(agg *tmdb.SeriesAggregate, number int) *tmdb.Season {
	for _, s := range agg.Seasons {
		if s.SeasonNumber == number {
			return s
		}
	}
	return nil
}

func findEpisode(s *tmdb.Season, number int) *tmdb.Episode {
	if s == nil {
		return nil
	}
	for i := range s.Episodes {
		if s.Episodes[i].EpisodeNumber == number {
			return &s.Episodes[i]
		}
	}
	return nil
}

func episodeOf(r *library.Record) int {
	if r.EpisodeNumber == nil {
		return 0
	}
	return *r.EpisodeNumber
}

// ratings returns the certification per country with the configured
// country filled in: directly, through the rating map, or from the local
// item as a last resort.
func (m *merger) ratings(certs map[string]string, local string) map[string]string {
	out := make(map[string]string, len(certs)+1)
	for k, v := range certs {
		out[k] = v
	}
	if m.ratingCountry == "" || out[m.ratingCountry] != "" {
		return out
	}

	countries := make([]string, 0, len(certs))
	for k := range certs {
		countries = append(countries, k)
	}
	slices.Sort(countries)
	for _, c := range countries {
		if mapped, ok := m.ratingMap[c+":"+certs[c]]; ok {
			out[m.ratingCountry] = mapped
			return out
		}
	}
	if local != "" {
		out[m.ratingCountry] = local
	}
	return out
}

// assets describes every media source of the items.
func (m *merger) assets(items []emby.Item) []library.AssetDetail {
	var out []library.AssetDetail
	for _, item := range items {
		for i := range item.MediaSources {
			src := &item.MediaSources[i]
			path := firstNonEmpty(src.Path, item.Path)
			parsed := release.Parse(path)

			a := library.AssetDetail{
				EmbyItemID:      item.ID,
				Path:            path,
				Resolution:      parsed.Resolution,
				VideoCodec:      parsed.Codec,
				ReleaseGroup:    parsed.Group,
				SourceLibraryID: m.libraryOf[item.ID],
				SizeBytes:       src.Size,
			}
			if video := src.Streams("Video"); len(video) > 0 {
				if res := release.ResolutionFromSize(video[0].Width, video[0].Height); res != "" {
					a.Resolution = res
				}
				if codec := release.NormalizeCodec(video[0].Codec); codec != "" {
					a.VideoCodec = codec
				}
			}
			a.AudioLanguages = languages(src.Streams("Audio"))
			a.SubtitleLanguages = languages(src.Streams("Subtitle"))
			out = append(out, a)
		}
	}
	return out
}

func languages(streams []emby.MediaStream) []string {
	var out []string
	for _, s := range streams {
		if s.Language != "" && !slices.Contains(out, s.Language) {
			out = append(out, s.Language)
		}
	}
	return out
}

func itemIDs(items []emby.Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !slices.Contains(ids, item.ID) {
			ids = append(ids, item.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

// localDate trims a server timestamp to its date.
func localDate(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
