package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qf-luck/emby-toolkit-sub001/internal/emby"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/migrations"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intp(n int) *int { return &n }

// fakeServer serves a fixed catalog from memory.
type fakeServer struct {
	items    []emby.Item
	getCalls int
}

func (f *fakeServer) Items(_ context.Context, q emby.Query) iter.Seq2[emby.Item, error] {
	return func(yield func(emby.Item, error) bool) {
		for _, item := range f.items {
			if !slices.Contains(q.Types, item.Type) {
				continue
			}
			item.LibraryID = "lib-1"
			if !yield(item, nil) {
				return
			}
		}
	}
}

func (f *fakeServer) GetItems(_ context.Context, ids []string) ([]emby.Item, error) {
	f.getCalls++
	var out []emby.Item
	for _, item := range f.items {
		if slices.Contains(ids, item.ID) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeServer) Children(_ context.Context, seriesIDs, _ []string) iter.Seq2[emby.Item, error] {
	return func(yield func(emby.Item, error) bool) {
		for _, item := range f.items {
			if item.Type.TopLevel() || !slices.Contains(seriesIDs, item.SeriesID) {
				continue
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func (f *fakeServer) remove(id string) {
	f.items = slices.DeleteFunc(f.items, func(i emby.Item) bool { return i.ID == id })
}

func movieItem(id, tmdbID, name string) emby.Item {
	return emby.Item{
		ID:          id,
		Name:        name,
		Type:        emby.TypeMovie,
		ProviderIDs: map[string]string{"Tmdb": tmdbID},
		MediaSources: []emby.MediaSource{{
			ID:   id,
			Path: "/movies/" + name + ".2160p.WEB-DL.x265-GRP.mkv",
			Size: 8 << 30,
			MediaStreams: []emby.MediaStream{
				{Type: "Video", Codec: "hevc", Width: 3840, Height: 2160},
				{Type: "Audio", Language: "eng"},
				{Type: "Audio", Language: "eng"},
				{Type: "Subtitle", Language: "chi"},
			},
		}},
	}
}

func seriesItem(id, tmdbID, name string) emby.Item {
	return emby.Item{ID: id, Name: name, Type: emby.TypeSeries, ProviderIDs: map[string]string{"tmdb": tmdbID}}
}

func seasonItem(id, seriesID string, number int) emby.Item {
	return emby.Item{ID: id, Type: emby.TypeSeason, SeriesID: seriesID, ParentID: seriesID, IndexNumber: intp(number)}
}

func episodeItem(id, seriesID string, season, episode int) emby.Item {
	return emby.Item{
		ID:                id,
		Type:              emby.TypeEpisode,
		SeriesID:          seriesID,
		ParentIndexNumber: intp(season),
		IndexNumber:       intp(episode),
		MediaSources: []emby.MediaSource{{
			ID:           id,
			Path:         fmt.Sprintf("/tv/show/show.s%02de%02d.1080p.WEB-DL.x264-GRP.mkv", season, episode),
			MediaStreams: []emby.MediaStream{{Type: "Video", Codec: "h264", Width: 1920, Height: 1080}},
		}},
	}
}

// aggregate builds a one-season series with episodes numbered 1..n. Season
// 1 has id 101 and episode n has id 1000+n.
func aggregate(id int64, status string, episodes int) *tmdb.SeriesAggregate {
	season := &tmdb.Season{ID: 101, SeasonNumber: 1, Name: "Season 1"}
	for n := 1; n <= episodes; n++ {
		season.Episodes = append(season.Episodes, tmdb.Episode{
			ID:            int64(1000 + n),
			Name:          "Episode",
			SeasonNumber:  1,
			EpisodeNumber: n,
			AirDate:       fmt.Sprintf("2024-01-%02d", n),
		})
	}
	return &tmdb.SeriesAggregate{
		Series:  &tmdb.TV{ID: id, Name: "Show", Status: status},
		Seasons: []*tmdb.Season{season},
	}
}

func getRecord(t *testing.T, store *library.Store, id string, typ library.EntityType) *library.Record {
	t.Helper()
	r, err := store.Get(library.Key{TMDBID: id, Type: typ})
	require.NoError(t, err)
	return r
}
