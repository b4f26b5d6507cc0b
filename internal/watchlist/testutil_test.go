package watchlist

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/migrations"

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

// seedSeries stores an in-library series with the given status.
func seedSeries(t *testing.T, store *library.Store, tmdbID, title string, status library.WatchingStatus) *library.Record {
	t.Helper()
	_, err := store.Upsert(&library.Record{
		TMDBID:      tmdbID,
		Type:        library.EntitySeries,
		Title:       title,
		InLibrary:   true,
		EmbyItemIDs: []string{"item-" + tmdbID},
	})
	require.NoError(t, err)
	require.NoError(t, store.SetWatchingStatus(tmdbID, status))

	r, err := store.Get(library.Key{TMDBID: tmdbID, Type: library.EntitySeries})
	require.NoError(t, err)
	return r
}

// seedEpisode stores an in-library episode backed by one file.
func seedEpisode(t *testing.T, store *library.Store, seriesID string, season, episode int, resolution, group string) {
	t.Helper()
	parent := seriesID
	itemID := fmt.Sprintf("%s-s%02de%02d", seriesID, season, episode)
	_, err := store.Upsert(&library.Record{
		TMDBID:             itemID,
		Type:               library.EntityEpisode,
		ParentSeriesTMDBID: &parent,
		SeasonNumber:       &season,
		EpisodeNumber:      &episode,
		InLibrary:          true,
		EmbyItemIDs:        []string{itemID},
		AssetDetails: []library.AssetDetail{{
			EmbyItemID:   itemID,
			Resolution:   resolution,
			VideoCodec:   "hevc",
			ReleaseGroup: group,
		}},
	})
	require.NoError(t, err)
}
