package library

import (
	"database/sql"
	"testing"

	"github.com/qf-luck/emby-toolkit-sub001/internal/migrations"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// ptr is a helper to create pointer to value
func ptr[T any](v T) *T {
	return &v
}

func series(id, title string) *Record {
	return &Record{TMDBID: id, Type: EntitySeries, Title: title, InLibrary: true, EmbyItemIDs: []string{"emby-" + id}}
}

func episode(seriesID, id string, season, ep int, inLibrary bool) *Record {
	r := &Record{
		TMDBID:             id,
		Type:               EntityEpisode,
		ParentSeriesTMDBID: ptr(seriesID),
		SeasonNumber:       ptr(season),
		EpisodeNumber:      ptr(ep),
		Title:              "Episode",
		InLibrary:          inLibrary,
	}
	if inLibrary {
		r.EmbyItemIDs = []string{"emby-" + id}
	}
	return r
}
