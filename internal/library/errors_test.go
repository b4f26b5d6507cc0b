package library

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetWatchingStatus_Offline(t *testing.T) {
	store := NewStore(setupTestDB(t))

	for _, id := range []string{"1399", "2316"} {
		_, err := store.Upsert(series(id, "Show "+id))
		require.NoError(t, err)
	}
	require.NoError(t, store.SetWatchingStatus("2316", StatusWatching))
	_, err := store.MarkOffline([]Key{
		{TMDBID: "1399", Type: EntitySeries},
		{TMDBID: "2316", Type: EntitySeries},
	})
	require.NoError(t, err)

	err = store.SetWatchingStatus("1399", StatusWatching)
	assert.ErrorIs(t, err, ErrOffline)
	assert.ErrorContains(t, err, "1399")

	// already tracked before it went offline
	require.NoError(t, store.SetWatchingStatus("2316", StatusPaused))
	// dropping from the watchlist always works
	require.NoError(t, store.SetWatchingStatus("1399", StatusNone))

	assert.ErrorIs(t, store.SetWatchingStatus("404", StatusWatching), ErrNotFound)
}

func TestMapSQLiteError(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"UNIQUE constraint failed: media_metadata.tmdb_id, media_metadata.item_type", ErrDuplicate},
		{"CHECK constraint failed: in_library = 1 OR (emby_item_ids_json = '[]')", ErrConstraint},
		{"NOT NULL constraint failed: media_metadata.added_at", ErrConstraint},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, mapSQLiteError(errors.New(tt.msg)), tt.want, tt.msg)
	}

	assert.ErrorIs(t, mapSQLiteError(sql.ErrNoRows), ErrNotFound)
	assert.NoError(t, mapSQLiteError(nil))

	busy := errors.New("database is locked")
	assert.Equal(t, busy, mapSQLiteError(busy))
}
