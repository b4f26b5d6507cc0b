package events

import (
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qf-luck/emby-toolkit-sub001/internal/migrations"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)
	return db
}

// testEvent is a concrete event type for testing
type testEvent struct {
	BaseEvent
	Message string `json:"message"`
}

func TestEventLog_Append(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	e := &testEvent{BaseEvent: NewBaseEvent("test.created", EntitySeries, "1399"), Message: "hello"}
	id, err := log.Append(e)
	require.NoError(t, err)
	assert.Positive(t, id)

	events, err := log.ForEntity(EntitySeries, "1399")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Payload, `"message":"hello"`)
	assert.Equal(t, "test.created", events[0].EventType)
	assert.Equal(t, "1399", events[0].EntityID)
}

func TestEventLog_Since(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	for _, typ := range []string{"test.first", "test.second"} {
		_, err := log.Append(&testEvent{BaseEvent: NewBaseEvent(typ, EntitySeries, "1")})
		require.NoError(t, err)
	}

	events, err := log.Since(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "test.first", events[0].EventType)
	assert.Equal(t, "test.second", events[1].EventType)
}

func TestEventLog_ForEntity(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	for _, e := range []*testEvent{
		{BaseEvent: NewBaseEvent("test.one", EntitySeries, "1")},
		{BaseEvent: NewBaseEvent("test.two", EntitySeries, "2")},
		{BaseEvent: NewBaseEvent("test.three", EntitySeries, "1")},
	} {
		_, err := log.Append(e)
		require.NoError(t, err)
	}

	events, err := log.ForEntity(EntitySeries, "1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "test.one", events[0].EventType)
	assert.Equal(t, "test.three", events[1].EventType)
}

func TestEventLog_Prune(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	_, err := db.Exec(`
		INSERT INTO events (event_type, entity_type, entity_id, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		"test.old", EntitySeries, "1", `{}`, time.Now().Add(-100*24*time.Hour),
	)
	require.NoError(t, err)
	_, err = log.Append(&testEvent{BaseEvent: NewBaseEvent("test.new", EntitySeries, "2")})
	require.NoError(t, err)

	count, err := log.Prune(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	events, err := log.Since(time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "test.new", events[0].EventType)
}

func TestEventLog_Recent(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	for i := 1; i <= 5; i++ {
		_, err := log.Append(&ReconcileCompleted{
			BaseEvent: NewBaseEvent(EventReconcileCompleted, EntityCycle, strconv.Itoa(i)),
			Scanned:   i,
		})
		require.NoError(t, err)
	}
	_, err := log.Append(&testEvent{BaseEvent: NewBaseEvent("test.other", EntityCycle, "x")})
	require.NoError(t, err)

	events, err := log.Recent(EventReconcileCompleted, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "5", events[0].EntityID)
	assert.Equal(t, "3", events[2].EntityID)
}
