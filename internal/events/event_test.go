package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseEvent_ImplementsEvent(t *testing.T) {
	now := time.Now()
	e := BaseEvent{Type: "test.event", Entity: EntitySeries, ID: "1399", Timestamp: now}

	assert.Equal(t, "test.event", e.EventType())
	assert.Equal(t, EntitySeries, e.EntityType())
	assert.Equal(t, "1399", e.EntityID())
	assert.Equal(t, now, e.OccurredAt())
}

func TestNewBaseEvent(t *testing.T) {
	e := NewBaseEvent(EventSeriesCompleted, EntitySeries, "1399")

	assert.Equal(t, EventSeriesCompleted, e.EventType())
	assert.Equal(t, "1399", e.EntityID())
	assert.False(t, e.OccurredAt().IsZero())
}
