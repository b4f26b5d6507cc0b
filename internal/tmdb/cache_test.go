package tmdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSetDelete(t *testing.T) {
	c := newCache[*Movie](time.Hour)

	_, ok := c.get(12345)
	assert.False(t, ok, "empty cache should miss")

	c.set(12345, &Movie{ID: 12345, Title: "Test Movie"})
	got, ok := c.get(12345)
	require.True(t, ok, "should hit after set")
	assert.Equal(t, "Test Movie", got.Title)

	_, ok = c.get(99999)
	assert.False(t, ok, "different ID should miss")

	c.delete(12345)
	_, ok = c.get(12345)
	assert.False(t, ok, "should miss after delete")
}

func TestCache_Expiry(t *testing.T) {
	c := newCache[*Movie](10 * time.Millisecond)

	c.set(12345, &Movie{ID: 12345, Title: "Test"})
	_, ok := c.get(12345)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.get(12345)
	assert.False(t, ok, "should miss after TTL")
}
