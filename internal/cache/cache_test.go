package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	c, err := New(10, time.Minute)
	require.NoError(t, err)

	key := Key("how many errors today?", 50)
	c.Set(key, map[string]any{"count": 3})

	result, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 3, result["count"])
}

func TestGetMissIncrementsMisses(t *testing.T) {
	c, err := New(10, time.Minute)
	require.NoError(t, err)

	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestExpiredEntryEvictedOnAccess(t *testing.T) {
	c, err := New(10, time.Millisecond)
	require.NoError(t, err)

	key := Key("q", 10)
	c.Set(key, map[string]any{"x": 1})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestEvictsLowestAccessCountWhenFull(t *testing.T) {
	c, err := New(2, time.Hour)
	require.NoError(t, err)

	c.Set("a", map[string]any{"v": 1})
	c.Set("b", map[string]any{"v": 2})

	// Access "a" twice so it has a higher access count than "b".
	c.Get("a")
	c.Get("a")

	c.Set("c", map[string]any{"v": 3})

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")

	assert.True(t, aOK, "higher access-count entry should survive eviction")
	assert.False(t, bOK, "lowest access-count entry should be evicted")
	assert.True(t, cOK)
}

func TestInvalidateAll(t *testing.T) {
	c, err := New(10, time.Hour)
	require.NoError(t, err)

	c.Set("a", map[string]any{"v": 1})
	c.Set("b", map[string]any{"v": 2})
	c.InvalidateAll()

	assert.Equal(t, 0, c.Len())
}

func TestKeyIsDeterministicPerQuestionAndMaxResults(t *testing.T) {
	k1 := Key("same question", 100)
	k2 := Key("same question", 100)
	k3 := Key("same question", 50)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
