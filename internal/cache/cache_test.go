package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, GenerateCacheKey("a"), GenerateCacheKey("a"))
	assert.NotEqual(t, GenerateCacheKey("a"), GenerateCacheKey("b"))
	assert.Len(t, GenerateCacheKey(""), 64)
}

func TestPlanCacheHits(t *testing.T) {
	c := NewPlanCache()
	text := "hello [Using tool: Read a.txt]"

	first := c.Plan(text)
	second := c.Plan(text)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), c.Hits())
	assert.Equal(t, "hello", first.Prose())
}

func TestPlanCachePrune(t *testing.T) {
	c := NewPlanCache()
	c.Plan("one")
	c.Plan("two")

	assert.Equal(t, 0, c.Prune(time.Hour))
	assert.Equal(t, 2, c.Prune(-time.Second))

	c.Plan("one")
	assert.Equal(t, int64(0), c.Hits())
}

func TestPlanCachePruneKeepsRecentlyUsed(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewPlanCache()
	c.now = func() time.Time { return clock }

	c.Plan("old")
	c.Plan("busy")
	clock = clock.Add(20 * time.Minute)
	c.Plan("busy")
	clock = clock.Add(20 * time.Minute)

	assert.Equal(t, 1, c.Prune(MaxIdle))

	hits := c.Hits()
	c.Plan("busy")
	assert.Equal(t, hits+1, c.Hits())
	c.Plan("old")
	assert.Equal(t, hits+1, c.Hits())
}
