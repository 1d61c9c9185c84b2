package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"Agent311/internal/render"
)

// CachedPlan represents a parsed message kept for redraws
type CachedPlan struct {
	Plan      render.Plan
	Timestamp time.Time
}

// GenerateCacheKey generates a cache key from message content
func GenerateCacheKey(content string) string {
	h := sha256.New()
	h.Write([]byte(content))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// MaxIdle is how long a plan may go unused before Prune drops it.
const MaxIdle = 30 * time.Minute

// PlanCache memoizes render.Parse for finalized messages. The front ends
// redraw every message on each frame, so parsing is keyed by content hash.
type PlanCache struct {
	entries sync.Map
	hits    int64
	mu      sync.Mutex
	now     func() time.Time
}

func NewPlanCache() *PlanCache {
	return &PlanCache{now: time.Now}
}

// Plan returns the render plan for content, parsing it on first use.
func (c *PlanCache) Plan(content string) render.Plan {
	key := GenerateCacheKey(content)
	if val, ok := c.entries.Load(key); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		cached := val.(CachedPlan)
		cached.Timestamp = c.now()
		c.entries.Store(key, cached)
		return cached.Plan
	}

	plan := render.Parse(content)
	c.entries.Store(key, CachedPlan{
		Plan:      plan,
		Timestamp: c.now(),
	})
	return plan
}

// Hits returns the number of lookups served from the cache
func (c *PlanCache) Hits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Prune drops entries not used within maxAge
func (c *PlanCache) Prune(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)
	removed := 0
	c.entries.Range(func(key, val interface{}) bool {
		if val.(CachedPlan).Timestamp.Before(cutoff) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
