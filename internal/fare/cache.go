package fare

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// Cache stores estimates keyed by the normalised address pair.
type Cache interface {
	Get(ctx context.Context, key string) (models.FareEstimate, bool)
	Set(ctx context.Context, key string, est models.FareEstimate)
}

func cacheKey(pickup, destination string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(pickup) + "->" + norm(destination)
}

// MemoryCache is a tiny in-process TTL cache.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	v  models.FareEstimate
	ts time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: make(map[string]cacheEntry), ttl: ttl, now: time.Now}
}

// Get returns the cached value and true if present and not expired.
func (c *MemoryCache) Get(_ context.Context, key string) (models.FareEstimate, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return models.FareEstimate{}, false
	}
	if c.now().Sub(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return models.FareEstimate{}, false
	}
	return e.v, true
}

func (c *MemoryCache) Set(_ context.Context, key string, est models.FareEstimate) {
	c.mu.Lock()
	c.store[key] = cacheEntry{v: est, ts: c.now()}
	c.mu.Unlock()
}
