package nasaapi

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/metrics"
)

// responseCache is an in-memory cache of raw response bodies keyed by the
// exact request URL. Entries expire after the configured TTL and are never
// treated as authoritative past it. Safe for concurrent use.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration

	// Counters (lock-free).
	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		c.misses.Add(1)
		metrics.IncCacheMiss()
		return nil, false
	}

	c.hits.Add(1)
	metrics.IncCacheHit()
	return entry.body, true
}

func (c *responseCache) put(key string, body []byte) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict expired entries opportunistically so the map does not grow
	// without bound across distinct query parameters.
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{
		body:      body,
		expiresAt: now.Add(c.ttl),
	}
}

// Stats returns hit and miss counts since startup.
func (c *responseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
