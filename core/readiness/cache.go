package readiness

import (
	"sync"
	"time"
)

// resultCache is the short time-bounded staleness window over computed rows.
// There is no push invalidation; entries simply expire.
type resultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rows      []ClientReadiness
	expiresAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *resultCache) get(key string, now time.Time) ([]ClientReadiness, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	return entry.rows, true
}

func (c *resultCache) set(key string, rows []ClientReadiness, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{rows: rows, expiresAt: now.Add(c.ttl)}
}
