package fetch

import (
	"sync"
	"time"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
)

type cacheEntry struct {
	result   catalog.FetchResult
	storedAt time.Time
}

// responseCache is a URL-keyed cache with a fixed time-to-live. Hits bypass
// both the rate limiter and the network.
type responseCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *responseCache) get(url string) (catalog.FetchResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok {
		return catalog.FetchResult{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, url)
		c.mu.Unlock()
		return catalog.FetchResult{}, false
	}
	return entry.result, true
}

func (c *responseCache) put(url string, result catalog.FetchResult) {
	c.mu.Lock()
	c.entries[url] = cacheEntry{result: result, storedAt: c.now()}
	c.mu.Unlock()
}
