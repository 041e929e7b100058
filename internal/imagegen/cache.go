package imagegen

import (
	"sync"
	"time"
)

// Cache holds the last rendered heatmap PNG for a short period, so bursts
// of requests between data refreshes reuse one render.
type Cache struct {
	mu        sync.RWMutex
	data      []byte
	expiresAt time.Time
	cacheTTL  time.Duration
}

// NewCache creates a render cache with the specified TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		cacheTTL: ttl,
	}
}

// Get returns the cached image if still valid.
func (c *Cache) Get() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

// Set stores a new image in the cache.
func (c *Cache) Set(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = data
	c.expiresAt = time.Now().Add(c.cacheTTL)
}
