package api

import (
	"sync"
	"time"
)

const maxCacheEntries = 256

// Cache stores rendered responses for the hot read endpoints. Implementations
// must be safe for concurrent use; the server never caches errors.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Clear()
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a fixed-TTL in-memory Cache. Expired entries are dropped
// lazily on read and swept when the map grows past maxCacheEntries.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

var _ Cache = (*TTLCache)(nil)

// NewTTLCache creates a cache whose entries expire ttl after being set.
func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &TTLCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)

		return nil, false
	}

	return entry.value, true
}

func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= maxCacheEntries {
		c.sweep()
	}

	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

// sweep drops expired entries; if the map is still full afterwards it is
// reset outright, so arbitrary filter permutations cannot grow it without
// bound.
func (c *TTLCache) sweep() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) >= maxCacheEntries {
		c.entries = make(map[string]cacheEntry)
	}
}
