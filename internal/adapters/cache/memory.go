// Package cache provides the response cache adapter.
// Clean Architecture: Adapter implementing ports.ResponseCache.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// Defaults for the response cache.
const (
	DefaultTTL      = 300 * time.Second
	DefaultCapacity = 100
)

type entry struct {
	value      entities.ResponseObject
	insertedAt time.Time
	seq        uint64
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// MemoryCache is a bounded TTL cache. Expiry is lazy; when full, the entry
// inserted earliest is evicted. Values are copied in and out so callers
// can't alias cached state.
type MemoryCache struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	seq     uint64
	stats   Stats
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) { c.now = now }
}

// NewMemoryCache creates a cache. Non-positive ttl or capacity take the defaults.
func NewMemoryCache(ttl time.Duration, capacity int, opts ...Option) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &MemoryCache{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]entry, capacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the live value for key. Expired or corrupt
// entries are dropped and reported as a miss.
func (c *MemoryCache) Get(key string) (entities.ResponseObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return entities.ResponseObject{}, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl || strings.TrimSpace(e.value.Answer) == "" {
		delete(c.entries, key)
		c.stats.Misses++
		return entities.ResponseObject{}, false
	}
	c.stats.Hits++
	return e.value.Clone(), true
}

// Put stores a copy of value. Re-putting a key refreshes its timestamp.
func (c *MemoryCache) Put(key string, value entities.ResponseObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.seq++
	c.entries[key] = entry{value: value.Clone(), insertedAt: c.now(), seq: c.seq}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry, c.capacity)
}

// Stats returns the current counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// evictOldest removes the entry with the smallest insertion timestamp,
// breaking ties by insertion order. Caller holds mu.
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest entry
	found := false
	for k, e := range c.entries {
		if !found || e.insertedAt.Before(oldest.insertedAt) ||
			(e.insertedAt.Equal(oldest.insertedAt) && e.seq < oldest.seq) {
			oldestKey, oldest, found = k, e, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}
