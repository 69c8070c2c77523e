package retrace

import (
	"sync"
	"sync/atomic"

	"github.com/coregx/retrace/syntax"
)

// Cache memoizes compiled patterns. There is no ambient global cache;
// callers that want one create it and own its lifetime.
//
// Eviction is wholesale: when the cache is full, the next insertion
// clears it. This keeps bookkeeping at a map lookup per hit, and a
// working set that fits the capacity never pays eviction at all.
//
// A Cache is safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	config   Config
	entries  map[cacheKey]*Pattern
	hits     atomic.Uint64
	misses   atomic.Uint64
}

type cacheKey struct {
	pattern string
	flags   syntax.Flags
}

// DefaultCacheCapacity is the capacity NewCache uses when given a
// non-positive one.
const DefaultCacheCapacity = 512

// NewCache returns an empty cache that compiles with config. A capacity
// of zero or less selects DefaultCacheCapacity.
func NewCache(capacity int, config Config) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		config:   config,
		entries:  make(map[cacheKey]*Pattern, capacity),
	}
}

// Get returns the compiled pattern for pattern+flags, compiling and
// storing it on first use. Compilation errors are not cached; a failing
// pattern is recompiled on every Get.
func (c *Cache) Get(pattern string, flags syntax.Flags) (*Pattern, error) {
	key := cacheKey{pattern: pattern, flags: flags}

	c.mu.RLock()
	p, cached := c.entries[key]
	c.mu.RUnlock()
	if cached {
		c.hits.Add(1)
		return p, nil
	}

	p, err := CompileWithConfig(pattern, flags, c.config)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses.Add(1)
	if existing, raced := c.entries[key]; raced {
		return existing, nil
	}
	if len(c.entries) >= c.capacity {
		clear(c.entries)
	}
	c.entries[key] = p
	return p, nil
}

// Len returns the number of cached patterns.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Clear drops every cached pattern and leaves the counters alone.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
