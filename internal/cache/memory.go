package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"drifttapes/internal/search"
)

const cleanupInterval = 5 * time.Minute

// entry is a cached value with expiration
type entry[V any] struct {
	value      V
	expiration time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiration)
}

// MemoryCache is an in-memory TTL cache. A maxEntries of zero means
// unbounded; when full, expired entries are dropped first and then an
// arbitrary one.
type MemoryCache[V any] struct {
	items      map[string]*entry[V]
	mutex      sync.RWMutex
	ttl        time.Duration
	maxEntries int
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache[V any](ttl time.Duration, maxEntries int) *MemoryCache[V] {
	return &MemoryCache[V]{
		items:      make(map[string]*entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Set stores a value in the cache
func (c *MemoryCache[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evict(now)
	}

	c.items[key] = &entry[V]{
		value:      value,
		expiration: now.Add(c.ttl),
	}
}

// Get retrieves an unexpired value from the cache
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || e.expired(time.Now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes a value from the cache
func (c *MemoryCache[V]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *MemoryCache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*entry[V])
}

// Size returns the number of items in the cache, expired or not
func (c *MemoryCache[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// StartCleanup removes expired entries periodically until ctx is done
func (c *MemoryCache[V]) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.mutex.Lock()
				c.removeExpired(now)
				c.mutex.Unlock()
			}
		}
	}()
}

// removeExpired must be called with the lock held
func (c *MemoryCache[V]) removeExpired(now time.Time) int {
	removed := 0
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// evict makes room for one entry. Must be called with the lock held.
func (c *MemoryCache[V]) evict(now time.Time) {
	if c.removeExpired(now) > 0 {
		return
	}
	for key := range c.items {
		delete(c.items, key)
		return
	}
}

// SearchResponse is a cached search outcome
type SearchResponse struct {
	Results     []search.Result
	Suggestions []search.Suggestion
}

// SearchCache caches search responses per catalog version and query
type SearchCache struct {
	*MemoryCache[SearchResponse]
}

// NewSearchCache creates a search cache
func NewSearchCache(ttl time.Duration) *SearchCache {
	return &SearchCache{
		MemoryCache: NewMemoryCache[SearchResponse](ttl, 1000),
	}
}

func searchKey(version uint64, query string) string {
	return fmt.Sprintf("%d:%s", version, strings.ToLower(strings.TrimSpace(query)))
}

// GetSearch returns the cached response for query against a catalog version
func (sc *SearchCache) GetSearch(version uint64, query string) (SearchResponse, bool) {
	return sc.Get(searchKey(version, query))
}

// SetSearch caches the response for query against a catalog version
func (sc *SearchCache) SetSearch(version uint64, query string, resp SearchResponse) {
	sc.Set(searchKey(version, query), resp)
}
