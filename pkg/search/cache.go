package search

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cacheKey is the semantically significant part of a query. Retry and delay
// tuning is deliberately excluded so callers varying only those fields share
// one cached computation.
type cacheKey struct {
	query    string
	model    string
	endpoint string
}

func (k cacheKey) flightKey() string {
	return k.query + "\x00" + k.model + "\x00" + k.endpoint
}

type cacheEntry struct {
	result     *Result
	insertedAt time.Time
}

// ResultCache is a time-bounded cache over search results with per-key
// single-flight: concurrent misses for the same key share one computation
// while unrelated keys proceed in parallel. Failed computations are not
// cached.
type ResultCache struct {
	ttl     time.Duration
	maxSize int

	flight singleflight.Group

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
}

func NewResultCache(ttl time.Duration, maxSize int) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxSize <= 0 {
		maxSize = 100
	}
	return &ResultCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// GetOrCompute returns the cached result for key, or runs compute once and
// stores its result. Cached results are shared pointers and must be treated
// as immutable by callers.
func (c *ResultCache) GetOrCompute(ctx context.Context, key cacheKey, compute func() (*Result, error)) (*Result, error) {
	if r, ok := c.get(key); ok {
		return r, nil
	}

	v, err, _ := c.flight.Do(key.flightKey(), func() (interface{}, error) {
		// A follower may arrive after the leader stored the entry.
		if r, ok := c.get(key); ok {
			return r, nil
		}
		r, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (c *ResultCache) get(key cacheKey) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.result, true
}

func (c *ResultCache) set(key cacheKey, r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = &cacheEntry{result: r, insertedAt: time.Now()}
}

// evictLocked drops expired entries first, then the oldest remaining entry
// if the cache is still full. Caller holds c.mu.
func (c *ResultCache) evictLocked() {
	for k, e := range c.entries {
		if time.Since(e.insertedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	var oldestKey cacheKey
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldest) {
			first = false
			oldestKey = k
			oldest = e.insertedAt
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Len reports the current entry count.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
