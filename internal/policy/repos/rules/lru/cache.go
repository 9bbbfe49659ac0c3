// Package lru memoises client-address matches of the rule store.
package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-policy/internal/policy/repos/rules"
)

// matchCache is an LRU-backed implementation of rules.MatchCache.
// It tracks basic metrics: hits, misses, and evictions.
type matchCache struct {
	lru       *lru.Cache[string, int]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op MatchCache used when size <= 0.
type disabledCache struct{}

// New creates a MatchCache with the given capacity. If size <= 0, a disabled
// no-op cache is returned that always misses and tracks no metrics.
func New(size int) (rules.MatchCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var mc matchCache
	cache, err := lru.NewWithEvict(size, func(_ string, _ int) {
		atomic.AddUint64(&mc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	mc.lru = cache
	return &mc, nil
}

// Get looks up a memoised rule index. When found, increments hits; otherwise misses.
func (c *matchCache) Get(key string) (int, bool) {
	if idx, ok := c.lru.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return idx, true
	}
	atomic.AddUint64(&c.misses, 1)
	return 0, false
}

// Put stores a rule index (-1 for no match).
func (c *matchCache) Put(key string, index int) {
	c.lru.Add(key, index)
}

// Len returns the number of entries in the cache.
func (c *matchCache) Len() int { return c.lru.Len() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *matchCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) Get(string) (int, bool) { return 0, false }

func (d *disabledCache) Put(string, int) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ rules.MatchCache = (*matchCache)(nil)
var _ rules.MatchCache = (*disabledCache)(nil)
