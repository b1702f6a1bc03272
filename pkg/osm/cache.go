package osm

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache is a size bounded, thread-safe cache whose entries expire after a TTL
type TTLCache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// NewTTLCache creates a cache holding at most size entries for ttl each.
// size <= 0 means unbounded.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		lru: expirable.NewLRU[K, V](size, nil, ttl),
	}
}

// Get retrieves a value from the cache if it exists and hasn't expired
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set adds a value to the cache with the configured TTL
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}
