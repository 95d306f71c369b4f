// Package cache provides a typed in-process TTL cache backed by ristretto.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

const defaultMaxEntries = 1 << 12

// Cache is a typed TTL cache. Keys are string-like.
type Cache[K ~string, V any] struct {
	store *ristretto.Cache
}

// New creates a cache holding at most maxEntries items (0 selects a default).
// Every entry costs 1 regardless of its size.
func New[K ~string, V any](maxEntries int64) (*Cache[K, V], error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	return &Cache[K, V]{store: store}, nil
}

// Get returns the cached value and whether it was present and unexpired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	raw, ok := c.store.Get(string(key))
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value. A zero ttl keeps the value until evicted. The write is
// visible to subsequent Gets when Set returns.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	if ttl < 0 {
		return
	}
	c.store.SetWithTTL(string(key), value, 1, ttl)
	c.store.Wait()
}

// Delete removes a key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.store.Del(string(key))
}

// Close stops the background goroutines.
func (c *Cache[K, V]) Close() {
	c.store.Close()
}
