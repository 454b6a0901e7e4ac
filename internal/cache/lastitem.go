// Package cache holds small per-user in-process caches. Contents live until
// process restart; durable history belongs to the file store, not here.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LastItem remembers the most recent value produced per key. It is an
// explicit, externally visible cache rather than hidden global state: the
// owner constructs it, passes it where needed, and its lifetime is the
// process lifetime.
type LastItem[K comparable, V any] struct {
	lru *lru.Cache[K, V]
}

// NewLastItem creates a cache bounded to size entries; the least recently
// used key is evicted beyond that, which for "last item per user" just
// bounds the number of remembered users.
func NewLastItem[K comparable, V any](size int) (*LastItem[K, V], error) {
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &LastItem[K, V]{lru: c}, nil
}

// Put records the latest value for key.
func (c *LastItem[K, V]) Put(key K, value V) {
	c.lru.Add(key, value)
}

// Get returns the latest value for key, if any.
func (c *LastItem[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}
