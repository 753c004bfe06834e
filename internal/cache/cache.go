// Package cache is a small in-process TTL cache for read-mostly lists.
package cache

import (
	"sync"
	"time"
)

const DefaultTTL = 30 * time.Second

type item[V any] struct {
	val V
	exp time.Time
}

type Cache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]item[V]
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache[V]{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]item[V]),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return zero, false
	}

	if c.now().After(it.exp) {
		c.mu.Lock()
		// only drop it if nobody refreshed it meanwhile
		if cur, still := c.items[key]; still && cur.exp.Equal(it.exp) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return it.val, true
}

func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	c.items[key] = item[V]{val: val, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}
