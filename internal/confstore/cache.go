// Package confstore persists and caches user and guild configuration
// records. The Postgres store is the source of truth; a fixed-capacity LRU
// per scope sits in front of it so steady-state reads never touch the
// database.
package confstore

import "container/list"

// Cache is a fixed-capacity LRU mapping ids to configuration records.
//
// Cache is not safe for concurrent use; [Service] guards each cache with its
// scope mutex. Records are value types, so Get returns an isolated copy.
type Cache[T any] struct {
	capacity  int
	order     *list.List // front = least recent, back = most recent
	items     map[string]*list.Element
	saturated bool
}

type cacheEntry[T any] struct {
	key string
	val T
}

// NewCache creates an LRU holding at most capacity records. capacity must be
// positive.
func NewCache[T any](capacity int) *Cache[T] {
	if capacity <= 0 {
		panic("confstore: cache capacity must be positive")
	}
	return &Cache[T]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the record for key and marks it most recently used.
func (c *Cache[T]) Get(key string) (T, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToBack(el)
	return el.Value.(*cacheEntry[T]).val, true
}

// Put stores val under key and marks it most recently used, evicting the
// least recently used record when the cache is full. It reports whether an
// eviction happened.
func (c *Cache[T]) Put(key string, val T) (evicted bool) {
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry[T]).val = val
		c.order.MoveToBack(el)
		return false
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry[T]).key)
		evicted = true
	}
	c.items[key] = c.order.PushBack(&cacheEntry[T]{key: key, val: val})
	if c.order.Len() >= c.capacity {
		c.saturated = true
	}
	return evicted
}

// Len returns the number of cached records.
func (c *Cache[T]) Len() int { return c.order.Len() }

// Saturated reports whether the cache has ever filled to capacity. It never
// resets; it exists so the first fill can be surfaced exactly once.
func (c *Cache[T]) Saturated() bool { return c.saturated }
