// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package cache

import (
	"sync"
	"time"
)

// lruEntry is a node in the LRU's doubly-linked list.
type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	prev      *lruEntry[K, V]
	next      *lruEntry[K, V]
	expiresAt time.Time
}

// LRU is a thread-safe Least Recently Used cache with optional TTL.
//
//   - O(1) Get, Add, Remove
//   - O(1) eviction of the least recently used entry at capacity
//   - lazy expiration when ttl > 0
//
// A doubly-linked list with sentinel nodes orders entries and a map gives
// O(1) lookup. head.next is the most recently used entry.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[K]*lruEntry[K, V]
	head  *lruEntry[K, V]
	tail  *lruEntry[K, V]

	hits      int64
	misses    int64
	evictions int64
}

// NewLRU creates an LRU with the given capacity. A ttl of zero disables expiry.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	return NewLRUWithClock[K, V](capacity, ttl, time.Now)
}

// NewLRUWithClock creates an LRU that reads time from now. Tests and the
// state store use it to drive expiry from an injected clock.
func NewLRUWithClock[K comparable, V any](capacity int, ttl time.Duration, now func() time.Time) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl < 0 {
		ttl = 0
	}
	if now == nil {
		now = time.Now
	}

	c := &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      now,
		items:    make(map[K]*lruEntry[K, V], capacity),
		head:     &lruEntry[K, V]{},
		tail:     &lruEntry[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.expired(entry) {
		c.removeEntry(entry)
		c.misses++
		return zero, false
	}
	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Peek returns the value for key without changing recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok || c.expired(entry) {
		return zero, false
	}
	return entry.value, true
}

// Add inserts or replaces key. It reports whether an entry was evicted to
// make room.
func (c *LRU[K, V]) Add(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(key, value)
}

// SeenBefore reports whether key is present and unexpired. When it is not,
// key is recorded with value. This is the deduplication primitive.
func (c *LRU[K, V]) SeenBefore(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		if !c.expired(entry) {
			c.moveToFront(entry)
			c.hits++
			return true
		}
		c.removeEntry(entry)
	}
	c.misses++
	c.add(key, value)
	return false
}

// Remove deletes key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the number of entries, including expired ones not yet reaped.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Values returns unexpired values from most to least recently used.
func (c *LRU[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]V, 0, len(c.items))
	for e := c.head.next; e != c.tail; e = e.next {
		if !c.expired(e) {
			out = append(out, e.value)
		}
	}
	return out
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *LRU[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl == 0 {
		return 0
	}
	removed := 0
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if c.expired(e) {
			c.removeEntry(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Stats returns hit, miss and eviction counters and the current size.
func (c *LRU[K, V]) Stats() (hits, misses, evictions int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRU[K, V]) add(key K, value V) bool {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return false
	}

	entry := &lruEntry[K, V]{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry

	evicted := false
	for len(c.items) > c.capacity {
		c.removeEntry(c.tail.prev)
		c.evictions++
		evicted = true
	}
	return evicted
}

func (c *LRU[K, V]) expired(e *lruEntry[K, V]) bool {
	return c.ttl > 0 && c.now().After(e.expiresAt)
}

func (c *LRU[K, V]) addToFront(e *lruEntry[K, V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[K, V]) moveToFront(e *lruEntry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *LRU[K, V]) removeEntry(e *lruEntry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
