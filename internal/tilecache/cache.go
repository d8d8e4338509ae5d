// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tilecache implements the tile cache: an LRU map
// from tile key to tile payload, with exact single-entry eviction and
// monotonic hit/miss counters. This cache is deliberately single-threaded:
// it is owned by the assembler and touched only from the CPU control
// thread, so no locking is needed and none is added.
package tilecache

import (
	"github.com/gogpu/cellwatch/internal/tile"
	"github.com/gogpu/cellwatch/tilekey"
)

// Cache maps tilekey.Key to *tile.Payload with LRU eviction.
//
// A capacity of 0 disables caching entirely: Get always misses and Insert
// is a no-op (the caller, the assembler, must still produce correct output
// in this mode by releasing the tile itself after use; see internal/assemble).
type Cache struct {
	capacity int
	entries  map[tilekey.Key]*lruNode[tilekey.Key]
	values   map[tilekey.Key]*tile.Payload
	order    *lruList[tilekey.Key]

	Hits   uint64
	Misses uint64
}

// New creates a tile cache with the given capacity. Capacity must be
// non-negative; 0 disables caching.4.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  make(map[tilekey.Key]*lruNode[tilekey.Key]),
		values:   make(map[tilekey.Key]*tile.Payload),
		order:    newLRUList[tilekey.Key](),
	}
}

// Capacity returns the configured LRU capacity.
func (c *Cache) Capacity() int { return c.capacity }

// Len returns the number of tiles currently resident.
func (c *Cache) Len() int { return len(c.values) }

// Get returns the tile for key and promotes it to most-recently-used, or
// reports a miss. Every call counts toward Hits or Misses.
func (c *Cache) Get(key tilekey.Key) (*tile.Payload, bool) {
	if c.capacity == 0 {
		c.Misses++
		return nil, false
	}
	node, ok := c.entries[key]
	if !ok {
		c.Misses++
		return nil, false
	}
	c.order.MoveToFront(node)
	c.Hits++
	return c.values[key], true
}

// Insert installs payload under key and promotes it to most-recently-used.
// If the cache is at capacity, evicts exactly the single least-recently-used
// entry (releasing its GPU buffer) before inserting
// and the Cache LRU testable property. A capacity of 0 makes Insert a no-op;
// the caller owns payload and must release it itself.
func (c *Cache) Insert(key tilekey.Key, payload *tile.Payload) {
	if c.capacity == 0 {
		return
	}

	if node, ok := c.entries[key]; ok {
		c.order.MoveToFront(node)
		if old := c.values[key]; old != nil && old != payload {
			old.Release()
		}
		c.values[key] = payload
		return
	}

	if len(c.values) >= c.capacity {
		c.evictOldest()
	}

	node := c.order.PushFront(key)
	c.entries[key] = node
	c.values[key] = payload
}

// evictOldest releases and removes exactly the single least-recently-used
// tile. A no-op on an empty cache.
func (c *Cache) evictOldest() {
	key, ok := c.order.RemoveOldest()
	if !ok {
		return
	}
	if v, ok := c.values[key]; ok {
		v.Release()
	}
	delete(c.entries, key)
	delete(c.values, key)
}

// Clear releases every resident tile's GPU buffer and empties the cache.
// Hit/miss counters are left untouched: they are cumulative run statistics,
// not cache-state.
func (c *Cache) Clear() {
	for _, v := range c.values {
		v.Release()
	}
	c.entries = make(map[tilekey.Key]*lruNode[tilekey.Key])
	c.values = make(map[tilekey.Key]*tile.Payload)
	c.order.Clear()
}
