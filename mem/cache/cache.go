// Package cache implements a contents-tracking model of a set-associative
// cache. The model replays read and write accesses against a tag array and
// counts hits, misses, and memory traffic. It does not model data, timing,
// or coherence.
package cache

import (
	"github.com/sarchlab/cachereplay/mem/cache/internal/tagging"
)

// A Cache replays memory accesses against a tag array under a fixed
// geometry, replacement policy, and prefetch mode. A cache is not safe for
// concurrent use.
type Cache struct {
	name            string
	geometry        Geometry
	policy          Policy
	prefetchEnabled bool

	tags         *tagging.Tags
	victimFinder tagging.VictimFinder

	stats Stats
}

// Name returns the name of the cache.
func (c *Cache) Name() string {
	return c.name
}

// Geometry returns the geometry the cache was built with.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Policy returns the replacement policy of the cache.
func (c *Cache) Policy() Policy {
	return c.policy
}

// PrefetchEnabled tells if the cache prefetches the next block on demand
// misses.
func (c *Cache) PrefetchEnabled() bool {
	return c.prefetchEnabled
}

// Snapshot returns the current value of the access counters.
func (c *Cache) Snapshot() Stats {
	return c.stats
}

// Read replays a read access to addr.
func (c *Cache) Read(addr uint64) {
	c.access(addr, false)
}

// Write replays a write access to addr. Writes are modeled as
// write-allocate, write-through: a write miss fetches the block like a
// read miss, and every write counts exactly one memory write.
func (c *Cache) Write(addr uint64) {
	c.access(addr, true)
}

func (c *Cache) access(addr uint64, isWrite bool) {
	setID, wayID, ok := c.tags.Lookup(addr)
	if ok {
		c.stats.Hits++

		if isWrite {
			c.stats.Writes++
		}

		if c.policy == PolicyLRU {
			c.tags.Visit(setID, wayID)
		}

		return
	}

	c.stats.Misses++
	c.stats.Reads++
	c.load(addr)

	if isWrite {
		c.stats.Writes++
	}

	if c.prefetchEnabled {
		c.prefetchNext(addr)
	}
}

// load installs the block that holds addr, evicting if the set is full.
// It must run exactly once per miss, demand or prefetch.
func (c *Cache) load(addr uint64) {
	set, setID := c.tags.GetSet(addr)
	wayID := c.victimFinder.FindVictim(set)

	c.tags.Install(setID, wayID, c.tags.Tag(addr))
}

// prefetchNext speculatively fetches the block after the one that holds
// addr. A prefetch fill counts one memory read and nothing else. If the
// next block is already cached, nothing happens.
func (c *Cache) prefetchNext(addr uint64) {
	nextAddr := (c.tags.BlockID(addr) + 1) << c.geometry.Log2BlockSize

	if _, _, ok := c.tags.Lookup(nextAddr); ok {
		return
	}

	c.stats.Reads++
	c.load(nextAddr)
}
