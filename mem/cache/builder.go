package cache

import (
	"github.com/sarchlab/cachereplay/mem/cache/internal/tagging"
)

// Builder can build caches.
type Builder struct {
	geometry Geometry
	policy   Policy
	prefetch bool
}

// MakeBuilder creates a builder with default parameters. The defaults are
// a 16KB, 4-way associative cache with 64-byte blocks, LRU replacement,
// and no prefetching.
func MakeBuilder() Builder {
	geometry, err := MakeGeometry(16*1024, 4, 64)
	if err != nil {
		panic(err)
	}

	return Builder{
		geometry: geometry,
		policy:   PolicyLRU,
	}
}

// WithGeometry sets the geometry of the cache to build.
func (b Builder) WithGeometry(geometry Geometry) Builder {
	b.geometry = geometry
	return b
}

// WithPolicy sets the replacement policy of the cache to build.
func (b Builder) WithPolicy(policy Policy) Builder {
	b.policy = policy
	return b
}

// WithPrefetch enables or disables the next-block prefetcher of the cache
// to build.
func (b Builder) WithPrefetch(enable bool) Builder {
	b.prefetch = enable
	return b
}

// Build builds a cache.
func (b Builder) Build(name string) *Cache {
	c := &Cache{
		name:            name,
		geometry:        b.geometry,
		policy:          b.policy,
		prefetchEnabled: b.prefetch,
		tags: tagging.NewTags(
			b.geometry.NumSets,
			b.geometry.WayAssociativity,
			b.geometry.Log2BlockSize,
		),
		victimFinder: tagging.NewAgeVictimFinder(),
	}

	return c
}
