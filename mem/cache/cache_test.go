package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustGeometry(size uint64, ways, block int) Geometry {
	g, err := MakeGeometry(size, ways, block)
	if err != nil {
		panic(err)
	}
	return g
}

var _ = Describe("Cache", func() {
	It("should report all-zero stats when freshly built", func() {
		c := MakeBuilder().Build("Cache")

		Expect(c.Snapshot()).To(Equal(Stats{}))
		for _, set := range c.tags.Sets {
			for _, line := range set.Lines {
				Expect(line.Valid).To(BeFalse())
			}
		}
	})

	It("should miss then hit when repeating an address, direct-mapped", func() {
		c := MakeBuilder().
			WithGeometry(mustGeometry(128, 1, 16)).
			WithPolicy(PolicyLRU).
			Build("Cache")

		c.Read(0x40)
		c.Read(0x40)

		Expect(c.Snapshot()).To(Equal(Stats{
			Reads: 1, Writes: 0, Hits: 1, Misses: 1,
		}))
	})

	Context("with 2-way sets and conflicting blocks", func() {
		// 64B cache, 2 ways, 16B blocks: 2 sets. Blocks 0x00, 0x20, and
		// 0x40 all map to set 0.
		var geometry Geometry

		BeforeEach(func() {
			geometry = mustGeometry(64, 2, 16)
		})

		It("should keep the refreshed block under LRU", func() {
			c := MakeBuilder().
				WithGeometry(geometry).
				WithPolicy(PolicyLRU).
				Build("Cache")

			c.Read(0x00) // A
			c.Read(0x20) // B
			c.Read(0x00) // A again, refreshes A
			c.Read(0x40) // C, must evict B

			_, _, aPresent := c.tags.Lookup(0x00)
			_, _, bPresent := c.tags.Lookup(0x20)
			_, _, cPresent := c.tags.Lookup(0x40)

			Expect(aPresent).To(BeTrue())
			Expect(bPresent).To(BeFalse())
			Expect(cPresent).To(BeTrue())
		})

		It("should evict the oldest insertion under FIFO", func() {
			c := MakeBuilder().
				WithGeometry(geometry).
				WithPolicy(PolicyFIFO).
				Build("Cache")

			c.Read(0x00) // A
			c.Read(0x20) // B
			c.Read(0x00) // A hit, does not refresh insertion order
			c.Read(0x40) // C, must evict A

			_, _, aPresent := c.tags.Lookup(0x00)
			_, _, bPresent := c.tags.Lookup(0x20)
			_, _, cPresent := c.tags.Lookup(0x40)

			Expect(aPresent).To(BeFalse())
			Expect(bPresent).To(BeTrue())
			Expect(cPresent).To(BeTrue())
		})
	})

	It("should count exactly one write per write access", func() {
		c := MakeBuilder().
			WithGeometry(mustGeometry(128, 1, 16)).
			Build("Cache")

		c.Write(0x10) // write miss: fetch then write
		Expect(c.Snapshot()).To(Equal(Stats{
			Reads: 1, Writes: 1, Hits: 0, Misses: 1,
		}))

		c.Write(0x10) // write hit
		Expect(c.Snapshot()).To(Equal(Stats{
			Reads: 1, Writes: 2, Hits: 1, Misses: 1,
		}))
	})

	Context("with the next-block prefetcher", func() {
		It("should count a prefetch fill as one read only", func() {
			c := MakeBuilder().
				WithGeometry(mustGeometry(256, 2, 16)).
				WithPrefetch(true).
				Build("Cache")

			c.Read(0x00)

			// One demand miss plus one prefetch fill of block 1.
			Expect(c.Snapshot()).To(Equal(Stats{
				Reads: 2, Writes: 0, Hits: 0, Misses: 1,
			}))
		})

		It("should not prefetch a block that is already cached", func() {
			c := MakeBuilder().
				WithGeometry(mustGeometry(256, 2, 16)).
				WithPrefetch(true).
				Build("Cache")

			c.Read(0x00)
			c.Read(0x00)

			// The second access hits; no prefetch runs on hits, and the
			// read count stays at demand + first prefetch.
			Expect(c.Snapshot()).To(Equal(Stats{
				Reads: 2, Writes: 0, Hits: 1, Misses: 1,
			}))
		})

		It("should miss once on a sequential stream of two blocks", func() {
			c := MakeBuilder().
				WithGeometry(mustGeometry(256, 2, 16)).
				WithPrefetch(true).
				Build("Cache")

			c.Read(0x00)
			c.Read(0x10)

			s := c.Snapshot()
			Expect(s.Misses).To(Equal(uint64(1)))
			Expect(s.Hits).To(Equal(uint64(1)))
		})

		It("should halve the misses of a long sequential stream", func() {
			geometry := mustGeometry(1024, 4, 16)
			demand := MakeBuilder().WithGeometry(geometry).Build("Demand")
			prefetching := MakeBuilder().
				WithGeometry(geometry).
				WithPrefetch(true).
				Build("Prefetching")

			for block := uint64(0); block < 16; block++ {
				demand.Read(block * 16)
				prefetching.Read(block * 16)
			}

			Expect(demand.Snapshot().Misses).To(Equal(uint64(16)))

			// The prefetcher runs on demand misses, so misses and
			// prefetch hits alternate: blocks 0, 2, 4, ... miss and pull
			// in blocks 1, 3, 5, ...
			s := prefetching.Snapshot()
			Expect(s.Misses).To(Equal(uint64(8)))
			Expect(s.Hits).To(Equal(uint64(8)))
			Expect(s.Reads).To(Equal(uint64(16)))
		})
	})

	It("should reproduce the reference trace exactly", func() {
		// 128B, 2-way, 16B blocks, LRU: 4 sets of 2 lines. Trace: reads
		// of 0x00, 0x10, 0x20, 0x00.
		geometry := mustGeometry(128, 2, 16)
		trace := []uint64{0x00, 0x10, 0x20, 0x00}

		demand := MakeBuilder().
			WithGeometry(geometry).
			WithPolicy(PolicyLRU).
			Build("Demand")
		prefetching := MakeBuilder().
			WithGeometry(geometry).
			WithPolicy(PolicyLRU).
			WithPrefetch(true).
			Build("Prefetching")

		for _, addr := range trace {
			demand.Read(addr)
			prefetching.Read(addr)
		}

		Expect(demand.Snapshot()).To(Equal(Stats{
			Reads: 3, Writes: 0, Hits: 1, Misses: 3,
		}))

		// The miss on 0x00 prefetches 0x10, which then hits; the miss on
		// 0x20 prefetches 0x30, which is never demanded.
		Expect(prefetching.Snapshot()).To(Equal(Stats{
			Reads: 4, Writes: 0, Hits: 2, Misses: 2,
		}))
	})
})
