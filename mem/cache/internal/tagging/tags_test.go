package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tags", func() {
	var tags *Tags

	BeforeEach(func() {
		// 1024 sets, 4 ways, 64-byte blocks.
		tags = NewTags(1024, 4, 6)
	})

	It("should be able to get total size", func() {
		Expect(tags.TotalSize()).To(Equal(uint64(262144)))
	})

	It("should start with no valid lines", func() {
		for _, set := range tags.Sets {
			for _, line := range set.Lines {
				Expect(line.Valid).To(BeFalse())
				Expect(line.Age).To(Equal(uint64(0)))
			}
		}
	})

	It("should decompose addresses into tag, set index, and block id", func() {
		Expect(tags.BlockID(0x10040)).To(Equal(uint64(0x401)))
		Expect(tags.SetIndex(0x10040)).To(Equal(uint64(0x1)))
		Expect(tags.Tag(0x10040)).To(Equal(uint64(0x1)))
	})

	It("should map every address to set 0 when there is a single set", func() {
		fullyAssoc := NewTags(1, 8, 4)

		Expect(fullyAssoc.Log2NumSets).To(Equal(0))
		Expect(fullyAssoc.SetIndex(0xdeadbeef)).To(Equal(uint64(0)))
		Expect(fullyAssoc.Tag(0xf0)).To(Equal(uint64(0xf)))
	})

	It("should lookup", func() {
		set, setID := tags.GetSet(0x10040)
		set.Lines[2] = Line{Valid: true, Tag: tags.Tag(0x10040)}

		foundSetID, wayID, ok := tags.Lookup(0x10040)

		Expect(ok).To(BeTrue())
		Expect(foundSetID).To(Equal(setID))
		Expect(wayID).To(Equal(2))
	})

	It("should miss when no line holds the tag", func() {
		_, _, ok := tags.Lookup(0x10040)
		Expect(ok).To(BeFalse())
	})

	It("should miss when the line is invalid", func() {
		set, _ := tags.GetSet(0x10040)
		set.Lines[0] = Line{Valid: false, Tag: tags.Tag(0x10040)}

		_, _, ok := tags.Lookup(0x10040)
		Expect(ok).To(BeFalse())
	})

	It("should age the rest of the set when installing", func() {
		tags.Install(1, 0, 0x1)
		tags.Install(1, 1, 0x2)
		tags.Install(1, 2, 0x3)

		set := tags.Sets[1]
		Expect(set.Lines[0].Age).To(Equal(uint64(2)))
		Expect(set.Lines[1].Age).To(Equal(uint64(1)))
		Expect(set.Lines[2].Age).To(Equal(uint64(0)))
		Expect(set.Lines[3].Valid).To(BeFalse())
	})

	It("should refresh a line when visiting", func() {
		tags.Install(1, 0, 0x1)
		tags.Install(1, 1, 0x2)

		tags.Visit(1, 0)

		set := tags.Sets[1]
		Expect(set.Lines[0].Age).To(Equal(uint64(0)))
		Expect(set.Lines[1].Age).To(Equal(uint64(1)))
	})

	It("should invalidate everything on reset", func() {
		tags.Install(0, 0, tags.Tag(0x100000))
		_, _, ok := tags.Lookup(0x100000)
		Expect(ok).To(BeTrue())

		tags.Reset()

		_, _, ok = tags.Lookup(0x100000)
		Expect(ok).To(BeFalse())
	})
})
