package tagging

import "math/bits"

// A Line is the tag-array state of a single cache line slot. Age is an
// abstract recency counter maintained by Install and Visit, not a
// timestamp.
type Line struct {
	Valid bool
	Tag   uint64
	Age   uint64
}

// A Set is a list of lines where a certain piece of memory can be stored at.
type Set struct {
	Lines []Line
}

// Tags tracks the contents of a set-associative cache. Only tag metadata is
// stored. Data is not modeled.
type Tags struct {
	NumSets       int
	NumWays       int
	Log2BlockSize int
	Log2NumSets   int
	Sets          []Set
}

// NewTags creates a tag array with numSets sets of numWays ways each.
// numSets must be a power of two.
func NewTags(numSets, numWays, log2BlockSize int) *Tags {
	t := &Tags{
		NumSets:       numSets,
		NumWays:       numWays,
		Log2BlockSize: log2BlockSize,
		Log2NumSets:   bits.Len64(uint64(numSets)) - 1,
	}

	t.Reset()

	return t
}

// Reset marks all the lines in the tag array invalid.
func (t *Tags) Reset() {
	t.Sets = make([]Set, t.NumSets)
	for i := range t.Sets {
		t.Sets[i].Lines = make([]Line, t.NumWays)
	}
}

// BlockID returns the index of the memory block that holds addr.
func (t *Tags) BlockID(addr uint64) uint64 {
	return addr >> t.Log2BlockSize
}

// SetIndex returns the set that addr maps to. With a single set the mask
// is zero and every address maps to set 0.
func (t *Tags) SetIndex(addr uint64) uint64 {
	mask := uint64(1)<<t.Log2NumSets - 1
	return t.BlockID(addr) & mask
}

// Tag returns the bits of addr above the set index and the block offset.
func (t *Tags) Tag(addr uint64) uint64 {
	return addr >> (t.Log2BlockSize + t.Log2NumSets)
}

// GetSet returns the set that addr should be stored at.
func (t *Tags) GetSet(addr uint64) (set *Set, setID int) {
	setID = int(t.SetIndex(addr))
	set = &t.Sets[setID]

	return
}

// Lookup finds the line that holds addr. If the block is present in the
// cache, it returns the position of the line. A false ok is a miss, not an
// error.
func (t *Tags) Lookup(addr uint64) (setID, wayID int, ok bool) {
	set, setID := t.GetSet(addr)
	tag := t.Tag(addr)

	for i, line := range set.Lines {
		if line.Valid && line.Tag == tag {
			return setID, i, true
		}
	}

	return setID, 0, false
}

// Install fills a way with the given tag and makes it the youngest line of
// its set. Every other valid line in the set grows one step older. This
// single rule keeps insertion order for FIFO; combined with Visit on hits
// it yields LRU order instead.
func (t *Tags) Install(setID, wayID int, tag uint64) {
	set := &t.Sets[setID]
	set.Lines[wayID].Valid = true
	set.Lines[wayID].Tag = tag

	t.rejuvenate(set, wayID)
}

// Visit marks a way as just used. Every other valid line in the set grows
// one step older. Only LRU caches call Visit on hits.
func (t *Tags) Visit(setID, wayID int) {
	t.rejuvenate(&t.Sets[setID], wayID)
}

func (t *Tags) rejuvenate(set *Set, wayID int) {
	for i := range set.Lines {
		if !set.Lines[i].Valid {
			continue
		}

		if i == wayID {
			set.Lines[i].Age = 0
		} else {
			set.Lines[i].Age++
		}
	}
}

// TotalSize returns the maximum number of bytes that can be stored in the
// cache.
func (t *Tags) TotalSize() uint64 {
	return uint64(t.NumSets) * uint64(t.NumWays) << t.Log2BlockSize
}
