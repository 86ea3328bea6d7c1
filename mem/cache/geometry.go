package cache

import (
	"fmt"
	"math/bits"
)

// Geometry describes the shape of a cache: total capacity, way
// associativity, and block size, together with the values derived from
// them. Construct it with MakeGeometry so that the derived fields are
// consistent.
type Geometry struct {
	CacheByteSize    uint64
	WayAssociativity int
	BlockSize        int

	NumSets       int
	Log2BlockSize int
	Log2NumSets   int
}

// MakeGeometry validates a cache shape and derives the number of sets and
// the bit widths used for address decomposition. All three inputs must be
// powers of two, and the associativity cannot exceed the number of blocks
// the cache can hold.
func MakeGeometry(
	cacheByteSize uint64,
	wayAssociativity int,
	blockSize int,
) (Geometry, error) {
	g := Geometry{
		CacheByteSize:    cacheByteSize,
		WayAssociativity: wayAssociativity,
		BlockSize:        blockSize,
	}

	if !isPowerOfTwo(cacheByteSize) {
		return Geometry{}, fmt.Errorf(
			"cache size %d is not a power of 2", cacheByteSize)
	}

	if blockSize <= 0 || !isPowerOfTwo(uint64(blockSize)) {
		return Geometry{}, fmt.Errorf(
			"block size %d is not a power of 2", blockSize)
	}

	if uint64(blockSize) > cacheByteSize {
		return Geometry{}, fmt.Errorf(
			"block size %d exceeds cache size %d", blockSize, cacheByteSize)
	}

	numBlocks := cacheByteSize / uint64(blockSize)
	if wayAssociativity <= 0 || !isPowerOfTwo(uint64(wayAssociativity)) {
		return Geometry{}, fmt.Errorf(
			"associativity %d is not a power of 2", wayAssociativity)
	}

	if uint64(wayAssociativity) > numBlocks {
		return Geometry{}, fmt.Errorf(
			"associativity %d exceeds the %d blocks the cache can hold",
			wayAssociativity, numBlocks)
	}

	g.NumSets = int(numBlocks) / wayAssociativity
	g.Log2BlockSize = log2(uint64(blockSize))
	g.Log2NumSets = log2(uint64(g.NumSets))

	return g, nil
}

func isPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// log2 of a power of two.
func log2(x uint64) int {
	return bits.Len64(x) - 1
}
