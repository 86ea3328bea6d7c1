package cache

// Stats is the access ledger of one cache instance. Every counter is
// monotonically non-decreasing for the lifetime of the cache. A miss
// always costs one memory read; a prefetch fill costs one memory read and
// nothing else.
type Stats struct {
	Reads  uint64
	Writes uint64
	Hits   uint64
	Misses uint64
}
