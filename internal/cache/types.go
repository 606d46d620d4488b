package cache

// Key identifies one block of one blob.
type Key struct {
	Blob  string
	Block uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block.
	Get(key Key) ([]byte, bool)
	// Set caches a block. The caller must not modify b afterwards.
	Set(key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(Key) bool)
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}

// MemoryAccountant is charged for cached bytes. *resource.Controller
// implements it.
type MemoryAccountant interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}
