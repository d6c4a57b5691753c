package buffer

// Replacer decides which unpinned frame to reclaim when the pool is full.
// Implementations track frames explicitly marked evictable; pinned frames
// are never tracked as candidates, so a victim returned by Evict is always
// safe to reuse.
type Replacer interface {
	// RecordAccess notes that the frame was accessed at the current
	// logical timestamp
	RecordAccess(frameID FrameID)

	// SetEvictable adds or removes the frame from the victim-eligible set.
	// Frames never marked evictable are never chosen, even with history.
	SetEvictable(frameID FrameID, evictable bool)

	// Evict selects a victim, clears its history, and removes it from the
	// evictable set. Returns false if no frame is evictable - the pool
	// exhaustion signal, not an error.
	Evict() (FrameID, bool)

	// Remove forcibly drops a frame from tracking without counting as an
	// eviction. Used when a page is deleted.
	Remove(frameID FrameID)

	// Size returns the number of evictable frames
	Size() uint32
}

// NewReplacer creates a replacer for the given algorithm.
// k is the access history depth; only "lruk" uses it.
func NewReplacer(algorithm string, poolSize uint32, k uint32) Replacer {
	switch algorithm {
	case "lru":
		return NewLRUReplacer(poolSize)
	case "lruk":
		return NewLRUKReplacer(poolSize, k)
	default:
		// Default to LRU-K: scan-resistant and history-aware
		return NewLRUKReplacer(poolSize, k)
	}
}
