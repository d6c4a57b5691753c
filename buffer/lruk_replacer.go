package buffer

import (
	"sync"
)

// lruKNode tracks the access history of one frame.
// history holds the last k logical timestamps, oldest first; for a frame
// with a full history, history[0] is the k-th most recent access.
type lruKNode struct {
	history   []uint64
	evictable bool
}

// LRUKReplacer implements the LRU-K replacement policy.
//
// The victim is the evictable frame with the largest backward k-distance:
// the time since its k-th most recent access. A frame with fewer than k
// recorded accesses has infinite backward k-distance and is preferred over
// any frame with a full history; ties among such frames are broken by the
// earliest recorded access (plain LRU), with never-accessed frames first.
type LRUKReplacer struct {
	mutex     sync.Mutex
	k         uint32
	nodes     map[FrameID]*lruKNode
	timestamp uint64 // logical clock, incremented per recorded access
	size      uint32 // number of evictable frames
}

// NewLRUKReplacer creates an LRU-K replacer with history depth k
func NewLRUKReplacer(poolSize uint32, k uint32) *LRUKReplacer {
	if k == 0 {
		k = 1
	}
	return &LRUKReplacer{
		k:     k,
		nodes: make(map[FrameID]*lruKNode, poolSize),
	}
}

// RecordAccess appends the current logical timestamp to the frame's
// history, keeping only the last k entries
func (r *LRUKReplacer) RecordAccess(frameID FrameID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node := r.node(frameID)
	if uint32(len(node.history)) == r.k {
		// Bounded history: shift out the oldest entry in place
		copy(node.history, node.history[1:])
		node.history[r.k-1] = r.timestamp
	} else {
		node.history = append(node.history, r.timestamp)
	}
	r.timestamp++
}

// SetEvictable adds or removes the frame from the victim-eligible set,
// creating tracking for frames seen for the first time
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node := r.node(frameID)
	if node.evictable == evictable {
		return
	}
	node.evictable = evictable
	if evictable {
		r.size++
	} else {
		r.size--
	}
}

// Evict selects the evictable frame with the largest backward k-distance,
// clears its history, and removes it from tracking. Returns false when no
// frame is evictable.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.size == 0 {
		return 0, false
	}

	var (
		victim      FrameID
		found       bool
		victimInf   bool   // victim has fewer than k accesses
		victimStamp uint64 // victim's ranking timestamp
	)

	for frameID, node := range r.nodes {
		if !node.evictable {
			continue
		}

		inf := uint32(len(node.history)) < r.k
		// With a full history, history[0] is the k-th most recent access;
		// with a partial one it is the earliest access used for the LRU
		// tie-break. Never-accessed frames rank before everything.
		var stamp uint64
		if len(node.history) > 0 {
			stamp = node.history[0]
		}

		better := false
		switch {
		case !found:
			better = true
		case inf != victimInf:
			better = inf // infinite distance beats finite
		case stamp != victimStamp:
			better = stamp < victimStamp // older k-th access wins
		default:
			better = frameID < victim // deterministic order for blank frames
		}

		if better {
			victim = frameID
			found = true
			victimInf = inf
			victimStamp = stamp
		}
	}

	if !found {
		return 0, false
	}

	delete(r.nodes, victim)
	r.size--
	return victim, true
}

// Remove drops a frame from tracking regardless of its distance,
// without counting as an eviction
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, ok := r.nodes[frameID]
	if !ok {
		return
	}
	if node.evictable {
		r.size--
	}
	delete(r.nodes, frameID)
}

// Size returns the number of evictable frames
func (r *LRUKReplacer) Size() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.size
}

// node returns the tracking entry for frameID, creating it on first sight
func (r *LRUKReplacer) node(frameID FrameID) *lruKNode {
	node, ok := r.nodes[frameID]
	if !ok {
		node = &lruKNode{history: make([]uint64, 0, r.k)}
		r.nodes[frameID] = node
	}
	return node
}
