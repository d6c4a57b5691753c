package buffer

import (
	"container/list"
	"sync"
)

// LRUReplacer implements plain LRU replacement: the victim is the
// evictable frame least recently accessed. Cheaper than LRU-K when access
// history does not matter. Selectable through NewReplacer with "lru".
type LRUReplacer struct {
	mutex   sync.Mutex
	lruList *list.List               // front = oldest, back = most recent
	lruMap  map[FrameID]*list.Element // evictable frames only
}

// NewLRUReplacer creates a new LRU replacer
func NewLRUReplacer(poolSize uint32) *LRUReplacer {
	return &LRUReplacer{
		lruList: list.New(),
		lruMap:  make(map[FrameID]*list.Element, poolSize),
	}
}

// RecordAccess moves an evictable frame to the most-recently-used
// position. Accesses to frames outside the evictable set carry no state;
// they rejoin the list on SetEvictable.
func (lru *LRUReplacer) RecordAccess(frameID FrameID) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	if elem, exists := lru.lruMap[frameID]; exists {
		lru.lruList.MoveToBack(elem)
	}
}

// SetEvictable adds the frame to the LRU list or removes it
func (lru *LRUReplacer) SetEvictable(frameID FrameID, evictable bool) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	elem, exists := lru.lruMap[frameID]
	if evictable {
		if exists {
			return
		}
		lru.lruMap[frameID] = lru.lruList.PushBack(frameID)
		return
	}
	if exists {
		lru.lruList.Remove(elem)
		delete(lru.lruMap, frameID)
	}
}

// Evict removes and returns the least recently used evictable frame
func (lru *LRUReplacer) Evict() (FrameID, bool) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	oldest := lru.lruList.Front()
	if oldest == nil {
		return 0, false
	}

	frameID := oldest.Value.(FrameID)
	lru.lruList.Remove(oldest)
	delete(lru.lruMap, frameID)
	return frameID, true
}

// Remove drops a frame from the replacer without counting as an eviction
func (lru *LRUReplacer) Remove(frameID FrameID) {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	if elem, exists := lru.lruMap[frameID]; exists {
		lru.lruList.Remove(elem)
		delete(lru.lruMap, frameID)
	}
}

// Size returns the number of evictable frames
func (lru *LRUReplacer) Size() uint32 {
	lru.mutex.Lock()
	defer lru.mutex.Unlock()

	return uint32(lru.lruList.Len())
}
