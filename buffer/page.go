package buffer

import (
	"sync"
)

const (
	// PageSize is the fixed size of every page and frame in bytes
	PageSize = 4096
)

// PageID identifies a logical page. IDs are allocated monotonically by the
// buffer pool and are never reused, even after DeletePage.
type PageID uint32

// InvalidPageID marks a frame that holds no page
const InvalidPageID PageID = 0xFFFFFFFF

// FrameID is an index into the buffer pool's frame array
type FrameID uint32

// Page is one frame of the buffer pool: a fixed-size buffer plus the
// metadata the pool needs to manage it (owning page ID, dirty bit, pin
// count). The pool preallocates all frames at construction and owns their
// memory for its whole lifetime; callers hold pinned leases, never the
// frame itself.
type Page struct {
	mutex    sync.RWMutex
	frameID  FrameID
	pageID   PageID
	pinCount int32
	isDirty  bool
	data     [PageSize]byte
}

func newPage(frameID FrameID) *Page {
	return &Page{
		frameID: frameID,
		pageID:  InvalidPageID,
	}
}

// GetPageId returns the ID of the page this frame currently holds,
// or InvalidPageID if the frame is empty
func (p *Page) GetPageId() PageID {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.pageID
}

// GetFrameId returns the frame index of this page in the pool
func (p *Page) GetFrameId() FrameID {
	return p.frameID
}

// GetPinCount returns the current pin count
func (p *Page) GetPinCount() int32 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.pinCount
}

// IsDirty returns whether the in-memory contents may differ from disk
func (p *Page) IsDirty() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.isDirty
}

// Data returns the frame's page buffer. The slice aliases the frame
// memory; callers must hold a pin while touching it and should use the
// page latches when sharing a page between goroutines.
func (p *Page) Data() []byte {
	return p.data[:]
}

// RLatch acquires the page's shared data latch
func (p *Page) RLatch() {
	p.mutex.RLock()
}

// RUnlatch releases the page's shared data latch
func (p *Page) RUnlatch() {
	p.mutex.RUnlock()
}

// WLatch acquires the page's exclusive data latch
func (p *Page) WLatch() {
	p.mutex.Lock()
}

// WUnlatch releases the page's exclusive data latch
func (p *Page) WUnlatch() {
	p.mutex.Unlock()
}

// setDirty sets the dirty flag. Called by the pool with the pool latch held.
func (p *Page) setDirty(dirty bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.isDirty = dirty
}

// pin increments the pin count. Pin bookkeeping goes through the pool so
// the replacer's evictable set stays consistent with the counts.
func (p *Page) pin() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pinCount++
}

// unpin decrements the pin count and returns the new value
func (p *Page) unpin() int32 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.pinCount > 0 {
		p.pinCount--
	}
	return p.pinCount
}

// reset returns the frame to the empty state: zeroed buffer, no owning
// page, clean, unpinned. A dirty frame must be flushed before reset.
func (p *Page) reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pageID = InvalidPageID
	p.pinCount = 0
	p.isDirty = false
	clear(p.data[:])
}
