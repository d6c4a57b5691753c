package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// BufferPoolManager manages a fixed pool of in-memory frames caching
// disk pages. It owns the page directory, free list, replacement policy,
// and page-id allocation. All state transitions are serialized by a single
// pool-wide latch: victim selection, flush-before-reuse, and metadata
// installation happen as one atomic step, so no caller ever observes a
// half-evicted frame.
//
// Operations never block waiting for a frame; when the free list is empty
// and nothing is evictable they fail with ErrCodePoolExhausted and the
// caller retries or aborts.
type BufferPoolManager struct {
	latch sync.Mutex

	poolSize  uint32
	pages     []*Page             // frame store, preallocated
	pageTable map[PageID]FrameID  // resident pages only
	freeList  []FrameID           // frames not assigned to any page
	replacer  Replacer
	disk      DiskManager

	nextPageID PageID // monotonic allocator; ids are never reused

	metrics    *Metrics
	logger     Logger
	prefetcher atomic.Pointer[Prefetcher] // published once by EnablePrefetch
}

// NewBufferPoolManager creates a buffer pool with poolSize frames and an
// LRU-K replacer with history depth k
func NewBufferPoolManager(poolSize uint32, k uint32, disk DiskManager) (*BufferPoolManager, error) {
	return NewBufferPoolManagerWithReplacer(poolSize, disk, NewReplacer("lruk", poolSize, k))
}

// NewBufferPoolManagerWithReplacer creates a buffer pool with a specific
// replacement policy
func NewBufferPoolManagerWithReplacer(poolSize uint32, disk DiskManager, replacer Replacer) (*BufferPoolManager, error) {
	if poolSize == 0 {
		return nil, ErrInvalidConfig("NewBufferPoolManager", "pool size must be greater than 0")
	}

	bpm := &BufferPoolManager{
		poolSize:  poolSize,
		pages:     make([]*Page, poolSize),
		pageTable: make(map[PageID]FrameID, poolSize),
		freeList:  make([]FrameID, 0, poolSize),
		replacer:  replacer,
		disk:      disk,
		metrics:   NewMetrics(),
		logger:    DiscardLogger{},
	}

	// Initially, every frame is in the free list
	for i := uint32(0); i < poolSize; i++ {
		bpm.pages[i] = newPage(FrameID(i))
		bpm.freeList = append(bpm.freeList, FrameID(i))
	}

	return bpm, nil
}

// SetLogger installs a logger for flush failures and eviction stalls.
// The default logger discards everything.
func (bpm *BufferPoolManager) SetLogger(logger Logger) {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()
	if logger == nil {
		logger = DiscardLogger{}
	}
	bpm.logger = logger
}

// EnablePrefetch attaches a sequential prefetcher to FetchPage.
// Safe to call while other goroutines fetch.
func (bpm *BufferPoolManager) EnablePrefetch() {
	bpm.prefetcher.Store(NewPrefetcher(bpm))
}

// GetPoolSize returns the number of frames in the pool
func (bpm *BufferPoolManager) GetPoolSize() uint32 {
	return bpm.poolSize
}

// GetMetrics returns the pool's metrics
func (bpm *BufferPoolManager) GetMetrics() *Metrics {
	return bpm.metrics
}

// NewPage allocates a fresh page id, assigns it a frame (free list first,
// eviction second), and returns the page pinned with zeroed contents.
// Fails with ErrCodePoolExhausted when no frame can be obtained, and with
// ErrCodeFlushFailed when the victim's dirty flush fails - in that case
// pool state is unchanged and no page is allocated.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, err := bpm.acquireFrame("NewPage")
	if err != nil {
		return nil, err
	}

	pageID := bpm.nextPageID
	bpm.nextPageID++

	page := bpm.pages[frameID]
	page.pageID = pageID
	page.pin()

	bpm.pageTable[pageID] = frameID
	bpm.replacer.RecordAccess(frameID)
	bpm.replacer.SetEvictable(frameID, false)

	return page, nil
}

// FetchPage returns the resident page pinned, or reads it from disk into
// a newly obtained frame. Every fetch records an access with the
// replacement policy.
func (bpm *BufferPoolManager) FetchPage(pageID PageID) (*Page, error) {
	if p := bpm.prefetcher.Load(); p != nil {
		p.RecordAccess(pageID)
	}
	return bpm.fetchPage(pageID)
}

// fetchPage is FetchPage without prefetch pattern recording, used by the
// prefetcher itself to warm frames
func (bpm *BufferPoolManager) fetchPage(pageID PageID) (*Page, error) {
	start := time.Now()
	defer func() {
		bpm.metrics.RecordPageFetchLatency(time.Since(start))
	}()

	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	if pageID == InvalidPageID {
		return nil, ErrInvalidPageID("FetchPage", pageID)
	}

	// Already resident: pin and record the access
	if frameID, ok := bpm.pageTable[pageID]; ok {
		bpm.metrics.RecordCacheHit()
		page := bpm.pages[frameID]
		page.pin()
		bpm.replacer.RecordAccess(frameID)
		bpm.replacer.SetEvictable(frameID, false)
		return page, nil
	}

	bpm.metrics.RecordCacheMiss()

	frameID, err := bpm.acquireFrame("FetchPage")
	if err != nil {
		return nil, err
	}

	page := bpm.pages[frameID]

	readStart := time.Now()
	if err := bpm.disk.ReadPage(pageID, page.data[:]); err != nil {
		// The frame was already reset by acquireFrame; hand it back
		page.reset()
		bpm.freeList = append(bpm.freeList, frameID)
		return nil, ErrReadFailed("FetchPage", pageID, err)
	}
	bpm.metrics.RecordDiskReadLatency(time.Since(readStart))

	page.pageID = pageID
	page.pin()

	bpm.pageTable[pageID] = frameID
	bpm.replacer.RecordAccess(frameID)
	bpm.replacer.SetEvictable(frameID, false)

	return page, nil
}

// UnpinPage decrements the page's pin count. Fails if the page is not
// resident or its pin count is already zero. isDirty marks the page dirty;
// unpinning never clears the dirty bit - only a flush does. A pin count
// reaching zero makes the frame evictable.
func (bpm *BufferPoolManager) UnpinPage(pageID PageID, isDirty bool) error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return ErrPageNotResident("UnpinPage", pageID)
	}

	page := bpm.pages[frameID]
	if page.GetPinCount() <= 0 {
		return ErrInvalidPin("UnpinPage", pageID)
	}

	if isDirty {
		page.setDirty(true)
	}

	if page.unpin() == 0 {
		bpm.replacer.SetEvictable(frameID, true)
	}

	return nil
}

// FlushPage writes the page's current bytes to disk regardless of pin
// state and clears the dirty bit. Fails if the page is not resident. A
// failed write leaves the dirty bit and contents untouched.
func (bpm *BufferPoolManager) FlushPage(pageID PageID) error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return ErrPageNotResident("FlushPage", pageID)
	}

	return bpm.flushFrame(bpm.pages[frameID])
}

// FlushAllPages flushes every resident page regardless of dirty state,
// like FlushPage does for one. Best-effort: an individual failure is
// logged and does not stop the rest; the first error is returned after
// all pages have been attempted. Uses the backend's batch write when
// available to amortize fsync.
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	resident := make([]*Page, 0, len(bpm.pageTable))
	for _, frameID := range bpm.pageTable {
		page := bpm.pages[frameID]
		if page.GetPageId() == InvalidPageID {
			continue
		}
		resident = append(resident, page)
	}

	if len(resident) == 0 {
		return nil
	}

	// Batch path: all resident pages in one vectored write, single fsync
	if bw, ok := bpm.disk.(BatchWriter); ok {
		writes := make([]PageWrite, 0, len(resident))
		for _, page := range resident {
			writes = append(writes, PageWrite{PageID: page.GetPageId(), Data: page.data[:]})
		}

		start := time.Now()
		if err := bw.WritePages(writes); err != nil {
			bpm.logger.Error("batch flush failed", "pages", len(writes), "error", err)
			return ErrFlushFailed("FlushAllPages", InvalidPageID, err)
		}
		bpm.metrics.RecordDiskWriteLatency(time.Since(start))

		for _, page := range resident {
			page.setDirty(false)
			bpm.metrics.RecordDirtyPageFlush()
		}
		return nil
	}

	// Fallback: page-at-a-time, keep going past failures
	var firstErr error
	for _, page := range resident {
		if err := bpm.flushFrame(page); err != nil {
			bpm.logger.Error("flush failed", "page_id", page.GetPageId(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DeletePage removes a page from the pool and returns its frame to the
// free list. Fails if the page is pinned. Deleting a non-resident page is
// a no-op success; the page id is never reused either way.
func (bpm *BufferPoolManager) DeletePage(pageID PageID) error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return nil
	}

	page := bpm.pages[frameID]
	if pins := page.GetPinCount(); pins > 0 {
		return ErrPagePinned("DeletePage", pageID, pins)
	}

	// Stop tracking and return the frame to the free list
	bpm.replacer.Remove(frameID)
	delete(bpm.pageTable, pageID)
	page.reset()
	bpm.freeList = append(bpm.freeList, frameID)

	return nil
}

// GetDirtyPageCount returns the number of dirty resident pages
func (bpm *BufferPoolManager) GetDirtyPageCount() int {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	count := 0
	for _, frameID := range bpm.pageTable {
		if bpm.pages[frameID].IsDirty() {
			count++
		}
	}
	return count
}

// acquireFrame obtains an empty frame: free list first, eviction second.
// The returned frame is reset, out of the free list, and untracked by the
// replacer. Called with the pool latch held.
func (bpm *BufferPoolManager) acquireFrame(op string) (FrameID, error) {
	if len(bpm.freeList) > 0 {
		frameID := bpm.freeList[0]
		bpm.freeList = bpm.freeList[1:]
		return frameID, nil
	}

	frameID, ok := bpm.replacer.Evict()
	if !ok {
		bpm.metrics.RecordPoolExhausted()
		return 0, ErrPoolExhausted(op)
	}

	victim := bpm.pages[frameID]

	// Flush-before-reuse: a dirty victim must hit disk before its frame is
	// repurposed. On failure the victim stays resident and dirty; only its
	// access history is lost, which makes it a preferred victim next time.
	if victim.IsDirty() {
		if err := bpm.flushFrame(victim); err != nil {
			bpm.replacer.SetEvictable(frameID, true)
			bpm.logger.Error("evicting flush failed", "page_id", victim.GetPageId(), "error", err)
			return 0, ErrFlushFailed(op, victim.GetPageId(), err)
		}
	}

	bpm.metrics.RecordPageEviction()
	delete(bpm.pageTable, victim.GetPageId())
	victim.reset()

	return frameID, nil
}

// flushFrame writes a frame's page to disk and clears the dirty bit.
// Called with the pool latch held; FlushPage is the locking entry point.
func (bpm *BufferPoolManager) flushFrame(page *Page) error {
	start := time.Now()
	if err := bpm.disk.WritePage(page.GetPageId(), page.data[:]); err != nil {
		return ErrFlushFailed("flushFrame", page.GetPageId(), err)
	}
	bpm.metrics.RecordDiskWriteLatency(time.Since(start))
	bpm.metrics.RecordDirtyPageFlush()

	page.setDirty(false)
	return nil
}
