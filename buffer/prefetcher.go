package buffer

import (
	"sync"
	"sync/atomic"
)

// PrefetchStats tracks prefetching effectiveness
type PrefetchStats struct {
	PatternsDetected uint64
	PagesPrefetched  uint64
	PrefetchErrors   uint64 // reads that failed (page not on disk yet)
}

// Prefetcher watches the fetch stream for constant-stride runs and warms
// the pool ahead of them. Prefetched pages are fetched and immediately
// unpinned, so they sit in frames as evictable until the scan reaches
// them. Prefetching is asynchronous and never fails a caller's fetch.
type Prefetcher struct {
	bpm *BufferPoolManager

	mu         sync.Mutex
	lastPageID PageID
	stride     int64
	runLength  int
	hasLast    bool

	detectionThreshold int // consecutive same-stride accesses to trigger
	prefetchDistance   int // pages fetched ahead of the run

	inFlight atomic.Bool // at most one background prefetch at a time

	patternsDetected atomic.Uint64
	pagesPrefetched  atomic.Uint64
	prefetchErrors   atomic.Uint64
}

// NewPrefetcher creates a prefetcher for the given buffer pool
func NewPrefetcher(bpm *BufferPoolManager) *Prefetcher {
	return &Prefetcher{
		bpm:                bpm,
		detectionThreshold: 3,
		prefetchDistance:   8,
	}
}

// Configure sets detection threshold and prefetch distance
func (p *Prefetcher) Configure(detectionThreshold, prefetchDistance int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if detectionThreshold > 0 {
		p.detectionThreshold = detectionThreshold
	}
	if prefetchDistance > 0 {
		p.prefetchDistance = prefetchDistance
	}
}

// RecordAccess feeds one fetched page id into stride detection and kicks
// off a background prefetch when a run clears the threshold
func (p *Prefetcher) RecordAccess(pageID PageID) {
	p.mu.Lock()

	if !p.hasLast {
		p.hasLast = true
		p.lastPageID = pageID
		p.mu.Unlock()
		return
	}

	stride := int64(pageID) - int64(p.lastPageID)
	p.lastPageID = pageID

	if stride == 0 {
		p.mu.Unlock()
		return
	}

	if stride == p.stride {
		p.runLength++
	} else {
		p.stride = stride
		p.runLength = 1
	}

	trigger := p.runLength >= p.detectionThreshold
	start := int64(pageID) + stride
	distance := p.prefetchDistance
	p.mu.Unlock()

	if !trigger {
		return
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}

	p.patternsDetected.Add(1)
	go p.prefetch(start, stride, distance)
}

// prefetch warms up to distance pages along the detected stride.
// Read failures end the run quietly; the pages simply are not on disk.
func (p *Prefetcher) prefetch(start, stride int64, distance int) {
	defer p.inFlight.Store(false)

	for i := 0; i < distance; i++ {
		id := start + stride*int64(i)
		if id < 0 || id >= int64(InvalidPageID) {
			return
		}

		page, err := p.bpm.fetchPage(PageID(id))
		if err != nil {
			p.prefetchErrors.Add(1)
			return
		}
		p.pagesPrefetched.Add(1)
		p.bpm.metrics.RecordPagePrefetched()

		// Unpin right away; the warm frame is the point
		_ = p.bpm.UnpinPage(page.GetPageId(), false)
	}
}

// Stats returns prefetching counters
func (p *Prefetcher) Stats() PrefetchStats {
	return PrefetchStats{
		PatternsDetected: p.patternsDetected.Load(),
		PagesPrefetched:  p.pagesPrefetched.Load(),
		PrefetchErrors:   p.prefetchErrors.Load(),
	}
}
