package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefetcherDetectsSequentialRun(t *testing.T) {
	t.Parallel()

	disk := newMemDiskManager()
	var zero [PageSize]byte
	for id := PageID(0); id < 32; id++ {
		require.NoError(t, disk.WritePage(id, zero[:]))
	}

	bpm, err := NewBufferPoolManager(32, 2, disk)
	require.NoError(t, err)
	bpm.EnablePrefetch()

	// Three consecutive stride-1 steps trigger a background prefetch
	for id := PageID(0); id < 4; id++ {
		page, err := bpm.FetchPage(id)
		require.NoError(t, err)
		require.NoError(t, bpm.UnpinPage(page.GetPageId(), false))
	}

	require.Eventually(t, func() bool {
		return bpm.prefetcher.Load().Stats().PagesPrefetched >= 8
	}, 2*time.Second, 5*time.Millisecond)

	stats := bpm.prefetcher.Load().Stats()
	assert.Equal(t, uint64(1), stats.PatternsDetected)
	assert.Equal(t, uint64(0), stats.PrefetchErrors)
	assert.Equal(t, uint64(8), bpm.GetMetrics().GetPagesPrefetched())

	// The warmed pages are cache hits now
	hitsBefore := bpm.GetMetrics().GetCacheHits()
	page, err := bpm.FetchPage(5)
	require.NoError(t, err)
	require.NoError(t, bpm.UnpinPage(page.GetPageId(), false))
	assert.Equal(t, hitsBefore+1, bpm.GetMetrics().GetCacheHits())
}

func TestPrefetcherBackwardStride(t *testing.T) {
	t.Parallel()

	disk := newMemDiskManager()
	var zero [PageSize]byte
	for id := PageID(0); id < 32; id++ {
		require.NoError(t, disk.WritePage(id, zero[:]))
	}

	bpm, err := NewBufferPoolManager(32, 2, disk)
	require.NoError(t, err)
	bpm.EnablePrefetch()
	bpm.prefetcher.Load().Configure(3, 4)

	// Descending scan: 20, 19, 18, 17 gives a stride of -1
	for id := PageID(20); id >= 17; id-- {
		page, err := bpm.FetchPage(id)
		require.NoError(t, err)
		require.NoError(t, bpm.UnpinPage(page.GetPageId(), false))
	}

	require.Eventually(t, func() bool {
		return bpm.prefetcher.Load().Stats().PagesPrefetched >= 4
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPrefetcherIgnoresRandomAccess(t *testing.T) {
	t.Parallel()

	bpm, err := NewBufferPoolManager(8, 2, newMemDiskManager())
	require.NoError(t, err)
	p := NewPrefetcher(bpm)

	// No three consecutive accesses share a stride
	for _, id := range []PageID{0, 10, 3, 40, 2, 90, 7} {
		p.RecordAccess(id)
	}

	stats := p.Stats()
	assert.Equal(t, uint64(0), stats.PatternsDetected)
	assert.Equal(t, uint64(0), stats.PagesPrefetched)
}

func TestPrefetcherRepeatedPageIsNotAStride(t *testing.T) {
	t.Parallel()

	bpm, err := NewBufferPoolManager(8, 2, newMemDiskManager())
	require.NoError(t, err)
	p := NewPrefetcher(bpm)

	for i := 0; i < 10; i++ {
		p.RecordAccess(5)
	}

	assert.Equal(t, uint64(0), p.Stats().PatternsDetected)
}

func TestPrefetcherStrideChangeResetsRun(t *testing.T) {
	t.Parallel()

	bpm, err := NewBufferPoolManager(8, 2, newMemDiskManager())
	require.NoError(t, err)
	p := NewPrefetcher(bpm)
	p.Configure(3, 4)

	// Two stride-1 steps, then a jump, then two more: no run of three
	for _, id := range []PageID{0, 1, 2, 50, 51, 52} {
		p.RecordAccess(id)
	}

	assert.Equal(t, uint64(0), p.Stats().PatternsDetected)
}

func TestPrefetcherStopsAtMissingPages(t *testing.T) {
	t.Parallel()

	disk := newMemDiskManager()
	var zero [PageSize]byte
	// Only pages 0..5 exist; the prefetch run hits the end of the file
	for id := PageID(0); id <= 5; id++ {
		require.NoError(t, disk.WritePage(id, zero[:]))
	}

	bpm, err := NewBufferPoolManager(16, 2, disk)
	require.NoError(t, err)
	bpm.EnablePrefetch()

	for id := PageID(0); id < 4; id++ {
		page, err := bpm.FetchPage(id)
		require.NoError(t, err)
		require.NoError(t, bpm.UnpinPage(page.GetPageId(), false))
	}

	// Pages 4 and 5 get warmed, page 6 ends the run quietly
	require.Eventually(t, func() bool {
		stats := bpm.prefetcher.Load().Stats()
		return stats.PagesPrefetched == 2 && stats.PrefetchErrors == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEnablePrefetchDuringFetches(t *testing.T) {
	t.Parallel()

	disk := newMemDiskManager()
	var zero [PageSize]byte
	for id := PageID(0); id < 16; id++ {
		require.NoError(t, disk.WritePage(id, zero[:]))
	}

	bpm, err := NewBufferPoolManager(16, 2, disk)
	require.NoError(t, err)

	// Turning prefetch on mid-flight must not race with FetchPage
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := PageID((seed*31 + i) % 16)
				page, err := bpm.FetchPage(id)
				if err != nil {
					continue
				}
				_ = bpm.UnpinPage(page.GetPageId(), false)
			}
		}(g)
	}
	bpm.EnablePrefetch()
	wg.Wait()

	assert.NotNil(t, bpm.prefetcher.Load())
}

func TestPrefetcherConfigureIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	bpm, err := NewBufferPoolManager(8, 2, newMemDiskManager())
	require.NoError(t, err)
	p := NewPrefetcher(bpm)

	p.Configure(0, -1)
	p.Configure(5, 2)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 5, p.detectionThreshold)
	assert.Equal(t, 2, p.prefetchDistance)
}
