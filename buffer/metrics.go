package buffer

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram tracks latency distribution with percentile support.
// Bounded: keeps the most recent maxSize samples.
type Histogram struct {
	mu      sync.Mutex
	samples []float64 // Latencies in microseconds
	maxSize int
	sorted  bool
}

// NewHistogram creates a histogram retaining up to maxSize samples
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000 // Default: keep last 10k samples
	}
	return &Histogram{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
		sorted:  true,
	}
}

// Record adds a latency sample (in microseconds)
func (h *Histogram) Record(latencyUs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// At capacity: drop the oldest sample (FIFO)
	if len(h.samples) >= h.maxSize {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}

	h.samples = append(h.samples, latencyUs)
	h.sorted = false
}

// Percentile calculates the given percentile (0-100)
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}

	if !h.sorted {
		sort.Float64s(h.samples)
		h.sorted = true
	}

	rank := (p / 100.0) * float64(len(h.samples)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return h.samples[lower]
	}

	// Linear interpolation between neighboring samples
	weight := rank - float64(lower)
	return h.samples[lower]*(1-weight) + h.samples[upper]*weight
}

// Mean calculates the average latency
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range h.samples {
		sum += v
	}
	return sum / float64(len(h.samples))
}

// Min returns the smallest recorded latency
func (h *Histogram) Min() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}
	min := h.samples[0]
	for _, v := range h.samples[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest recorded latency
func (h *Histogram) Max() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}
	max := h.samples[0]
	for _, v := range h.samples[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Count returns the number of retained samples
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// Reset clears all samples
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
	h.sorted = true
}

// HistogramSnapshot is a point-in-time percentile summary
type HistogramSnapshot struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	P50   float64 // Median
	P95   float64
	P99   float64
}

// Snapshot captures current histogram statistics
func (h *Histogram) Snapshot() HistogramSnapshot {
	return HistogramSnapshot{
		Count: h.Count(),
		Min:   h.Min(),
		Max:   h.Max(),
		Mean:  h.Mean(),
		P50:   h.Percentile(50),
		P95:   h.Percentile(95),
		P99:   h.Percentile(99),
	}
}

// Metrics tracks buffer pool performance
type Metrics struct {
	cacheHits        atomic.Uint64
	cacheMisses      atomic.Uint64
	pageEvictions    atomic.Uint64
	dirtyPageFlushes atomic.Uint64
	poolExhausted    atomic.Uint64
	pagesPrefetched  atomic.Uint64

	// Latency histograms (microseconds)
	pageFetchLatency *Histogram
	diskReadLatency  *Histogram
	diskWriteLatency *Histogram

	startTime time.Time
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{
		pageFetchLatency: NewHistogram(10000),
		diskReadLatency:  NewHistogram(10000),
		diskWriteLatency: NewHistogram(10000),
		startTime:        time.Now(),
	}
}

func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

func (m *Metrics) RecordPageEviction() {
	m.pageEvictions.Add(1)
}

func (m *Metrics) RecordDirtyPageFlush() {
	m.dirtyPageFlushes.Add(1)
}

func (m *Metrics) RecordPoolExhausted() {
	m.poolExhausted.Add(1)
}

func (m *Metrics) RecordPagePrefetched() {
	m.pagesPrefetched.Add(1)
}

func (m *Metrics) RecordPageFetchLatency(d time.Duration) {
	m.pageFetchLatency.Record(float64(d.Microseconds()))
}

func (m *Metrics) RecordDiskReadLatency(d time.Duration) {
	m.diskReadLatency.Record(float64(d.Microseconds()))
}

func (m *Metrics) RecordDiskWriteLatency(d time.Duration) {
	m.diskWriteLatency.Record(float64(d.Microseconds()))
}

func (m *Metrics) GetCacheHits() uint64 {
	return m.cacheHits.Load()
}

func (m *Metrics) GetCacheMisses() uint64 {
	return m.cacheMisses.Load()
}

// GetCacheHitRate returns hits / (hits + misses), or 0 with no traffic
func (m *Metrics) GetCacheHitRate() float64 {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (m *Metrics) GetPageEvictions() uint64 {
	return m.pageEvictions.Load()
}

func (m *Metrics) GetDirtyPageFlushes() uint64 {
	return m.dirtyPageFlushes.Load()
}

func (m *Metrics) GetPoolExhausted() uint64 {
	return m.poolExhausted.Load()
}

func (m *Metrics) GetPagesPrefetched() uint64 {
	return m.pagesPrefetched.Load()
}

func (m *Metrics) GetPageFetchLatency() HistogramSnapshot {
	return m.pageFetchLatency.Snapshot()
}

func (m *Metrics) GetDiskReadLatency() HistogramSnapshot {
	return m.diskReadLatency.Snapshot()
}

func (m *Metrics) GetDiskWriteLatency() HistogramSnapshot {
	return m.diskWriteLatency.Snapshot()
}

func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.startTime)
}

// LogMetrics reports a summary through the given logger
func (m *Metrics) LogMetrics(logger Logger) {
	fetch := m.GetPageFetchLatency()

	logger.Info("buffer pool metrics",
		"cache_hits", m.GetCacheHits(),
		"cache_misses", m.GetCacheMisses(),
		"cache_hit_rate", m.GetCacheHitRate(),
		"page_evictions", m.GetPageEvictions(),
		"dirty_page_flushes", m.GetDirtyPageFlushes(),
		"pool_exhausted", m.GetPoolExhausted(),
		"pages_prefetched", m.GetPagesPrefetched(),
		"fetch_latency_us_p50", fetch.P50,
		"fetch_latency_us_p99", fetch.P99,
		"uptime", m.GetUptime().String(),
	)
}
