package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistogramEmpty(t *testing.T) {
	t.Parallel()

	h := NewHistogram(100)
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, 0.0, h.Percentile(50))
	assert.Equal(t, 0.0, h.Mean())
	assert.Equal(t, 0.0, h.Min())
	assert.Equal(t, 0.0, h.Max())
}

func TestHistogramPercentiles(t *testing.T) {
	t.Parallel()

	h := NewHistogram(1000)
	for i := 1; i <= 100; i++ {
		h.Record(float64(i))
	}

	assert.Equal(t, 100, h.Count())
	assert.Equal(t, 1.0, h.Min())
	assert.Equal(t, 100.0, h.Max())
	assert.Equal(t, 50.5, h.Mean())
	assert.InDelta(t, 50.5, h.Percentile(50), 0.001)
	assert.InDelta(t, 95.05, h.Percentile(95), 0.001)
	assert.Equal(t, 1.0, h.Percentile(0))
	assert.Equal(t, 100.0, h.Percentile(100))
}

func TestHistogramSingleSample(t *testing.T) {
	t.Parallel()

	h := NewHistogram(10)
	h.Record(7)
	assert.Equal(t, 7.0, h.Percentile(50))
	assert.Equal(t, 7.0, h.Percentile(99))
}

func TestHistogramBounded(t *testing.T) {
	t.Parallel()

	// Capacity 3: the oldest samples fall off
	h := NewHistogram(3)
	for i := 1; i <= 5; i++ {
		h.Record(float64(i))
	}

	assert.Equal(t, 3, h.Count())
	assert.Equal(t, 3.0, h.Min())
	assert.Equal(t, 5.0, h.Max())
}

func TestHistogramReset(t *testing.T) {
	t.Parallel()

	h := NewHistogram(10)
	h.Record(1)
	h.Record(2)
	h.Reset()
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, 0.0, h.Percentile(50))
}

func TestHistogramSnapshot(t *testing.T) {
	t.Parallel()

	h := NewHistogram(100)
	for i := 1; i <= 10; i++ {
		h.Record(float64(i))
	}

	snap := h.Snapshot()
	assert.Equal(t, 10, snap.Count)
	assert.Equal(t, 1.0, snap.Min)
	assert.Equal(t, 10.0, snap.Max)
	assert.Equal(t, 5.5, snap.Mean)
	assert.InDelta(t, 5.5, snap.P50, 0.001)
}

func TestMetricsCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordPageEviction()
	m.RecordDirtyPageFlush()
	m.RecordPoolExhausted()
	m.RecordPagePrefetched()

	assert.Equal(t, uint64(3), m.GetCacheHits())
	assert.Equal(t, uint64(1), m.GetCacheMisses())
	assert.Equal(t, 0.75, m.GetCacheHitRate())
	assert.Equal(t, uint64(1), m.GetPageEvictions())
	assert.Equal(t, uint64(1), m.GetDirtyPageFlushes())
	assert.Equal(t, uint64(1), m.GetPoolExhausted())
	assert.Equal(t, uint64(1), m.GetPagesPrefetched())
}

func TestMetricsHitRateNoTraffic(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	assert.Equal(t, 0.0, m.GetCacheHitRate())
}

func TestMetricsLatencies(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordPageFetchLatency(250 * time.Microsecond)
	m.RecordDiskReadLatency(1 * time.Millisecond)
	m.RecordDiskWriteLatency(2 * time.Millisecond)

	assert.Equal(t, 1, m.GetPageFetchLatency().Count)
	assert.Equal(t, 250.0, m.GetPageFetchLatency().Max)
	assert.Equal(t, 1000.0, m.GetDiskReadLatency().Max)
	assert.Equal(t, 2000.0, m.GetDiskWriteLatency().Max)
}

// capturingLogger records log calls for assertions
type capturingLogger struct {
	infos []string
}

func (c *capturingLogger) Error(msg string, args ...any) {}
func (c *capturingLogger) Warn(msg string, args ...any)  {}
func (c *capturingLogger) Info(msg string, args ...any) {
	c.infos = append(c.infos, msg)
}

func TestLogMetrics(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordCacheHit()

	logger := &capturingLogger{}
	m.LogMetrics(logger)
	assert.Equal(t, []string{"buffer pool metrics"}, logger.infos)
}
