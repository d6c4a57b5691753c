package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictEmpty(t *testing.T) {
	t.Parallel()

	r := NewLRUReplacer(10)
	_, ok := r.Evict()
	assert.False(t, ok)
	assert.Equal(t, uint32(0), r.Size())
}

func TestLRUEvictionOrder(t *testing.T) {
	t.Parallel()

	r := NewLRUReplacer(10)
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)
	r.SetEvictable(3, true)

	for _, want := range []FrameID{1, 2, 3} {
		victim, ok := r.Evict()
		require.True(t, ok)
		assert.Equal(t, want, victim)
	}
}

func TestLRURecordAccessRefreshes(t *testing.T) {
	t.Parallel()

	r := NewLRUReplacer(10)
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)
	r.SetEvictable(3, true)

	// Frame 1 becomes the most recently used
	r.RecordAccess(1)

	for _, want := range []FrameID{2, 3, 1} {
		victim, ok := r.Evict()
		require.True(t, ok)
		assert.Equal(t, want, victim)
	}
}

func TestLRUSetEvictableRemoves(t *testing.T) {
	t.Parallel()

	r := NewLRUReplacer(10)
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)
	r.SetEvictable(1, false)
	assert.Equal(t, uint32(1), r.Size())

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), victim)

	_, ok = r.Evict()
	assert.False(t, ok)
}

func TestLRURemove(t *testing.T) {
	t.Parallel()

	r := NewLRUReplacer(10)
	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	r.Remove(1)
	r.Remove(42) // untracked, no-op
	assert.Equal(t, uint32(1), r.Size())

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, FrameID(2), victim)
}

func TestNewReplacerSelection(t *testing.T) {
	t.Parallel()

	_, isLRU := NewReplacer("lru", 10, 2).(*LRUReplacer)
	assert.True(t, isLRU)

	_, isLRUK := NewReplacer("lruk", 10, 2).(*LRUKReplacer)
	assert.True(t, isLRUK)

	// Unknown algorithms fall back to LRU-K
	_, isLRUK = NewReplacer("clock", 10, 2).(*LRUKReplacer)
	assert.True(t, isLRUK)
}
