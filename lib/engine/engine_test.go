package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArenaEngineValidation(t *testing.T) {
	// nil options fall back to defaults
	e, err := NewArenaEngine(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, e.SegmentList())
	require.NoError(t, e.Close())

	_, err = NewArenaEngine(&Options{Alignment: 3})
	assert.Error(t, err, "non-power-of-two alignment must be rejected")

	_, err = NewArenaEngine(&Options{ChunkSize: entryHeaderSize - 1, SegmentBytes: 1024})
	assert.Error(t, err, "chunk size below the header size must be rejected")

	_, err = NewArenaEngine(&Options{ChunkSize: 48, SegmentBytes: 1000})
	assert.Error(t, err, "segment size must be a multiple of the chunk size")
}

func TestHashKeyIsDeterministicPerEngine(t *testing.T) {
	e1, err := NewArenaEngine(&Options{Segments: 4})
	require.NoError(t, err)
	defer e1.Close()

	key := []byte("some-key")
	assert.Equal(t, e1.HashKey(key), e1.HashKey(key))
	assert.NotEqual(t, e1.HashKey(key), e1.HashKey([]byte("other-key")))

	// seeds differ between instances, so hashes usually do too
	e2, err := NewArenaEngine(&Options{Segments: 4})
	require.NoError(t, err)
	defer e2.Close()
	assert.NotEqual(t, e1.HashKey(key), e2.HashKey(key))
}

func TestSegmentForCoversAllSegments(t *testing.T) {
	e, err := NewArenaEngine(&Options{Segments: 8})
	require.NoError(t, err)
	defer e.Close()

	hit := make(map[Segment]bool)
	for i := 0; i < 10000; i++ {
		hash := e.HashKey([]byte(fmt.Sprintf("key-%d", i)))
		hit[e.SegmentFor(hash)] = true
	}
	assert.Len(t, hit, 8, "every segment should receive keys")
}

func TestInfoTracksUtilization(t *testing.T) {
	e, err := NewArenaEngine(&Options{Segments: 2, SegmentBytes: 1 << 16})
	require.NoError(t, err)
	defer e.Close()

	info := e.Info()
	assert.Equal(t, 2, info.SegmentCount)
	assert.Equal(t, 2<<16, info.TotalBytes)
	assert.Zero(t, info.UsedBytes)
	assert.Zero(t, info.Entries)

	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		hash := e.HashKey(key)
		seg := e.SegmentFor(hash)
		g := seg.Acquire(WriteLock)
		_, err := seg.Insert(hash, key, []byte("value"))
		require.NoError(t, g.Release())
		require.NoError(t, err)
	}

	info = e.Info()
	assert.Equal(t, 100, info.Entries)
	assert.Greater(t, info.UsedBytes, 0)
	assert.Greater(t, info.Distribution.Mean, 0.0)
	assert.Greater(t, info.Distribution.DistributionQuality, 0.0)
}

func TestGuardReleaseExactlyOnce(t *testing.T) {
	e, err := NewArenaEngine(&Options{Segments: 1})
	require.NoError(t, err)
	defer e.Close()

	seg := e.SegmentList()[0]

	g := seg.Acquire(WriteLock)
	assert.True(t, g.Held())
	assert.Equal(t, WriteLock, g.Mode())

	require.NoError(t, g.Release())
	assert.False(t, g.Held())
	assert.ErrorIs(t, g.Release(), ErrGuardReleased)

	// the lock really was released: a second acquisition must not block
	g2 := seg.Acquire(WriteLock)
	require.NoError(t, g2.Release())
}

func TestConcurrentReadGuards(t *testing.T) {
	e, err := NewArenaEngine(&Options{Segments: 1})
	require.NoError(t, err)
	defer e.Close()

	seg := e.SegmentList()[0]

	// two read guards may be held at once
	g1 := seg.Acquire(ReadLock)
	g2 := seg.Acquire(ReadLock)
	require.NoError(t, g1.Release())
	require.NoError(t, g2.Release())
}

func TestGCD(t *testing.T) {
	assert.Equal(t, 8, gcd(64, 8))
	assert.Equal(t, 4, gcd(12, 8))
	assert.Equal(t, 1, gcd(7, 8))
	assert.Equal(t, 8, gcd(8, 8))
}

func TestStats(t *testing.T) {
	s := newStats(nil)
	assert.Zero(t, s.Mean)

	s = newStats([]float64{2, 4, 6, 8})
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 8.0, s.Max)
	assert.InDelta(t, 2.236, s.StdDeviation, 0.001)
	assert.InDelta(t, 0.25, s.MinMaxRatio, 0.0001)
}
