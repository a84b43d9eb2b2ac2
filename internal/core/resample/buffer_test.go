package resample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func bufAt(samples ...Point[float64]) *buffer[float64, Point[float64]] {
	b := &buffer[float64, Point[float64]]{}
	for _, s := range samples {
		b.insert(s)
	}
	return b
}

func TestBufferInsertKeepsTimestampOrder(t *testing.T) {
	sec := func(n int) time.Time { return testStart.Add(time.Duration(n) * time.Second) }
	b := bufAt(
		NewPoint(sec(5), 5.0),
		NewPoint(sec(1), 1.0),
		NewPoint(sec(3), 3.0),
	)

	require.Equal(t, 3, b.len())
	for i := 1; i < b.len(); i++ {
		require.False(t, b.samples[i].Timestamp().Before(b.samples[i-1].Timestamp()))
	}
}

func TestBufferWindowIsHalfOpen(t *testing.T) {
	sec := func(n int) time.Time { return testStart.Add(time.Duration(n) * time.Second) }
	b := bufAt(
		NewPoint(sec(0), 0.0),
		NewPoint(sec(4), 4.0),
		NewPoint(sec(5), 5.0),
		NewPoint(sec(9), 9.0),
	)

	got := b.window(sec(0), sec(5))
	require.Len(t, got, 2)
	require.Equal(t, sec(0), got[0].Timestamp())
	require.Equal(t, sec(4), got[1].Timestamp())

	require.Empty(t, b.window(sec(10), sec(15)))
}

func TestBufferNearestBefore(t *testing.T) {
	sec := func(n int) time.Time { return testStart.Add(time.Duration(n) * time.Second) }
	b := bufAt(
		NewPoint(sec(1), 1.0),
		NewPoint(sec(3), 3.0),
	)

	s, ok := b.nearestBefore(sec(5), sec(0))
	require.True(t, ok)
	require.Equal(t, sec(3), s.Timestamp())

	// Floor excludes anything older.
	_, ok = b.nearestBefore(sec(5), sec(4))
	require.False(t, ok)

	// Nothing before the earliest sample.
	_, ok = b.nearestBefore(sec(1), sec(0))
	require.False(t, ok)
}

func TestBufferNearestAfter(t *testing.T) {
	sec := func(n int) time.Time { return testStart.Add(time.Duration(n) * time.Second) }
	b := bufAt(
		NewPoint(sec(1), 1.0),
		NewPoint(sec(3), 3.0),
	)

	s, ok := b.nearestAfter(sec(2), sec(10))
	require.True(t, ok)
	require.Equal(t, sec(3), s.Timestamp())

	_, ok = b.nearestAfter(sec(2), sec(2))
	require.False(t, ok)

	_, ok = b.nearestAfter(sec(4), sec(10))
	require.False(t, ok)
}

func TestBufferEvictBefore(t *testing.T) {
	sec := func(n int) time.Time { return testStart.Add(time.Duration(n) * time.Second) }
	b := bufAt(
		NewPoint(sec(0), 0.0),
		NewPoint(sec(2), 2.0),
		NewPoint(sec(4), 4.0),
	)

	b.evictBefore(sec(3))
	require.Equal(t, 1, b.len())
	require.Equal(t, sec(4), b.samples[0].Timestamp())

	// Inserting below the watermark is a no-op.
	b.insert(NewPoint(sec(1), 1.0))
	require.Equal(t, 1, b.len())

	// A sample exactly at the watermark is retained.
	b.insert(NewPoint(sec(3), 3.0))
	require.Equal(t, 2, b.len())

	// The watermark never rewinds.
	b.evictBefore(sec(1))
	require.Equal(t, 2, b.len())
	b.insert(NewPoint(sec(2), 2.0))
	require.Equal(t, 2, b.len())
}
