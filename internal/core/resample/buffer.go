package resample

import (
	"sort"
	"time"
)

// buffer holds pushed samples ordered by timestamp, together with the
// low watermark below which samples can no longer contribute to any
// future bucket. Its size is bounded by the samples received within the
// staleness bound plus the unconsumed tail past the cursor, not by the
// length of the stream.
type buffer[V Real, S Sample[V]] struct {
	samples []S
	// watermark is the threshold of the most recent eviction. Samples
	// pushed with an older timestamp are silently dropped on insert.
	watermark time.Time
	hasMark   bool
}

// insert places s at its timestamp position. Equal timestamps keep push
// order, so the later-pushed sample sorts later — the tie-break rule
// Last and First rely on.
func (b *buffer[V, S]) insert(s S) {
	ts := s.Timestamp()
	if b.hasMark && ts.Before(b.watermark) {
		return
	}
	i := sort.Search(len(b.samples), func(i int) bool {
		return b.samples[i].Timestamp().After(ts)
	})
	b.samples = append(b.samples, s)
	copy(b.samples[i+1:], b.samples[i:])
	b.samples[i] = s
}

// window returns the ordered sub-sequence with from <= timestamp < to.
// The returned slice aliases the buffer and is only valid until the
// next mutation.
func (b *buffer[V, S]) window(from, to time.Time) []S {
	lo := sort.Search(len(b.samples), func(i int) bool {
		return !b.samples[i].Timestamp().Before(from)
	})
	hi := sort.Search(len(b.samples), func(i int) bool {
		return !b.samples[i].Timestamp().Before(to)
	})
	return b.samples[lo:hi]
}

// nearestBefore returns the latest sample with timestamp < t that is
// not older than floor. Ties resolve to the last-pushed sample.
func (b *buffer[V, S]) nearestBefore(t, floor time.Time) (S, bool) {
	var zero S
	i := sort.Search(len(b.samples), func(i int) bool {
		return !b.samples[i].Timestamp().Before(t)
	})
	if i == 0 {
		return zero, false
	}
	s := b.samples[i-1]
	if s.Timestamp().Before(floor) {
		return zero, false
	}
	return s, true
}

// nearestAfter returns the earliest sample with timestamp >= t that is
// not past ceil.
func (b *buffer[V, S]) nearestAfter(t, ceil time.Time) (S, bool) {
	var zero S
	i := sort.Search(len(b.samples), func(i int) bool {
		return !b.samples[i].Timestamp().Before(t)
	})
	if i == len(b.samples) {
		return zero, false
	}
	s := b.samples[i]
	if s.Timestamp().After(ceil) {
		return zero, false
	}
	return s, true
}

// evictBefore drops every sample with timestamp strictly less than t
// and raises the insert watermark. The watermark never moves backwards.
func (b *buffer[V, S]) evictBefore(t time.Time) {
	if b.hasMark && !t.After(b.watermark) {
		return
	}
	b.watermark = t
	b.hasMark = true
	i := sort.Search(len(b.samples), func(i int) bool {
		return !b.samples[i].Timestamp().Before(t)
	})
	if i == 0 {
		return
	}
	n := copy(b.samples, b.samples[i:])
	for j := n; j < len(b.samples); j++ {
		var zero S
		b.samples[j] = zero
	}
	b.samples = b.samples[:n]
}

func (b *buffer[V, S]) len() int { return len(b.samples) }
