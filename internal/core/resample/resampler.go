package resample

import (
	"errors"
	"fmt"
	"time"
)

// ErrEndBeforeCursor is returned by Resample when the requested end
// time lies before the next unemitted boundary. Passing a rewinding end
// is a programming error, unlike irregular sample input, which is
// absorbed silently.
var ErrEndBeforeCursor = errors.New("resample: end precedes cursor")

// Resampler turns an irregular, push-driven stream of samples into
// grid-aligned aggregates at a fixed interval. It is a single-owner,
// synchronous accumulator: one logical owner calls Push and Resample,
// nothing blocks, and no internal locking is provided. A Resampler may
// be handed between goroutines as long as only one mutates it at a
// time; custom functions must tolerate that hand-off.
type Resampler[V Real, S Sample[V]] struct {
	interval       time.Duration
	fn             Func
	custom         CustomFunc[V, S]
	maxAge         int
	start          time.Time
	firstTimestamp bool

	// cursor is the next boundary not yet emitted. It only advances.
	cursor time.Time
	buf    buffer[V, S]
}

// New builds a resampler emitting one aggregate per interval on the
// grid start + k*interval. maxAgeIntervals bounds, in interval widths,
// how stale a sample may be and still participate in aggregation or
// look-back; zero means no sample is ever fresh enough, so every bucket
// aggregates to missing. firstTimestamp selects whether an emitted
// bucket is stamped with its start boundary (true) or its end boundary
// (false).
func New[V Real, S Sample[V]](
	interval time.Duration,
	fn Func,
	maxAgeIntervals int,
	start time.Time,
	firstTimestamp bool,
) (*Resampler[V, S], error) {
	if interval <= 0 {
		return nil, fmt.Errorf("resample: interval must be positive, got %s", interval)
	}
	if maxAgeIntervals < 0 {
		return nil, fmt.Errorf("resample: max age must be non-negative, got %d intervals", maxAgeIntervals)
	}
	if !fn.valid() {
		return nil, fmt.Errorf("resample: %v is not a resampling function", fn)
	}
	return &Resampler[V, S]{
		interval:       interval,
		fn:             fn,
		maxAge:         maxAgeIntervals,
		start:          start,
		firstTimestamp: firstTimestamp,
		cursor:         start,
	}, nil
}

// NewCustom builds a resampler that aggregates with a caller-supplied
// fold instead of one of the built-in functions. The fold sees the
// bucket's samples after the staleness filter and has no look-back.
func NewCustom[V Real, S Sample[V]](
	interval time.Duration,
	custom CustomFunc[V, S],
	maxAgeIntervals int,
	start time.Time,
	firstTimestamp bool,
) (*Resampler[V, S], error) {
	if custom == nil {
		return nil, errors.New("resample: custom function must not be nil")
	}
	r, err := New[V, S](interval, Average, maxAgeIntervals, start, firstTimestamp)
	if err != nil {
		return nil, err
	}
	r.custom = custom
	return r, nil
}

// Push adds one sample to the buffer. Out-of-order timestamps are fine
// as long as they are not older than the eviction watermark; samples
// past it can never contribute to a future bucket and are dropped
// silently.
func (r *Resampler[V, S]) Push(s S) {
	r.buf.insert(s)
}

// PushBatch pushes samples in order.
func (r *Resampler[V, S]) PushBatch(samples []S) {
	for _, s := range samples {
		r.buf.insert(s)
	}
}

// Interval returns the fixed bucket width.
func (r *Resampler[V, S]) Interval() time.Duration { return r.interval }

// Cursor returns the next boundary that has not been emitted yet.
func (r *Resampler[V, S]) Cursor() time.Time { return r.cursor }

// BufferLen reports how many samples are currently retained.
func (r *Resampler[V, S]) BufferLen() int { return r.buf.len() }

// Resample advances bucket by bucket from the cursor up to end and
// returns one point per fully elapsed bucket, in boundary order. A
// partial bucket is never emitted; calling again later with a larger
// end resumes exactly where this call stopped, so no boundary is ever
// re-emitted or skipped. The caller owns the returned slice.
func (r *Resampler[V, S]) Resample(end time.Time) ([]Point[V], error) {
	if end.Before(r.cursor) {
		return nil, fmt.Errorf("%w: end %s, cursor %s", ErrEndBeforeCursor,
			end.Format(time.RFC3339Nano), r.cursor.Format(time.RFC3339Nano))
	}

	staleness := time.Duration(r.maxAge) * r.interval
	var out []Point[V]

	for !r.cursor.Add(r.interval).After(end) {
		bucketStart := r.cursor
		bucketEnd := bucketStart.Add(r.interval)

		samples := r.buf.window(bucketStart, bucketEnd)

		// Staleness filter: a sample participates only if it is
		// younger than maxAge intervals at the bucket's end. With
		// maxAge >= 1 this keeps the whole bucket; with maxAge == 0
		// it empties it.
		freshFloor := bucketEnd.Add(-staleness)
		for len(samples) > 0 && samples[0].Timestamp().Before(freshFloor) {
			samples = samples[1:]
		}

		ts := bucketStart
		if !r.firstTimestamp {
			ts = bucketEnd
		}

		var p Point[V]
		if r.custom != nil {
			v, ok := r.custom(samples)
			p = Point[V]{Time: ts, Val: v, Valid: ok}
		} else {
			lookBack := func() (S, bool) {
				return r.buf.nearestBefore(bucketStart, bucketStart.Add(-staleness))
			}
			v, ok := fold(r.fn, samples, lookBack)
			p = Point[V]{Time: ts, Val: v, Valid: ok}
		}
		out = append(out, p)

		r.cursor = bucketEnd
		r.buf.evictBefore(r.cursor.Add(-staleness))
	}

	return out, nil
}

// ResampleNow resamples up to the clock's current time. A nil clock
// falls back to SystemClock.
func (r *Resampler[V, S]) ResampleNow(clock Clock) ([]Point[V], error) {
	if clock == nil {
		clock = SystemClock
	}
	return r.Resample(clock.Now())
}

// AlignToInterval floors ts onto the grid origin + k*interval. Series
// that want boundaries aligned to the epoch (or any other origin) run
// their start time through this before constructing a resampler.
func AlignToInterval(ts time.Time, interval time.Duration, origin time.Time) time.Time {
	if interval <= 0 {
		return ts
	}
	off := ts.Sub(origin) % interval
	if off < 0 {
		off += interval
	}
	return ts.Add(-off)
}
