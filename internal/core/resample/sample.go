package resample

import "time"

// Real is the set of value types a resampler can aggregate.
// Restricted to floats because Average divides by the sample count.
type Real interface {
	~float32 | ~float64
}

// Sample is the capability contract a payload type must satisfy to be
// resampled: an absolute timestamp plus an optional numeric value.
// The second return of Value reports presence — false means the sample
// was recorded but carries no measurement, which is different from no
// sample having been pushed at all.
type Sample[V Real] interface {
	Timestamp() time.Time
	Value() (V, bool)
}

// Point is the concrete sample emitted by a Resampler. It implements
// Sample itself, so the output of one resampler can be pushed into
// another (e.g. a 1s stage feeding a 1m stage).
type Point[V Real] struct {
	Time  time.Time
	Val   V
	Valid bool
}

// NewPoint builds a point carrying a measurement.
func NewPoint[V Real](ts time.Time, v V) Point[V] {
	return Point[V]{Time: ts, Val: v, Valid: true}
}

// NewGap builds a point recording that a measurement was taken but no
// value exists.
func NewGap[V Real](ts time.Time) Point[V] {
	return Point[V]{Time: ts}
}

func (p Point[V]) Timestamp() time.Time { return p.Time }

func (p Point[V]) Value() (V, bool) { return p.Val, p.Valid }

// Clock supplies "now" to ResampleNow. The engine never reads the wall
// clock on its own; injecting a Clock keeps resampling deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall-clock implementation used outside tests.
var SystemClock Clock = systemClock{}
