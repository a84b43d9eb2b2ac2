package resample

import "fmt"

// Func is the closed set of aggregation strategies. Each variant is a
// pure fold over the samples of one bucket; continuity between buckets
// (the look-back for Last and First) is supplied by the caller, never
// retained by the function.
type Func int

const (
	// Average is the arithmetic mean of the present values in the
	// bucket; missing when none are present.
	Average Func = iota
	// Sum adds the present values. An empty bucket yields missing,
	// not zero, so downstream consumers can tell "no data" from
	// "data summing to zero".
	Sum
	// Max is the largest present value; missing when none are present.
	Max
	// Min is the smallest present value; missing when none are present.
	Min
	// Last is the value of the chronologically latest sample in the
	// bucket, including its missing-ness. An empty bucket falls back
	// to the nearest earlier sample within the staleness bound.
	Last
	// First mirrors Last for the chronologically earliest sample.
	First
	// Coalesce is the first present value in chronological order;
	// missing when every sample in the bucket is a gap.
	Coalesce
	// Count is the number of present-valued samples in the bucket.
	// Gap samples are not counted. An empty bucket counts as zero,
	// which is a present result.
	Count
)

var funcNames = map[Func]string{
	Average:  "average",
	Sum:      "sum",
	Max:      "max",
	Min:      "min",
	Last:     "last",
	First:    "first",
	Coalesce: "coalesce",
	Count:    "count",
}

var funcValues = map[string]Func{
	"average":  Average,
	"sum":      Sum,
	"max":      Max,
	"min":      Min,
	"last":     Last,
	"first":    First,
	"coalesce": Coalesce,
	"count":    Count,
}

func (f Func) String() string {
	if name, ok := funcNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Func(%d)", int(f))
}

func (f Func) valid() bool {
	_, ok := funcNames[f]
	return ok
}

// ParseFunc resolves a function name from config or an API surface.
func ParseFunc(name string) (Func, error) {
	f, ok := funcValues[name]
	if !ok {
		return 0, fmt.Errorf("unknown resampling function %q", name)
	}
	return f, nil
}

// Funcs returns every variant in declaration order. Used by binding and
// config layers that need to enumerate the name/value pairs.
func Funcs() []Func {
	return []Func{Average, Sum, Max, Min, Last, First, Coalesce, Count}
}

// CustomFunc is a caller-supplied aggregation strategy. It receives the
// ordered samples of one bucket and returns an optional result. It must
// be pure and safe to call from whichever goroutine currently owns the
// Resampler, since resamplers are routinely handed between workers.
type CustomFunc[V Real, S Sample[V]] func(samples []S) (V, bool)

// fold applies fn to the ordered samples of one bucket. lookBack
// resolves the nearest sample before the bucket within the staleness
// bound; only Last and First consult it, and only for empty buckets.
func fold[V Real, S Sample[V]](fn Func, samples []S, lookBack func() (S, bool)) (V, bool) {
	var zero V
	switch fn {
	case Average:
		var sum V
		var n int
		for _, s := range samples {
			if v, ok := s.Value(); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return zero, false
		}
		return sum / V(n), true
	case Sum:
		var sum V
		var n int
		for _, s := range samples {
			if v, ok := s.Value(); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return zero, false
		}
		return sum, true
	case Max:
		var best V
		found := false
		for _, s := range samples {
			if v, ok := s.Value(); ok && (!found || v > best) {
				best = v
				found = true
			}
		}
		return best, found
	case Min:
		var best V
		found := false
		for _, s := range samples {
			if v, ok := s.Value(); ok && (!found || v < best) {
				best = v
				found = true
			}
		}
		return best, found
	case Last:
		if len(samples) > 0 {
			return samples[len(samples)-1].Value()
		}
		if s, ok := lookBack(); ok {
			return s.Value()
		}
		return zero, false
	case First:
		if len(samples) > 0 {
			return samples[0].Value()
		}
		if s, ok := lookBack(); ok {
			return s.Value()
		}
		return zero, false
	case Coalesce:
		for _, s := range samples {
			if v, ok := s.Value(); ok {
				return v, true
			}
		}
		return zero, false
	case Count:
		var n int
		for _, s := range samples {
			if _, ok := s.Value(); ok {
				n++
			}
		}
		return V(n), true
	}
	return zero, false
}
