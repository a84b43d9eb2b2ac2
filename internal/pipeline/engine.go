package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsegrid-lab/pulsegrid/internal/core/resample"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/series"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/storage"
)

// ErrUnknownSeries is returned when a sample names a series that is not
// configured.
var ErrUnknownSeries = errors.New("pipeline: unknown series")

// stream pairs a series definition with its live resampler.
type stream struct {
	def series.Series
	rs  *resample.Resampler[float64, resample.Point[float64]]
}

// Engine owns one resampler per configured series. Resamplers are
// single-owner structures; the engine's mutex is that owner, making
// pushes from HTTP handlers and flushes from the scheduler take turns.
type Engine struct {
	mu      sync.Mutex
	clock   resample.Clock
	store   storage.AggregateStore
	streams map[string]*stream
	order   []string
	// pending holds aggregates whose store write failed; they ride
	// along with the next flush so a store outage loses nothing.
	pending []storage.Aggregate
}

// NewEngine builds a resampler for every definition, anchored at the
// clock's current time (epoch-aligned when the series asks for it).
func NewEngine(defs []series.Series, store storage.AggregateStore, clock resample.Clock) (*Engine, error) {
	if store == nil {
		panic("pipeline: store must not be nil")
	}
	if clock == nil {
		clock = resample.SystemClock
	}

	e := &Engine{
		clock:   clock,
		store:   store,
		streams: make(map[string]*stream, len(defs)),
	}

	now := clock.Now()
	for _, def := range defs {
		start := now
		if def.AlignStart {
			start = resample.AlignToInterval(start, def.Interval, time.Unix(0, 0).UTC())
		}
		rs, err := resample.New[float64, resample.Point[float64]](
			def.Interval,
			def.Function,
			def.MaxAgeIntervals,
			start,
			def.FirstTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", def.Name, err)
		}
		e.streams[def.Name] = &stream{def: def, rs: rs}
		e.order = append(e.order, def.Name)
	}

	return e, nil
}

// Series returns the configured definitions in load order.
func (e *Engine) Series() []series.Series {
	out := make([]series.Series, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.streams[name].def)
	}
	return out
}

// Push feeds one sample into its series' resampler. A nil value records
// a gap. Stale samples are absorbed silently by the resampler; only an
// unknown series is an error the caller can act on.
func (e *Engine) Push(seriesName string, ts time.Time, value *float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.streams[seriesName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSeries, seriesName)
	}

	if value != nil {
		st.rs.Push(resample.NewPoint(ts, *value))
	} else {
		st.rs.Push(resample.NewGap[float64](ts))
	}
	return nil
}

// Flush resamples every series up to the clock's now and persists the
// emitted buckets in one store write. Returns the number of buckets
// written.
func (e *Engine) Flush(ctx context.Context) (int, error) {
	e.mu.Lock()

	now := e.clock.Now()
	flushID := uuid.NewString()
	aggs := e.pending
	e.pending = nil

	for _, name := range e.order {
		st := e.streams[name]
		points, err := st.rs.Resample(now)
		if err != nil {
			// The cursor only moves forward and now is monotonic, so
			// this indicates a clock step; skip the series this round.
			slog.Error("[Pipeline] Resample failed",
				"series", name,
				"error", err,
			)
			continue
		}
		for _, p := range points {
			v, ok := p.Value()
			aggs = append(aggs, storage.Aggregate{
				SeriesName:        name,
				BucketTime:        p.Timestamp(),
				Value:             storage.FromFloat(v, ok),
				SeriesFingerprint: st.def.Fingerprint,
				FlushID:           flushID,
				UpdatedAt:         now,
			})
		}
	}
	e.mu.Unlock()

	if len(aggs) == 0 {
		return 0, nil
	}

	if err := e.store.SaveAggregates(ctx, aggs); err != nil {
		e.mu.Lock()
		e.pending = append(aggs, e.pending...)
		e.mu.Unlock()
		return 0, fmt.Errorf("flush %s: %w", flushID, err)
	}

	slog.Info("[Pipeline] Flushed aggregates",
		"flush_id", flushID,
		"buckets", len(aggs),
		"series_count", len(e.order),
	)
	return len(aggs), nil
}
