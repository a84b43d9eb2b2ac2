package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/pulsegrid-lab/pulsegrid/internal/api/v1"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/series"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/storage"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid aggregate query")

// ErrSeriesNotFound marks queries naming a series that is not configured.
var ErrSeriesNotFound = errors.New("series not found")

// defaultQueryLimit caps one range query so a wide time range cannot
// stream an unbounded result set.
const defaultQueryLimit = 10000

// Service implements the read side: series listing and range queries
// over stored aggregates.
type Service struct {
	store  storage.AggregateStore
	series map[string]series.Series
	order  []series.Series
}

// NewService creates a query service over the configured series.
func NewService(store storage.AggregateStore, defs []series.Series) *Service {
	byName := make(map[string]series.Series, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	return &Service{store: store, series: byName, order: defs}
}

// ListSeries returns the configured series definitions.
func (s *Service) ListSeries() []v1.SeriesInfo {
	out := make([]v1.SeriesInfo, 0, len(s.order))
	for _, def := range s.order {
		out = append(out, v1.SeriesInfo{
			Name:            def.Name,
			Interval:        def.Interval.String(),
			Function:        def.Function.String(),
			MaxAgeIntervals: def.MaxAgeIntervals,
			FirstTimestamp:  def.FirstTimestamp,
		})
	}
	return out
}

// QueryAggregates returns one series' stored aggregates with
// from <= bucket < to.
func (s *Service) QueryAggregates(ctx context.Context, seriesName string, from, to time.Time) (*v1.AggregateQueryResponse, error) {
	if _, ok := s.series[seriesName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrSeriesNotFound, seriesName)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: to %s must be after from %s",
			ErrInvalidQuery, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	aggs, err := s.store.QueryRange(ctx, seriesName, from, to, defaultQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("query aggregates: %w", err)
	}

	points := make([]v1.AggregatePoint, 0, len(aggs))
	for _, agg := range aggs {
		p := v1.AggregatePoint{Timestamp: agg.BucketTime}
		if agg.Value.Valid {
			f, _ := agg.Value.Decimal.Float64()
			p.Value = &f
		}
		points = append(points, p)
	}

	return &v1.AggregateQueryResponse{
		Series: seriesName,
		From:   from,
		To:     to,
		Points: points,
	}, nil
}
