package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate is one persisted bucket result. Value is exact decimal so
// a NUMERIC column round-trips without float drift; an invalid
// NullDecimal persists the bucket's missing-ness as SQL NULL.
type Aggregate struct {
	SeriesName        string
	BucketTime        time.Time
	Value             decimal.NullDecimal
	SeriesFingerprint string
	// FlushID tags every aggregate written by one scheduler flush,
	// for correlating stored rows with flush log lines.
	FlushID   string
	UpdatedAt time.Time
}

// FromFloat converts an emitted bucket value into the stored decimal
// representation. ok=false produces the NULL (missing) form.
func FromFloat(v float64, ok bool) decimal.NullDecimal {
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

// AggregateStore defines the interface for persisting and querying
// emitted aggregates.
type AggregateStore interface {
	// SaveAggregates persists a flush of emitted buckets. Writing the
	// same (series, bucket) twice replaces the previous row, so a
	// retried flush is idempotent.
	SaveAggregates(ctx context.Context, aggs []Aggregate) error

	// QueryRange returns the stored aggregates of one series with
	// from <= bucket_time < to, in bucket order, capped at limit
	// rows (0 means no cap).
	QueryRange(ctx context.Context, seriesName string, from, to time.Time, limit int) ([]Aggregate, error)
}
