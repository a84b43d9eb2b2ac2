package v1

import (
	"fmt"
	"time"
)

// Sample is the ingestion payload: one timestamped measurement for one
// series. A null value is meaningful — it records that a reading was
// taken but no measurement exists (a gap), which is different from not
// sending the sample at all.
type Sample struct {
	// Series names the resampling stream this sample belongs to.
	Series string `json:"series"`

	// Timestamp is when the measurement was taken (producer clock).
	Timestamp time.Time `json:"timestamp"`

	// Value is the measurement; nil marks a recorded gap.
	Value *float64 `json:"value"`
}

// Validate ensures the sample has the required envelope fields.
func (s *Sample) Validate() error {
	if s.Series == "" {
		return fmt.Errorf("series is required")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// SampleBatch carries multiple samples in one request.
type SampleBatch struct {
	Samples []Sample `json:"samples"`
}

// Validate checks every sample in the batch and rejects empty batches.
func (b *SampleBatch) Validate() error {
	if len(b.Samples) == 0 {
		return fmt.Errorf("samples must not be empty")
	}
	for i := range b.Samples {
		if err := b.Samples[i].Validate(); err != nil {
			return fmt.Errorf("samples[%d]: %w", i, err)
		}
	}
	return nil
}

// AggregatePoint is one emitted bucket in a query response. Value is
// nil when the bucket aggregated to missing.
type AggregatePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// SeriesInfo describes one configured series in the listing endpoint.
type SeriesInfo struct {
	Name            string `json:"name"`
	Interval        string `json:"interval"`
	Function        string `json:"function"`
	MaxAgeIntervals int    `json:"max_age_intervals"`
	FirstTimestamp  bool   `json:"first_timestamp"`
}

// AggregateQueryResponse is the result of a range query over one
// series' stored aggregates.
type AggregateQueryResponse struct {
	Series string           `json:"series"`
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Points []AggregatePoint `json:"points"`
}
