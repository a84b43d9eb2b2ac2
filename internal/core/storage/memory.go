package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of AggregateStore.
// Useful for testing and development.
type MemoryStore struct {
	mu sync.RWMutex
	// per series, ordered by bucket time
	aggs map[string][]Aggregate
}

// NewMemoryStore creates a new in-memory aggregate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		aggs: make(map[string][]Aggregate),
	}
}

func (s *MemoryStore) SaveAggregates(ctx context.Context, aggs []Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range aggs {
		rows := s.aggs[a.SeriesName]
		i := sort.Search(len(rows), func(i int) bool {
			return !rows[i].BucketTime.Before(a.BucketTime)
		})
		if i < len(rows) && rows[i].BucketTime.Equal(a.BucketTime) {
			rows[i] = a // idempotent replace
		} else {
			rows = append(rows, Aggregate{})
			copy(rows[i+1:], rows[i:])
			rows[i] = a
		}
		s.aggs[a.SeriesName] = rows
	}
	return nil
}

func (s *MemoryStore) QueryRange(ctx context.Context, seriesName string, from, to time.Time, limit int) ([]Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.aggs[seriesName]
	lo := sort.Search(len(rows), func(i int) bool {
		return !rows[i].BucketTime.Before(from)
	})
	hi := sort.Search(len(rows), func(i int) bool {
		return !rows[i].BucketTime.Before(to)
	})

	window := rows[lo:hi]
	if limit > 0 && len(window) > limit {
		window = window[:limit]
	}

	// Return a copy to prevent external modification.
	out := make([]Aggregate, len(window))
	copy(out, window)
	return out, nil
}

// Len reports the number of stored aggregates for one series. Test hook.
func (s *MemoryStore) Len(seriesName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.aggs[seriesName])
}
