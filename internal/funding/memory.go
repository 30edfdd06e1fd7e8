package funding

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps funding rate samples in memory. It backs tests and lets
// the service run without a database, at the cost of losing history on
// restart.
type MemoryStore struct {
	mu sync.RWMutex
	// exchange -> symbol -> observed_at (unix nanos) -> sample
	samples map[string]map[string]map[int64]*RateSample
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		samples: make(map[string]map[string]map[int64]*RateSample),
	}
}

// Append upserts one sample keyed by (exchange, symbol, observed_at).
func (s *MemoryStore) Append(ctx context.Context, sample *RateSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySymbol, ok := s.samples[sample.Exchange]
	if !ok {
		bySymbol = make(map[string]map[int64]*RateSample)
		s.samples[sample.Exchange] = bySymbol
	}
	byTime, ok := bySymbol[sample.Symbol]
	if !ok {
		byTime = make(map[int64]*RateSample)
		bySymbol[sample.Symbol] = byTime
	}

	byTime[sample.ObservedAt.UTC().UnixNano()] = copySample(sample)
	return nil
}

// Query returns the samples for one symbol since the given time, ascending.
func (s *MemoryStore) Query(ctx context.Context, exchange, symbol string, since time.Time) ([]*RateSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var samples []*RateSample
	for _, sample := range s.samples[exchange][symbol] {
		if sample.ObservedAt.Before(since) {
			continue
		}
		samples = append(samples, copySample(sample))
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].ObservedAt.Before(samples[j].ObservedAt)
	})
	return samples, nil
}

// Latest returns the most recent sample for one symbol, or ErrNoData.
func (s *MemoryStore) Latest(ctx context.Context, exchange, symbol string) (*RateSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *RateSample
	for _, sample := range s.samples[exchange][symbol] {
		if latest == nil || sample.ObservedAt.After(latest.ObservedAt) {
			latest = sample
		}
	}
	if latest == nil {
		return nil, ErrNoData
	}

	return copySample(latest), nil
}

// Symbols returns the distinct symbols with samples at or after since.
func (s *MemoryStore) Symbols(ctx context.Context, exchange string, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var symbols []string
	for symbol, byTime := range s.samples[exchange] {
		for _, sample := range byTime {
			if !sample.ObservedAt.Before(since) {
				symbols = append(symbols, symbol)
				break
			}
		}
	}

	sort.Strings(symbols)
	return symbols, nil
}

// Summary describes the stored series for one exchange.
func (s *MemoryStore) Summary(ctx context.Context, exchange string) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{Exchange: exchange}
	for _, byTime := range s.samples[exchange] {
		if len(byTime) == 0 {
			continue
		}
		summary.SymbolCount++
		for _, sample := range byTime {
			summary.SampleCount++
			if summary.OldestAt.IsZero() || sample.ObservedAt.Before(summary.OldestAt) {
				summary.OldestAt = sample.ObservedAt
			}
			if sample.ObservedAt.After(summary.NewestAt) {
				summary.NewestAt = sample.ObservedAt
			}
		}
	}

	return summary, nil
}

// Prune deletes samples observed before the cutoff.
func (s *MemoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, bySymbol := range s.samples {
		for symbol, byTime := range bySymbol {
			for key, sample := range byTime {
				if sample.ObservedAt.Before(before) {
					delete(byTime, key)
					removed++
				}
			}
			if len(byTime) == 0 {
				delete(bySymbol, symbol)
			}
		}
	}

	return removed, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func copySample(sample *RateSample) *RateSample {
	out := *sample
	if sample.NextFundingAt != nil {
		t := *sample.NextFundingAt
		out.NextFundingAt = &t
	}
	return &out
}
