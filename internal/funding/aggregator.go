package funding

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultIntervalsPerYear assumes hourly funding, the cadence both integrated
// venues settle on.
const DefaultIntervalsPerYear = 24 * 365

// Aggregator computes rolling-window statistics from stored samples. It is a
// pure reader: results reflect the store contents at call time and nothing is
// cached or persisted.
type Aggregator struct {
	store     Store
	intervals map[string]float64
	now       func() time.Time
}

// NewAggregator creates an aggregator. intervalsPerYear maps exchange name to
// the annualization constant; exchanges without an entry use
// DefaultIntervalsPerYear.
func NewAggregator(store Store, intervalsPerYear map[string]float64) *Aggregator {
	return &Aggregator{
		store:     store,
		intervals: intervalsPerYear,
		now:       time.Now,
	}
}

// IntervalsPerYear returns the annualization constant for one exchange.
func (a *Aggregator) IntervalsPerYear(exchange string) float64 {
	if v, ok := a.intervals[exchange]; ok && v > 0 {
		return v
	}
	return DefaultIntervalsPerYear
}

// Aggregate computes the trailing-window average and APR for one symbol.
// Returns ErrNoData when the window holds no samples.
func (a *Aggregator) Aggregate(ctx context.Context, exchange, symbol string, windowDays int) (*AggregatedRate, error) {
	since := a.windowStart(windowDays)

	samples, err := a.store.Query(ctx, exchange, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load samples for %s/%s: %w", exchange, symbol, err)
	}
	if len(samples) == 0 {
		return nil, ErrNoData
	}

	var sum float64
	for _, sample := range samples {
		sum += sample.Rate
	}
	mean := sum / float64(len(samples))

	// Samples arrive ascending; the freshest next-funding prediction wins.
	var next *time.Time
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].NextFundingAt != nil {
			t := *samples[i].NextFundingAt
			next = &t
			break
		}
	}

	return &AggregatedRate{
		Symbol:        symbol,
		WindowDays:    windowDays,
		AverageRate:   mean,
		APR:           mean * a.IntervalsPerYear(exchange),
		SampleCount:   len(samples),
		NextFundingAt: next,
	}, nil
}

// AggregateAll aggregates every symbol that has samples in the window.
// Symbols whose window turns out empty are skipped, not failed.
func (a *Aggregator) AggregateAll(ctx context.Context, exchange string, windowDays int) ([]*AggregatedRate, error) {
	since := a.windowStart(windowDays)

	symbols, err := a.store.Symbols(ctx, exchange, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols for %s: %w", exchange, err)
	}

	aggregates := make([]*AggregatedRate, 0, len(symbols))
	for _, symbol := range symbols {
		agg, err := a.Aggregate(ctx, exchange, symbol, windowDays)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		aggregates = append(aggregates, agg)
	}

	return aggregates, nil
}

func (a *Aggregator) windowStart(windowDays int) time.Time {
	return a.now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)
}
