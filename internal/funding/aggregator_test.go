package funding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func seedSamples(t *testing.T, store Store, exchange, symbol string, start time.Time, rates []float64) {
	t.Helper()

	ctx := context.Background()
	for i, rate := range rates {
		sample := &RateSample{
			Exchange:   exchange,
			Symbol:     symbol,
			Rate:       rate,
			ObservedAt: start.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Append(ctx, sample); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()

	t.Run("known average", func(t *testing.T) {
		store := NewMemoryStore()
		agg := NewAggregator(store, nil)
		agg.now = fixedNow

		seedSamples(t, store, ExchangeLighter, "BTC", fixedNow().Add(-3*time.Hour),
			[]float64{0.0001, 0.0002, -0.0001})

		result, err := agg.Aggregate(ctx, ExchangeLighter, "BTC", 2)
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}

		wantMean := 0.0002 / 3
		if math.Abs(result.AverageRate-wantMean) > 1e-12 {
			t.Errorf("Expected average %.10f, got %.10f", wantMean, result.AverageRate)
		}
		if math.Abs(result.APR-wantMean*DefaultIntervalsPerYear) > 1e-9 {
			t.Errorf("Expected APR %.6f, got %.6f", wantMean*DefaultIntervalsPerYear, result.APR)
		}
		if result.SampleCount != 3 {
			t.Errorf("Expected 3 samples, got %d", result.SampleCount)
		}
		if result.WindowDays != 2 {
			t.Errorf("Expected window of 2 days, got %d", result.WindowDays)
		}
	})

	t.Run("mean bounded by window extremes", func(t *testing.T) {
		store := NewMemoryStore()
		agg := NewAggregator(store, nil)
		agg.now = fixedNow

		rates := []float64{-0.0005, 0.0001, 0.0009, -0.0002, 0.0003}
		seedSamples(t, store, ExchangeHyena, "ETH", fixedNow().Add(-6*time.Hour), rates)

		result, err := agg.Aggregate(ctx, ExchangeHyena, "ETH", 3)
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}

		min, max := rates[0], rates[0]
		for _, r := range rates {
			if r < min {
				min = r
			}
			if r > max {
				max = r
			}
		}
		if result.AverageRate < min || result.AverageRate > max {
			t.Errorf("Average %.6f outside sample range [%.6f, %.6f]", result.AverageRate, min, max)
		}
	})

	t.Run("window excludes older samples", func(t *testing.T) {
		store := NewMemoryStore()
		agg := NewAggregator(store, nil)
		agg.now = fixedNow

		// One sample well outside a 2-day window, one inside.
		seedSamples(t, store, ExchangeLighter, "SOL", fixedNow().Add(-72*time.Hour), []float64{0.01})
		seedSamples(t, store, ExchangeLighter, "SOL", fixedNow().Add(-time.Hour), []float64{0.0002})

		result, err := agg.Aggregate(ctx, ExchangeLighter, "SOL", 2)
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		if result.SampleCount != 1 {
			t.Errorf("Expected 1 sample in window, got %d", result.SampleCount)
		}
		if math.Abs(result.AverageRate-0.0002) > 1e-12 {
			t.Errorf("Expected average 0.0002, got %.6f", result.AverageRate)
		}
	})

	t.Run("empty window returns ErrNoData", func(t *testing.T) {
		store := NewMemoryStore()
		agg := NewAggregator(store, nil)
		agg.now = fixedNow

		_, err := agg.Aggregate(ctx, ExchangeLighter, "DOGE", 2)
		if !errors.Is(err, ErrNoData) {
			t.Errorf("Expected ErrNoData, got %v", err)
		}
	})

	t.Run("idempotent without new samples", func(t *testing.T) {
		store := NewMemoryStore()
		agg := NewAggregator(store, nil)
		agg.now = fixedNow

		seedSamples(t, store, ExchangeLighter, "BTC", fixedNow().Add(-3*time.Hour),
			[]float64{0.0001, 0.0003})

		first, err := agg.Aggregate(ctx, ExchangeLighter, "BTC", 2)
		if err != nil {
			t.Fatalf("first Aggregate failed: %v", err)
		}
		second, err := agg.Aggregate(ctx, ExchangeLighter, "BTC", 2)
		if err != nil {
			t.Fatalf("second Aggregate failed: %v", err)
		}

		if first.AverageRate != second.AverageRate || first.SampleCount != second.SampleCount {
			t.Errorf("Aggregate not idempotent: %+v vs %+v", first, second)
		}
	})

	t.Run("uses freshest next funding time", func(t *testing.T) {
		store := NewMemoryStore()
		agg := NewAggregator(store, nil)
		agg.now = fixedNow

		older := fixedNow().Add(30 * time.Minute)
		newer := fixedNow().Add(time.Hour)
		samples := []*RateSample{
			{Exchange: ExchangeHyena, Symbol: "BTC", Rate: 0.0001, ObservedAt: fixedNow().Add(-2 * time.Hour), NextFundingAt: &older},
			{Exchange: ExchangeHyena, Symbol: "BTC", Rate: 0.0002, ObservedAt: fixedNow().Add(-time.Hour), NextFundingAt: &newer},
		}
		for _, s := range samples {
			if err := store.Append(ctx, s); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}

		result, err := agg.Aggregate(ctx, ExchangeHyena, "BTC", 3)
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		if result.NextFundingAt == nil || !result.NextFundingAt.Equal(newer) {
			t.Errorf("Expected next funding %v, got %v", newer, result.NextFundingAt)
		}
	})

	t.Run("per-exchange annualization constant", func(t *testing.T) {
		store := NewMemoryStore()
		agg := NewAggregator(store, map[string]float64{ExchangeLighter: 1095})
		agg.now = fixedNow

		seedSamples(t, store, ExchangeLighter, "BTC", fixedNow().Add(-time.Hour), []float64{0.001})

		result, err := agg.Aggregate(ctx, ExchangeLighter, "BTC", 2)
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		if math.Abs(result.APR-0.001*1095) > 1e-9 {
			t.Errorf("Expected APR %.4f, got %.4f", 0.001*1095, result.APR)
		}
	})
}

func TestAggregateAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	agg := NewAggregator(store, nil)
	agg.now = fixedNow

	seedSamples(t, store, ExchangeLighter, "ETH", fixedNow().Add(-2*time.Hour), []float64{0.0002, 0.0004})
	seedSamples(t, store, ExchangeLighter, "BTC", fixedNow().Add(-2*time.Hour), []float64{0.0001})
	// Only stale data for this one; it must not appear.
	seedSamples(t, store, ExchangeLighter, "OLD", fixedNow().Add(-96*time.Hour), []float64{0.5})

	results, err := agg.AggregateAll(ctx, ExchangeLighter, 2)
	if err != nil {
		t.Fatalf("AggregateAll failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 aggregates, got %d", len(results))
	}
	if results[0].Symbol != "BTC" || results[1].Symbol != "ETH" {
		t.Errorf("Expected symbols [BTC ETH], got [%s %s]", results[0].Symbol, results[1].Symbol)
	}
}
