package funding

import (
	"testing"
	"time"
)

func aggRate(symbol string, rate float64) *AggregatedRate {
	return &AggregatedRate{Symbol: symbol, AverageRate: rate, SampleCount: 10}
}

func TestRank(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("orders longs and shorts", func(t *testing.T) {
		aggregates := []*AggregatedRate{
			aggRate("AAA", 0.001),
			aggRate("BBB", -0.002),
			aggRate("CCC", 0.003),
			aggRate("DDD", -0.001),
		}

		set := Rank(ExchangeLighter, aggregates, 10, now)

		wantLong := []string{"BBB", "DDD", "AAA", "CCC"}
		for i, want := range wantLong {
			if set.TopLong[i].Symbol != want {
				t.Errorf("TopLong[%d]: expected %s, got %s", i, want, set.TopLong[i].Symbol)
			}
		}

		wantShort := []string{"CCC", "AAA", "DDD", "BBB"}
		for i, want := range wantShort {
			if set.TopShort[i].Symbol != want {
				t.Errorf("TopShort[%d]: expected %s, got %s", i, want, set.TopShort[i].Symbol)
			}
		}

		if !set.GeneratedAt.Equal(now) {
			t.Errorf("Expected GeneratedAt %v, got %v", now, set.GeneratedAt)
		}
	})

	t.Run("truncates after sorting", func(t *testing.T) {
		aggregates := []*AggregatedRate{
			aggRate("A", 0.005),
			aggRate("B", -0.004),
			aggRate("C", 0.001),
			aggRate("D", -0.002),
			aggRate("E", 0.003),
		}

		set := Rank(ExchangeLighter, aggregates, 2, now)

		if len(set.TopLong) != 2 || len(set.TopShort) != 2 {
			t.Fatalf("Expected lists of 2, got %d and %d", len(set.TopLong), len(set.TopShort))
		}
		if set.TopLong[0].Symbol != "B" || set.TopLong[1].Symbol != "D" {
			t.Errorf("TopLong: expected [B D], got [%s %s]", set.TopLong[0].Symbol, set.TopLong[1].Symbol)
		}
		if set.TopShort[0].Symbol != "A" || set.TopShort[1].Symbol != "E" {
			t.Errorf("TopShort: expected [A E], got [%s %s]", set.TopShort[0].Symbol, set.TopShort[1].Symbol)
		}
	})

	t.Run("ties break alphabetically", func(t *testing.T) {
		aggregates := []*AggregatedRate{
			aggRate("ETH", 0.0),
			aggRate("ADA", 0.0),
			aggRate("BTC", 0.0),
		}

		set := Rank(ExchangeLighter, aggregates, 10, now)

		want := []string{"ADA", "BTC", "ETH"}
		for i, symbol := range want {
			if set.TopLong[i].Symbol != symbol {
				t.Errorf("TopLong[%d]: expected %s, got %s", i, symbol, set.TopLong[i].Symbol)
			}
			if set.TopShort[i].Symbol != symbol {
				t.Errorf("TopShort[%d]: expected %s, got %s", i, symbol, set.TopShort[i].Symbol)
			}
		}
	})

	t.Run("excludes symbols without samples", func(t *testing.T) {
		aggregates := []*AggregatedRate{
			aggRate("BTC", 0.001),
			{Symbol: "EMPTY", AverageRate: -0.5, SampleCount: 0},
		}

		set := Rank(ExchangeLighter, aggregates, 10, now)

		if len(set.TopLong) != 1 || len(set.TopShort) != 1 {
			t.Fatalf("Expected 1 entry per list, got %d and %d", len(set.TopLong), len(set.TopShort))
		}
		if set.TopLong[0].Symbol != "BTC" {
			t.Errorf("Expected BTC, got %s", set.TopLong[0].Symbol)
		}
	})

	t.Run("empty input yields empty lists", func(t *testing.T) {
		set := Rank(ExchangeHyena, nil, 10, now)

		if set.TopLong == nil || set.TopShort == nil {
			t.Fatal("Expected non-nil lists")
		}
		if len(set.TopLong) != 0 || len(set.TopShort) != 0 {
			t.Errorf("Expected empty lists, got %d and %d", len(set.TopLong), len(set.TopShort))
		}
	})

	t.Run("earliest next funding wins", func(t *testing.T) {
		soon := now.Add(30 * time.Minute)
		later := now.Add(time.Hour)

		aggregates := []*AggregatedRate{
			{Symbol: "BTC", AverageRate: 0.001, SampleCount: 5, NextFundingAt: &later},
			{Symbol: "ETH", AverageRate: -0.001, SampleCount: 5, NextFundingAt: &soon},
			{Symbol: "SOL", AverageRate: 0.002, SampleCount: 5},
		}

		set := Rank(ExchangeHyena, aggregates, 10, now)

		if set.NextFundingTime == nil || !set.NextFundingTime.Equal(soon) {
			t.Errorf("Expected next funding %v, got %v", soon, set.NextFundingTime)
		}
	})
}
