package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/cache"
	"github.com/samnmbuguah/FundingRate/internal/exchange"
	"github.com/samnmbuguah/FundingRate/internal/funding"
)

type fakeAdapter struct {
	name       string
	symbols    []string
	rates      map[string]float64
	failing    map[string]bool
	observedAt time.Time
	refreshErr error
	symbolsErr error
	refreshes  int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Refresh(ctx context.Context) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeAdapter) Symbols(ctx context.Context) ([]string, error) {
	if f.symbolsErr != nil {
		return nil, f.symbolsErr
	}
	return append([]string(nil), f.symbols...), nil
}

func (f *fakeAdapter) FetchRate(ctx context.Context, symbol string) (*funding.RateSample, error) {
	if f.failing[symbol] {
		return nil, &exchange.FetchError{Exchange: f.name, Symbol: symbol, Err: errors.New("connection reset")}
	}
	next := exchange.NextFundingHour(f.observedAt)
	return &funding.RateSample{
		Exchange:      f.name,
		Symbol:        symbol,
		Rate:          f.rates[symbol],
		ObservedAt:    f.observedAt,
		NextFundingAt: &next,
	}, nil
}

type fakeBackfillAdapter struct {
	fakeAdapter
	history      map[string][]*funding.RateSample
	historyCalls int
}

func (f *fakeBackfillAdapter) FetchHistory(ctx context.Context, symbol string, since time.Time) ([]*funding.RateSample, error) {
	f.historyCalls++
	return f.history[symbol], nil
}

type pingFailStore struct {
	funding.Store
	err error
}

func (s *pingFailStore) Ping(ctx context.Context) error { return s.err }

func newTestCollector(store funding.Store, cacher cache.Cacher) *Collector {
	intervals := map[string]float64{
		funding.ExchangeLighter: 8760,
		funding.ExchangeHyena:   8760,
	}
	return New(&Config{
		Store:      store,
		Aggregator: funding.NewAggregator(store, intervals),
		Cacher:     cacher,
		TopN:       10,
	})
}

func TestRunCyclePartialFailure(t *testing.T) {
	ctx := context.Background()
	store := funding.NewMemoryStore()
	c := newTestCollector(store, nil)

	adapter := &fakeAdapter{
		name:    funding.ExchangeLighter,
		symbols: []string{"BTC-USDC", "ETH-USDC", "SOL-USDC"},
		rates: map[string]float64{
			"BTC-USDC": 0.0001,
			"ETH-USDC": 0.0002,
			"SOL-USDC": 0.0003,
		},
		failing:    map[string]bool{"ETH-USDC": true},
		observedAt: time.Now().UTC().Add(-time.Minute),
	}
	feed := &Feed{Adapter: adapter, Interval: time.Minute, WindowDays: 2}

	stored, failed := c.runCycle(ctx, feed)
	if stored != 2 || failed != 1 {
		t.Errorf("Expected 2 stored / 1 failed, got %d / %d", stored, failed)
	}

	status := c.Status().Snapshot()
	if status.Status != StatusIdle {
		t.Errorf("Expected status %q, got %q", StatusIdle, status.Status)
	}
	if status.Stored != 2 || status.Current != 2 || status.Total != 3 {
		t.Errorf("Unexpected counters: %+v", status)
	}
	if status.Error == "" {
		t.Error("Expected the failed symbol's error to be recorded")
	}

	if _, err := store.Latest(ctx, funding.ExchangeLighter, "BTC-USDC"); err != nil {
		t.Errorf("Latest for stored symbol failed: %v", err)
	}
	if _, err := store.Latest(ctx, funding.ExchangeLighter, "ETH-USDC"); !errors.Is(err, funding.ErrNoData) {
		t.Errorf("Expected ErrNoData for failed symbol, got %v", err)
	}
}

func TestRunCycleAllFailed(t *testing.T) {
	ctx := context.Background()
	c := newTestCollector(funding.NewMemoryStore(), nil)

	adapter := &fakeAdapter{
		name:    funding.ExchangeHyena,
		symbols: []string{"BTC", "ETH"},
		failing: map[string]bool{"BTC": true, "ETH": true},
	}
	feed := &Feed{Adapter: adapter, Interval: time.Minute, WindowDays: 3}

	stored, failed := c.runCycle(ctx, feed)
	if stored != 0 || failed != 2 {
		t.Errorf("Expected 0 stored / 2 failed, got %d / %d", stored, failed)
	}

	status := c.Status().Snapshot()
	if status.Status != StatusError {
		t.Errorf("Expected status %q, got %q", StatusError, status.Status)
	}

	if _, ok := c.Opportunities().Get(funding.ExchangeHyena); ok {
		t.Error("No snapshot should be published when every symbol failed")
	}
}

func TestRunCycleUpsertDeterministic(t *testing.T) {
	ctx := context.Background()
	store := funding.NewMemoryStore()
	c := newTestCollector(store, nil)

	observed := time.Now().UTC().Add(-time.Minute)
	adapter := &fakeAdapter{
		name:       funding.ExchangeLighter,
		symbols:    []string{"BTC-USDC", "ETH-USDC"},
		rates:      map[string]float64{"BTC-USDC": 0.0001, "ETH-USDC": 0.0002},
		observedAt: observed,
	}
	feed := &Feed{Adapter: adapter, Interval: time.Minute, WindowDays: 2}

	c.runCycle(ctx, feed)
	c.runCycle(ctx, feed)

	since := observed.Add(-time.Hour)
	for _, symbol := range adapter.symbols {
		samples, err := store.Query(ctx, funding.ExchangeLighter, symbol, since)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(samples) != 1 {
			t.Errorf("Expected 1 row for %s after two identical cycles, got %d", symbol, len(samples))
		}
	}
}

func TestRunCyclePublishesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := funding.NewMemoryStore()
	cacher := cache.NewMemoryCache()
	defer cacher.Close()
	c := newTestCollector(store, cacher)

	adapter := &fakeAdapter{
		name:    funding.ExchangeLighter,
		symbols: []string{"BTC-USDC", "ETH-USDC", "SOL-USDC"},
		rates: map[string]float64{
			"BTC-USDC": 0.0002,
			"ETH-USDC": -0.0003,
			"SOL-USDC": 0.0001,
		},
		observedAt: time.Now().UTC().Add(-time.Minute),
	}
	feed := &Feed{Adapter: adapter, Interval: time.Minute, WindowDays: 2}

	c.runCycle(ctx, feed)

	set, ok := c.Opportunities().Get(funding.ExchangeLighter)
	if !ok {
		t.Fatal("Expected a published snapshot")
	}
	if len(set.TopLong) != 3 || set.TopLong[0].Symbol != "ETH-USDC" {
		t.Errorf("Expected ETH-USDC first in top long, got %+v", set.TopLong)
	}
	if len(set.TopShort) != 3 || set.TopShort[0].Symbol != "BTC-USDC" {
		t.Errorf("Expected BTC-USDC first in top short, got %+v", set.TopShort)
	}
	if set.NextFundingTime == nil {
		t.Error("Expected a next funding time on the snapshot")
	}

	// The snapshot and the per-symbol samples are mirrored into the cache.
	cached, err := cacher.GetOpportunities(ctx, funding.ExchangeLighter)
	if err != nil {
		t.Fatalf("GetOpportunities from cache failed: %v", err)
	}
	if cached.GeneratedAt.IsZero() || len(cached.TopLong) != 3 {
		t.Errorf("Unexpected cached snapshot: %+v", cached)
	}

	sample, err := cacher.GetLatestSample(ctx, funding.ExchangeLighter, "SOL-USDC")
	if err != nil {
		t.Fatalf("GetLatestSample from cache failed: %v", err)
	}
	if sample.Rate != 0.0001 {
		t.Errorf("Expected cached rate 0.0001, got %v", sample.Rate)
	}
}

func TestRunCycleStoreUnreachable(t *testing.T) {
	ctx := context.Background()
	store := &pingFailStore{Store: funding.NewMemoryStore(), err: errors.New("connection refused")}
	c := newTestCollector(store, nil)

	adapter := &fakeAdapter{
		name:       funding.ExchangeLighter,
		symbols:    []string{"BTC-USDC"},
		rates:      map[string]float64{"BTC-USDC": 0.0001},
		observedAt: time.Now().UTC(),
	}
	feed := &Feed{Adapter: adapter, Interval: time.Minute, WindowDays: 2}

	stored, failed := c.runCycle(ctx, feed)
	if stored != 0 || failed != 0 {
		t.Errorf("Expected nothing fetched, got %d stored / %d failed", stored, failed)
	}
	if adapter.refreshes != 0 {
		t.Error("Adapter should not be called when the store is unreachable")
	}

	status := c.Status().Snapshot()
	if status.Status != StatusError {
		t.Errorf("Expected status %q, got %q", StatusError, status.Status)
	}
	if status.Error == "" {
		t.Error("Expected the store error to be recorded")
	}
}

func TestRunCycleRefreshFailureStillFetches(t *testing.T) {
	ctx := context.Background()
	store := funding.NewMemoryStore()
	c := newTestCollector(store, nil)

	adapter := &fakeAdapter{
		name:       funding.ExchangeHyena,
		symbols:    []string{"BTC", "ETH"},
		rates:      map[string]float64{"BTC": 0.0001, "ETH": 0.0002},
		observedAt: time.Now().UTC().Add(-time.Minute),
		refreshErr: errors.New("meta request timed out"),
	}
	feed := &Feed{Adapter: adapter, Interval: 5 * time.Minute, WindowDays: 3}

	stored, failed := c.runCycle(ctx, feed)
	if stored != 2 || failed != 0 {
		t.Errorf("Expected 2 stored / 0 failed, got %d / %d", stored, failed)
	}

	status := c.Status().Snapshot()
	if status.Status != StatusIdle {
		t.Errorf("Expected status %q, got %q", StatusIdle, status.Status)
	}
	if status.Error == "" {
		t.Error("Expected the refresh error to be recorded")
	}
}

func TestBackfillColdStore(t *testing.T) {
	ctx := context.Background()
	store := funding.NewMemoryStore()
	c := newTestCollector(store, nil)

	now := time.Now().UTC().Truncate(time.Hour)
	history := map[string][]*funding.RateSample{
		"BTC": {
			{Exchange: funding.ExchangeHyena, Symbol: "BTC", Rate: 0.0001, ObservedAt: now.Add(-3 * time.Hour)},
			{Exchange: funding.ExchangeHyena, Symbol: "BTC", Rate: 0.0002, ObservedAt: now.Add(-2 * time.Hour)},
			{Exchange: funding.ExchangeHyena, Symbol: "BTC", Rate: 0.0003, ObservedAt: now.Add(-time.Hour)},
		},
	}
	adapter := &fakeBackfillAdapter{
		fakeAdapter: fakeAdapter{
			name:       funding.ExchangeHyena,
			symbols:    []string{"BTC"},
			rates:      map[string]float64{"BTC": 0.0004},
			observedAt: now,
		},
		history: history,
	}
	feed := &Feed{Adapter: adapter, Interval: 5 * time.Minute, WindowDays: 3, Backfill: true}

	c.runCycle(ctx, feed)
	if adapter.historyCalls != 1 {
		t.Errorf("Expected 1 history call, got %d", adapter.historyCalls)
	}

	samples, err := store.Query(ctx, funding.ExchangeHyena, "BTC", now.Add(-4*time.Hour))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(samples) != 4 {
		t.Errorf("Expected 3 backfilled + 1 live sample, got %d", len(samples))
	}

	// A second cycle must not replay history again.
	c.runCycle(ctx, feed)
	if adapter.historyCalls != 1 {
		t.Errorf("Expected no further history calls, got %d", adapter.historyCalls)
	}
}

func TestBackfillSkippedWhenStoreWarm(t *testing.T) {
	ctx := context.Background()
	store := funding.NewMemoryStore()
	now := time.Now().UTC()
	seed := &funding.RateSample{Exchange: funding.ExchangeHyena, Symbol: "BTC", Rate: 0.0001, ObservedAt: now.Add(-time.Hour)}
	if err := store.Append(ctx, seed); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	c := newTestCollector(store, nil)
	adapter := &fakeBackfillAdapter{
		fakeAdapter: fakeAdapter{
			name:       funding.ExchangeHyena,
			symbols:    []string{"BTC"},
			rates:      map[string]float64{"BTC": 0.0002},
			observedAt: now,
		},
		history: map[string][]*funding.RateSample{"BTC": {seed}},
	}
	feed := &Feed{Adapter: adapter, Interval: 5 * time.Minute, WindowDays: 3, Backfill: true}

	c.runCycle(ctx, feed)
	if adapter.historyCalls != 0 {
		t.Errorf("Expected no history calls for a warm store, got %d", adapter.historyCalls)
	}
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("stores from at least one feed", func(t *testing.T) {
		c := newTestCollector(funding.NewMemoryStore(), nil)
		ok := &fakeAdapter{
			name:       funding.ExchangeLighter,
			symbols:    []string{"BTC-USDC"},
			rates:      map[string]float64{"BTC-USDC": 0.0001},
			observedAt: time.Now().UTC(),
		}
		down := &fakeAdapter{
			name:    funding.ExchangeHyena,
			symbols: []string{"BTC"},
			failing: map[string]bool{"BTC": true},
		}
		c.AddFeed(&Feed{Adapter: ok, Interval: time.Minute, WindowDays: 2})
		c.AddFeed(&Feed{Adapter: down, Interval: 5 * time.Minute, WindowDays: 3})

		if err := c.RunOnce(ctx); err != nil {
			t.Errorf("RunOnce failed: %v", err)
		}
	})

	t.Run("error when nothing stored", func(t *testing.T) {
		c := newTestCollector(funding.NewMemoryStore(), nil)
		down := &fakeAdapter{
			name:    funding.ExchangeLighter,
			symbols: []string{"BTC-USDC"},
			failing: map[string]bool{"BTC-USDC": true},
		}
		c.AddFeed(&Feed{Adapter: down, Interval: time.Minute, WindowDays: 2})

		if err := c.RunOnce(ctx); err == nil {
			t.Error("Expected an error when no feed stored samples")
		}
	})
}

func TestWarmStartFromCache(t *testing.T) {
	ctx := context.Background()
	cacher := cache.NewMemoryCache()
	defer cacher.Close()

	cached := &funding.OpportunitySet{
		Exchange: funding.ExchangeLighter,
		TopLong: []*funding.AggregatedRate{
			{Symbol: "ETH-USDC", WindowDays: 2, AverageRate: -0.0002, APR: -1.752, SampleCount: 12},
		},
		TopShort:    []*funding.AggregatedRate{},
		GeneratedAt: time.Now().UTC().Add(-10 * time.Minute),
	}
	if err := cacher.SetOpportunities(ctx, cached, time.Hour); err != nil {
		t.Fatalf("SetOpportunities failed: %v", err)
	}

	// Empty store: the warm start must fall back to the cached snapshot.
	c := newTestCollector(funding.NewMemoryStore(), cacher)
	adapter := &fakeAdapter{name: funding.ExchangeLighter, symbols: []string{"ETH-USDC"}}
	feed := &Feed{Adapter: adapter, Interval: time.Minute, WindowDays: 2}

	c.warmStart(ctx, feed)

	set, ok := c.Opportunities().Get(funding.ExchangeLighter)
	if !ok {
		t.Fatal("Expected a snapshot restored from cache")
	}
	if len(set.TopLong) != 1 || set.TopLong[0].Symbol != "ETH-USDC" {
		t.Errorf("Unexpected restored snapshot: %+v", set)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	store := funding.NewMemoryStore()
	now := time.Now().UTC()

	old := &funding.RateSample{Exchange: funding.ExchangeLighter, Symbol: "BTC-USDC", Rate: 0.0001, ObservedAt: now.AddDate(0, 0, -10)}
	fresh := &funding.RateSample{Exchange: funding.ExchangeLighter, Symbol: "BTC-USDC", Rate: 0.0002, ObservedAt: now.Add(-time.Hour)}
	for _, s := range []*funding.RateSample{old, fresh} {
		if err := store.Append(ctx, s); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	c := newTestCollector(store, nil)
	c.retentionDays = 7
	c.prune(ctx)

	samples, err := store.Query(ctx, funding.ExchangeLighter, "BTC-USDC", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(samples) != 1 || !samples[0].ObservedAt.Equal(fresh.ObservedAt) {
		t.Errorf("Expected only the fresh sample to survive, got %d rows", len(samples))
	}
}
