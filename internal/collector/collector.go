package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/samnmbuguah/FundingRate/internal/cache"
	"github.com/samnmbuguah/FundingRate/internal/exchange"
	"github.com/samnmbuguah/FundingRate/internal/funding"
	"github.com/samnmbuguah/FundingRate/internal/logger"
	"github.com/samnmbuguah/FundingRate/internal/monitoring"
)

// Cache lifetimes. Samples turn over every fetch cycle; opportunity sets
// only need to survive restarts.
const (
	sampleTTL   = time.Hour
	snapshotTTL = 24 * time.Hour
)

// Feed couples a venue adapter with its fetch cadence and aggregation window.
type Feed struct {
	Adapter    exchange.Adapter
	Interval   time.Duration
	WindowDays int
	Backfill   bool

	backfilled bool
}

// Config carries the collector's dependencies.
type Config struct {
	Store         funding.Store
	Aggregator    *funding.Aggregator
	Cacher        cache.Cacher
	Metrics       *monitoring.Metrics
	TopN          int
	RetentionDays int
}

// Collector schedules fetch cycles, writes samples to the store and publishes
// ranked opportunity snapshots. One cron entry per feed; cycles for the same
// feed never overlap, cycles for different feeds may.
type Collector struct {
	store         funding.Store
	aggregator    *funding.Aggregator
	cacher        cache.Cacher
	metrics       *monitoring.Metrics
	status        *StatusTracker
	snapshots     *Snapshots
	cron          *cron.Cron
	feeds         []*Feed
	topN          int
	retentionDays int
	now           func() time.Time
}

// New creates a collector. Feeds are registered with AddFeed before Start.
func New(cfg *Config) *Collector {
	topN := cfg.TopN
	if topN <= 0 {
		topN = funding.DefaultTopN
	}

	return &Collector{
		store:         cfg.Store,
		aggregator:    cfg.Aggregator,
		cacher:        cfg.Cacher,
		metrics:       cfg.Metrics,
		status:        NewStatusTracker(),
		snapshots:     NewSnapshots(),
		cron:          cron.New(cron.WithSeconds()),
		topN:          topN,
		retentionDays: cfg.RetentionDays,
		now:           time.Now,
	}
}

// AddFeed registers a venue feed.
func (c *Collector) AddFeed(feed *Feed) {
	c.feeds = append(c.feeds, feed)
}

// Status returns the job status tracker.
func (c *Collector) Status() *StatusTracker {
	return c.status
}

// Opportunities returns the published snapshot registry.
func (c *Collector) Opportunities() *Snapshots {
	return c.snapshots
}

// Start schedules all feeds and kicks off an initial fetch pass. The cron
// only begins ticking after the initial pass so a slow first cycle cannot
// overlap its own schedule.
func (c *Collector) Start(ctx context.Context) error {
	chain := cron.NewChain(cron.SkipIfStillRunning(cronLogger{}))

	for _, feed := range c.feeds {
		feed := feed
		spec := fmt.Sprintf("@every %s", feed.Interval)
		job := chain.Then(cron.FuncJob(func() { c.runCycle(ctx, feed) }))
		if _, err := c.cron.AddJob(spec, job); err != nil {
			return fmt.Errorf("failed to schedule %s feed: %w", feed.Adapter.Name(), err)
		}
		logger.Info("feed scheduled", "exchange", feed.Adapter.Name(), "interval", feed.Interval.String(), "window_days", feed.WindowDays)
	}

	if c.retentionDays > 0 {
		job := chain.Then(cron.FuncJob(func() { c.prune(ctx) }))
		if _, err := c.cron.AddJob("@daily", job); err != nil {
			return fmt.Errorf("failed to schedule retention prune: %w", err)
		}
		logger.Info("retention prune scheduled", "retention_days", c.retentionDays)
	}

	go func() {
		for _, feed := range c.feeds {
			if ctx.Err() != nil {
				return
			}
			c.warmStart(ctx, feed)
			c.runCycle(ctx, feed)
		}
		if ctx.Err() == nil {
			c.cron.Start()
		}
	}()

	return nil
}

// Stop halts the schedule and waits for running cycles to finish.
func (c *Collector) Stop() {
	<-c.cron.Stop().Done()
	logger.Info("collector stopped")
}

// RunOnce executes a single fetch cycle for every feed. Used by the one-shot
// fetch command; returns an error when no feed stored anything.
func (c *Collector) RunOnce(ctx context.Context) error {
	var total int
	for _, feed := range c.feeds {
		stored, _ := c.runCycle(ctx, feed)
		total += stored
	}
	if total == 0 {
		return errors.New("no samples stored")
	}
	return nil
}

func (c *Collector) runCycle(ctx context.Context, feed *Feed) (stored, failed int) {
	name := feed.Adapter.Name()
	start := time.Now()

	log := logger.WithFields(map[string]interface{}{
		"exchange": name,
		"cycle_id": uuid.New().String(),
	})

	if err := c.store.Ping(ctx); err != nil {
		log.Error("store unreachable, aborting cycle", "error", err)
		c.status.StartCycle(name, 0)
		c.status.RecordError(fmt.Errorf("store unreachable: %w", err))
		c.status.FinishCycle(true)
		c.metrics.RecordFetchCycle(name, "error", time.Since(start))
		return 0, 0
	}

	refreshErr := feed.Adapter.Refresh(ctx)
	if refreshErr != nil {
		log.Warn("refresh failed, continuing with previous state", "error", refreshErr)
	}

	symbols, err := feed.Adapter.Symbols(ctx)
	if err != nil {
		log.Error("no symbol universe available", "error", err)
		c.status.StartCycle(name, 0)
		c.status.RecordError(err)
		c.status.FinishCycle(true)
		c.metrics.RecordFetchCycle(name, "error", time.Since(start))
		return 0, 0
	}
	sort.Strings(symbols)

	c.status.StartCycle(name, len(symbols))
	if refreshErr != nil {
		c.status.RecordError(refreshErr)
	}

	if feed.Backfill && !feed.backfilled {
		c.backfill(ctx, feed, symbols, log)
		feed.backfilled = true
	}

	for _, symbol := range symbols {
		sample, err := feed.Adapter.FetchRate(ctx, symbol)
		if err != nil {
			log.Warn("symbol fetch failed", "symbol", symbol, "error", err)
			c.status.RecordError(err)
			c.metrics.RecordSymbolFetch(name, "failed")
			failed++
			continue
		}

		if err := c.store.Append(ctx, sample); err != nil {
			log.Error("failed to store sample", "symbol", symbol, "error", err)
			c.status.RecordError(err)
			c.metrics.RecordSymbolFetch(name, "failed")
			failed++
			continue
		}

		c.status.RecordSuccess()
		c.metrics.RecordSymbolFetch(name, "ok")
		c.metrics.RecordSampleStored(name)
		stored++

		if c.cacher != nil {
			if err := c.cacher.SetLatestSample(ctx, sample, sampleTTL); err != nil {
				log.Warn("failed to cache sample", "symbol", symbol, "error", err)
			}
		}
	}

	allFailed := len(symbols) > 0 && stored == 0
	c.status.FinishCycle(allFailed)

	duration := time.Since(start)
	c.metrics.RecordFetchCycle(name, cycleStatus(stored, failed), duration)

	if stored > 0 {
		c.metrics.SetLastSuccess(name, c.now())
		c.publish(ctx, feed)
	}

	log.Info("fetch cycle complete", "symbols", len(symbols), "stored", stored, "failed", failed, "duration", duration.String())
	return stored, failed
}

// publish recomputes aggregation and ranking for the feed's exchange and
// replaces the published snapshot. Returns the number of aggregated symbols.
func (c *Collector) publish(ctx context.Context, feed *Feed) int {
	name := feed.Adapter.Name()

	aggregates, err := c.aggregator.AggregateAll(ctx, name, feed.WindowDays)
	if err != nil {
		logger.Error("aggregation failed", "exchange", name, "error", err)
		return 0
	}
	if len(aggregates) == 0 {
		return 0
	}

	set := funding.Rank(name, aggregates, c.topN, c.now())
	c.snapshots.Publish(set)

	if c.cacher != nil {
		if err := c.cacher.SetOpportunities(ctx, set, snapshotTTL); err != nil {
			logger.Warn("failed to cache opportunity set", "exchange", name, "error", err)
		}
	}
	return len(aggregates)
}

// warmStart publishes a snapshot before the first fetch so the API can serve
// immediately: from stored history when the store has data, otherwise from
// the cached set of a previous run.
func (c *Collector) warmStart(ctx context.Context, feed *Feed) {
	if c.publish(ctx, feed) > 0 {
		return
	}
	if c.cacher == nil {
		return
	}

	name := feed.Adapter.Name()
	set, err := c.cacher.GetOpportunities(ctx, name)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("failed to load cached opportunity set", "exchange", name, "error", err)
		}
		return
	}
	c.snapshots.Publish(set)
	logger.Info("restored opportunity set from cache", "exchange", name, "generated_at", set.GeneratedAt)
}

// backfill replays venue history into a cold store so the first aggregation
// covers a full window instead of a single sample.
func (c *Collector) backfill(ctx context.Context, feed *Feed, symbols []string, log logger.Logger) {
	backfiller, ok := feed.Adapter.(exchange.Backfiller)
	if !ok {
		return
	}
	name := feed.Adapter.Name()

	summary, err := c.store.Summary(ctx, name)
	if err != nil {
		log.Warn("skipping backfill, summary unavailable", "error", err)
		return
	}
	if summary.SampleCount > 0 {
		return
	}

	since := c.now().Add(-time.Duration(feed.WindowDays) * 24 * time.Hour)
	var rows int
	for _, symbol := range symbols {
		samples, err := backfiller.FetchHistory(ctx, symbol, since)
		if err != nil {
			log.Warn("backfill fetch failed", "symbol", symbol, "error", err)
			continue
		}
		for _, sample := range samples {
			if err := c.store.Append(ctx, sample); err != nil {
				log.Warn("failed to store backfill sample", "symbol", symbol, "error", err)
				continue
			}
			c.metrics.RecordSampleStored(name)
			rows++
		}
	}
	log.Info("cold store backfilled", "window_days", feed.WindowDays, "rows", rows)
}

// prune drops rows older than the retention horizon.
func (c *Collector) prune(ctx context.Context) {
	before := c.now().AddDate(0, 0, -c.retentionDays)
	removed, err := c.store.Prune(ctx, before)
	if err != nil {
		logger.Error("retention prune failed", "error", err)
		return
	}
	logger.Info("retention prune complete", "removed", removed, "before", before)
}

func cycleStatus(stored, failed int) string {
	switch {
	case failed == 0:
		return "success"
	case stored == 0:
		return "error"
	default:
		return "partial"
	}
}

// cronLogger adapts the structured logger to the cron logging interface so
// skipped overlapping cycles show up in the service log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Info(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(msg, append(keysAndValues, "error", err)...)
}
