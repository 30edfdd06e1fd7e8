package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/cache"
	"github.com/samnmbuguah/FundingRate/internal/collector"
	"github.com/samnmbuguah/FundingRate/internal/config"
	"github.com/samnmbuguah/FundingRate/internal/database"
	"github.com/samnmbuguah/FundingRate/internal/exchange/hyena"
	"github.com/samnmbuguah/FundingRate/internal/exchange/lighter"
	"github.com/samnmbuguah/FundingRate/internal/funding"
	"github.com/samnmbuguah/FundingRate/internal/logger"
)

// Runs one fetch cycle for every enabled venue and exits. Meant for external
// cron setups that prefer a short-lived process over the resident scheduler.
func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "configuration file path")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall fetch deadline")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "path", *configPath, "error", err.Error())
	}

	logger.Init(logger.Config{
		Level:  logger.LogLevel(cfg.Logging.Level),
		Format: logger.LogFormat(cfg.Logging.Format),
		Output: cfg.Logging.Output,
	})

	// A one-shot process has nowhere to keep in-memory samples, so the
	// database is not optional here.
	if !cfg.Database.Enabled {
		logger.Fatal("one-shot fetch requires the database; enable it in the configuration")
	}

	db, err := database.NewConnection(&database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxOpen:  cfg.Database.MaxOpen,
		MaxIdle:  cfg.Database.MaxIdle,
		Timeout:  cfg.Database.Timeout.Duration(),
	})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err.Error())
	}
	defer db.Close()

	store := funding.NewPostgresStore(db.DB)

	// Mirror fetched samples into Redis when it is configured so a resident
	// API instance serves fresh data without waiting for its own cycle.
	var cacher cache.Cacher
	if cfg.Redis.Enabled {
		cacher, err = cache.NewCacher(&cache.Config{
			Enabled:  true,
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn("redis unavailable, skipping cache mirror", "error", err.Error())
			cacher = nil
		} else {
			defer cacher.Close()
		}
	}

	coll := collector.New(&collector.Config{
		Store:      store,
		Aggregator: funding.NewAggregator(store, cfg.IntervalsPerYear()),
		Cacher:     cacher,
		TopN:       cfg.Ranking.TopN,
	})

	count := 0
	if cfg.Exchanges.Lighter.Enabled {
		ex := cfg.Exchanges.Lighter
		coll.AddFeed(&collector.Feed{
			Adapter: lighter.NewClient(lighter.Config{
				BaseURL:            ex.BaseURL,
				Symbols:            ex.Symbols,
				MinRequestInterval: ex.MinRequestInterval.Duration(),
			}),
			WindowDays: ex.WindowDays,
			Backfill:   ex.Backfill,
		})
		count++
	}
	if cfg.Exchanges.Hyena.Enabled {
		ex := cfg.Exchanges.Hyena
		coll.AddFeed(&collector.Feed{
			Adapter: hyena.NewClient(hyena.Config{
				BaseURL:            ex.BaseURL,
				Dex:                ex.Dex,
				Symbols:            ex.Symbols,
				HistoryHours:       ex.HistoryHours,
				MinRequestInterval: ex.MinRequestInterval.Duration(),
			}),
			WindowDays: ex.WindowDays,
			Backfill:   ex.Backfill,
		})
		count++
	}
	if count == 0 {
		logger.Fatal("no exchange feeds enabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := coll.RunOnce(ctx); err != nil {
		logger.Error("fetch cycle failed", "error", err.Error())
		os.Exit(1)
	}

	logger.Info("fetch cycle complete")
}
