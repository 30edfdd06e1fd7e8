package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/api"
	"github.com/samnmbuguah/FundingRate/internal/cache"
	"github.com/samnmbuguah/FundingRate/internal/collector"
	"github.com/samnmbuguah/FundingRate/internal/config"
	"github.com/samnmbuguah/FundingRate/internal/database"
	"github.com/samnmbuguah/FundingRate/internal/exchange/hyena"
	"github.com/samnmbuguah/FundingRate/internal/exchange/lighter"
	"github.com/samnmbuguah/FundingRate/internal/funding"
	"github.com/samnmbuguah/FundingRate/internal/logger"
	"github.com/samnmbuguah/FundingRate/internal/monitoring"
)

func main() {
	var (
		configPath     = flag.String("config", "configs/config.yaml", "configuration file path")
		migrationsPath = flag.String("migrations", "internal/database/migrations", "database migrations directory")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "path", *configPath, "error", err.Error())
	}

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.Logging.Level),
		Format:     logger.LogFormat(cfg.Logging.Format),
		Output:     cfg.Logging.Output,
		Filename:   cfg.Logging.Filename,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})

	logger.Info("starting funding rate service",
		"app", cfg.App.Name, "version", cfg.App.Version, "env", cfg.App.Env)

	store, db := openStore(cfg, *migrationsPath)
	if db != nil {
		defer db.Close()
	}

	cacher, err := cache.NewCacher(&cache.Config{
		Enabled:  cfg.Redis.Enabled,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", "error", err.Error())
		cacher = cache.NewMemoryCache()
	}
	defer cacher.Close()

	var metrics *monitoring.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewMetrics()
	}

	coll := collector.New(&collector.Config{
		Store:         store,
		Aggregator:    funding.NewAggregator(store, cfg.IntervalsPerYear()),
		Cacher:        cacher,
		Metrics:       metrics,
		TopN:          cfg.Ranking.TopN,
		RetentionDays: cfg.Retention.Days,
	})
	if addFeeds(coll, cfg) == 0 {
		logger.Warn("no exchange feeds enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coll.Start(ctx); err != nil {
		logger.Fatal("failed to start collector", "error", err.Error())
	}

	server := api.NewServer(cfg, &api.Deps{
		Store:     store,
		Cacher:    cacher,
		DB:        db,
		Status:    coll.Status(),
		Snapshots: coll.Opportunities(),
		Metrics:   metrics,
	})

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", "error", err.Error())
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig.String())

	cancel()
	coll.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err.Error())
	}

	logger.Info("shutdown complete")
}

// openStore connects Postgres when enabled, applying pending migrations on
// the way up. Without a database the service keeps samples in memory, which
// matches how it behaves when the database is unreachable.
func openStore(cfg *config.Config, migrationsPath string) (funding.Store, *database.DB) {
	if !cfg.Database.Enabled {
		logger.Warn("database disabled, samples are kept in memory only")
		return funding.NewMemoryStore(), nil
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
		logger.Error("database unreachable, falling back to in-memory store", "error", err.Error())
		return funding.NewMemoryStore(), nil
	}

	if err := applyMigrations(db, migrationsPath); err != nil {
		db.Close()
		logger.Fatal("failed to apply database migrations", "error", err.Error())
	}

	return funding.NewPostgresStore(db.DB), db
}

func applyMigrations(db *database.DB, path string) error {
	migrator, err := database.NewMigrator(db, path)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

// addFeeds registers one collector feed per enabled venue and returns how
// many were added.
func addFeeds(coll *collector.Collector, cfg *config.Config) int {
	count := 0

	if cfg.Exchanges.Lighter.Enabled {
		ex := cfg.Exchanges.Lighter
		coll.AddFeed(&collector.Feed{
			Adapter: lighter.NewClient(lighter.Config{
				BaseURL:            ex.BaseURL,
				Symbols:            ex.Symbols,
				MinRequestInterval: ex.MinRequestInterval.Duration(),
			}),
			Interval:   ex.Interval.Duration(),
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
			Interval:   ex.Interval.Duration(),
			WindowDays: ex.WindowDays,
			Backfill:   ex.Backfill,
		})
		count++
	}

	return count
}
