package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/config"
	"github.com/samnmbuguah/FundingRate/internal/database"
	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// Seeds synthetic hourly funding rates for both venues so the API can be
// exercised locally without hitting live exchanges. Re-running overwrites
// the same observation times, so the seeder is idempotent.
func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "configuration file path")
		hours      = flag.Int("hours", 72, "hours of history to generate")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(&database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		Timeout:  cfg.Database.Timeout.Duration(),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	store := funding.NewPostgresStore(db.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Hour)

	venues := map[string][]string{
		funding.ExchangeLighter: {"WETH-USDC", "WBTC-USDC", "SOL-USDC", "ARB-USDC", "LINK-USDC", "DOGE-USDC"},
		funding.ExchangeHyena:   {"BTC", "ETH", "SOL", "HYPE"},
	}

	seeded := 0
	for exchange, symbols := range venues {
		for _, symbol := range symbols {
			// Per-symbol bias keeps the ranking interesting; noise on top.
			bias := (rand.Float64() - 0.5) * 0.001
			for h := *hours; h >= 0; h-- {
				observed := now.Add(-time.Duration(h) * time.Hour)
				next := observed.Add(time.Hour)
				sample := &funding.RateSample{
					Exchange:      exchange,
					Symbol:        symbol,
					Rate:          bias + (rand.Float64()-0.5)*0.0002,
					ObservedAt:    observed,
					NextFundingAt: &next,
				}
				if err := store.Append(ctx, sample); err != nil {
					log.Fatalf("failed to store sample for %s/%s: %v", exchange, symbol, err)
				}
				seeded++
			}
		}
	}

	fmt.Printf("seeded %d samples covering %d hours\n", seeded, *hours)
}
