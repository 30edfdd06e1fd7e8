package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/config"
	"github.com/samnmbuguah/FundingRate/internal/database"
	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// Prints stored-series diagnostics per venue so operators can confirm the
// collector is writing and how much of the averaging window is covered.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "configuration file path")
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

	windows := map[string]int{
		funding.ExchangeLighter: cfg.Exchanges.Lighter.WindowDays,
		funding.ExchangeHyena:   cfg.Exchanges.Hyena.WindowDays,
	}

	for _, name := range []string{funding.ExchangeLighter, funding.ExchangeHyena} {
		showSummary(ctx, store, name, windows[name])
	}
}

func showSummary(ctx context.Context, store funding.Store, exchange string, windowDays int) {
	fmt.Printf("=== %s ===\n", exchange)

	summary, err := store.Summary(ctx, exchange)
	if err != nil {
		fmt.Printf("failed to query summary: %v\n\n", err)
		return
	}
	if summary.SampleCount == 0 {
		fmt.Print("no data stored\n\n")
		return
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	coverage := summary.NewestAt.Sub(summary.OldestAt)

	fmt.Printf("total records:  %d\n", summary.SampleCount)
	fmt.Printf("unique symbols: %d\n", summary.SymbolCount)
	fmt.Printf("oldest record:  %s\n", summary.OldestAt.Format(time.RFC3339))
	fmt.Printf("newest record:  %s\n", summary.NewestAt.Format(time.RFC3339))
	fmt.Printf("data duration:  %s\n", coverage.Round(time.Minute))
	if coverage < window {
		fmt.Printf("note: less than the %d-day window is covered; averages use partial data\n", windowDays)
	} else {
		fmt.Printf("the full %d-day window is covered\n", windowDays)
	}
	fmt.Println()
}
