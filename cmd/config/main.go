package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/samnmbuguah/FundingRate/internal/config"
)

// Loads a configuration file, runs the same validation the service applies
// at startup, and prints a summary of the effective settings.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "configuration file path")
	flag.Parse()

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		log.Fatalf("configuration file does not exist: %s", *configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("configuration is invalid: %v", err)
	}

	fmt.Printf("configuration is valid: %s\n\n", *configPath)
	showSummary(cfg)
}

func showSummary(cfg *config.Config) {
	fmt.Println("effective settings:")
	fmt.Printf("  app:       %s %s (%s)\n", cfg.App.Name, cfg.App.Version, cfg.App.Env)
	fmt.Printf("  server:    %s:%d\n", cfg.Server.Host, cfg.Server.Port)

	if cfg.Database.Enabled {
		fmt.Printf("  database:  %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	} else {
		fmt.Println("  database:  disabled (in-memory store)")
	}

	if cfg.Redis.Enabled {
		fmt.Printf("  redis:     %s db=%d\n", cfg.Redis.Addr, cfg.Redis.DB)
	} else {
		fmt.Println("  redis:     disabled (in-memory cache)")
	}

	showFeed("lighter", cfg.Exchanges.Lighter)
	showFeed("hyena", cfg.Exchanges.Hyena)

	fmt.Printf("  ranking:   top %d per side\n", cfg.Ranking.TopN)
	if cfg.Retention.Days > 0 {
		fmt.Printf("  retention: %d days\n", cfg.Retention.Days)
	} else {
		fmt.Println("  retention: unlimited")
	}
	if cfg.Monitoring.PrometheusEnabled {
		fmt.Printf("  metrics:   %s\n", cfg.Monitoring.PrometheusPath)
	}
	fmt.Printf("  logging:   %s/%s to %s\n", cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
}

func showFeed(name string, ex config.ExchangeConfig) {
	if !ex.Enabled {
		fmt.Printf("  %-9s disabled\n", name+":")
		return
	}

	symbols := "auto-discovered"
	if len(ex.Symbols) > 0 {
		symbols = strings.Join(ex.Symbols, ",")
	}
	fmt.Printf("  %-9s every %s, %d-day window, symbols %s\n",
		name+":", ex.Interval.Duration(), ex.WindowDays, symbols)
}
