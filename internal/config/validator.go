package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database enabled but host is empty")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database enabled but dbname is empty")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis enabled but addr is empty")
	}

	if err := c.Exchanges.Lighter.validate("lighter"); err != nil {
		return err
	}
	if err := c.Exchanges.Hyena.validate("hyena"); err != nil {
		return err
	}
	if !c.Exchanges.Lighter.Enabled && !c.Exchanges.Hyena.Enabled {
		return fmt.Errorf("no exchange feed is enabled")
	}

	if c.Ranking.TopN <= 0 {
		return fmt.Errorf("ranking top_n must be positive, got %d", c.Ranking.TopN)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("retention days must not be negative, got %d", c.Retention.Days)
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	return nil
}

func (e *ExchangeConfig) validate(name string) error {
	if !e.Enabled {
		return nil
	}
	if e.Interval.Duration() <= 0 {
		return fmt.Errorf("exchange %s: interval must be positive", name)
	}
	if e.WindowDays <= 0 {
		return fmt.Errorf("exchange %s: window_days must be positive", name)
	}
	if e.IntervalsPerYear <= 0 {
		return fmt.Errorf("exchange %s: intervals_per_year must be positive", name)
	}
	return nil
}
