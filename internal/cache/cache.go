package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cacher defines the interface for cache operations
type Cacher interface {
	// Latest samples
	SetLatestSample(ctx context.Context, sample *funding.RateSample, expiration time.Duration) error
	GetLatestSample(ctx context.Context, exchange, symbol string) (*funding.RateSample, error)

	// Ranked opportunities
	SetOpportunities(ctx context.Context, set *funding.OpportunitySet, expiration time.Duration) error
	GetOpportunities(ctx context.Context, exchange string) (*funding.OpportunitySet, error)

	// Health
	HealthCheck(ctx context.Context) error
	Close() error
}

// Config represents cache configuration
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewCacher creates a new cache instance based on configuration
func NewCacher(cfg *Config) (Cacher, error) {
	if cfg != nil && cfg.Enabled {
		return NewRedisCache(cfg)
	}
	return NewMemoryCache(), nil
}

func sampleKey(exchange, symbol string) string {
	return fmt.Sprintf("funding:latest:%s:%s", exchange, symbol)
}

func opportunitiesKey(exchange string) string {
	return fmt.Sprintf("funding:opportunities:%s", exchange)
}
