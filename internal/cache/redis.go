package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samnmbuguah/FundingRate/internal/funding"
	"github.com/samnmbuguah/FundingRate/internal/logger"
)

// RedisCache represents Redis cache implementation
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(cfg *Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", "addr", cfg.Addr, "db", cfg.DB)
	return &RedisCache{client: client}, nil
}

// SetLatestSample stores the most recent sample for a symbol
func (r *RedisCache) SetLatestSample(ctx context.Context, sample *funding.RateSample, expiration time.Duration) error {
	return r.setJSON(ctx, sampleKey(sample.Exchange, sample.Symbol), sample, expiration)
}

// GetLatestSample retrieves the most recent sample for a symbol
func (r *RedisCache) GetLatestSample(ctx context.Context, exchange, symbol string) (*funding.RateSample, error) {
	var sample funding.RateSample
	if err := r.getJSON(ctx, sampleKey(exchange, symbol), &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// SetOpportunities stores the last ranked opportunity set for an exchange
func (r *RedisCache) SetOpportunities(ctx context.Context, set *funding.OpportunitySet, expiration time.Duration) error {
	return r.setJSON(ctx, opportunitiesKey(set.Exchange), set, expiration)
}

// GetOpportunities retrieves the last ranked opportunity set for an exchange
func (r *RedisCache) GetOpportunities(ctx context.Context, exchange string) (*funding.OpportunitySet, error) {
	var set funding.OpportunitySet
	if err := r.getJSON(ctx, opportunitiesKey(exchange), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// HealthCheck performs a health check on Redis
func (r *RedisCache) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) setJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}
	return r.client.Set(ctx, key, payload, expiration).Err()
}

func (r *RedisCache) getJSON(ctx context.Context, key string, dest interface{}) error {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value for %s: %w", key, err)
	}
	return nil
}
