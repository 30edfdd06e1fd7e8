package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// MemoryCache implements an in-memory cache with TTL support. It is the
// default when Redis is disabled and keeps the service single-binary.
type MemoryCache struct {
	items    map[string]memoryItem
	mu       sync.RWMutex
	stopChan chan struct{}
	stopped  bool
}

type memoryItem struct {
	payload    []byte
	expiration time.Time
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		items:    make(map[string]memoryItem),
		stopChan: make(chan struct{}),
	}

	// Start cleanup goroutine
	go mc.cleanupLoop()

	return mc
}

// SetLatestSample stores the most recent sample for a symbol
func (mc *MemoryCache) SetLatestSample(ctx context.Context, sample *funding.RateSample, expiration time.Duration) error {
	return mc.set(sampleKey(sample.Exchange, sample.Symbol), sample, expiration)
}

// GetLatestSample retrieves the most recent sample for a symbol
func (mc *MemoryCache) GetLatestSample(ctx context.Context, exchange, symbol string) (*funding.RateSample, error) {
	var sample funding.RateSample
	if err := mc.get(sampleKey(exchange, symbol), &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// SetOpportunities stores the last ranked opportunity set for an exchange
func (mc *MemoryCache) SetOpportunities(ctx context.Context, set *funding.OpportunitySet, expiration time.Duration) error {
	return mc.set(opportunitiesKey(set.Exchange), set, expiration)
}

// GetOpportunities retrieves the last ranked opportunity set for an exchange
func (mc *MemoryCache) GetOpportunities(ctx context.Context, exchange string) (*funding.OpportunitySet, error) {
	var set funding.OpportunitySet
	if err := mc.get(opportunitiesKey(exchange), &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// HealthCheck always succeeds for the in-process cache
func (mc *MemoryCache) HealthCheck(ctx context.Context) error {
	return nil
}

// Size returns the current number of items in the cache
func (mc *MemoryCache) Size() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return len(mc.items)
}

// Close stops the cleanup goroutine
func (mc *MemoryCache) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.stopped {
		close(mc.stopChan)
		mc.stopped = true
	}

	return nil
}

func (mc *MemoryCache) set(key string, value interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}

	expirationTime := time.Now().Add(expiration)
	if expiration <= 0 {
		expirationTime = time.Now().Add(24 * time.Hour)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.items[key] = memoryItem{
		payload:    payload,
		expiration: expirationTime,
	}

	return nil
}

func (mc *MemoryCache) get(key string, dest interface{}) error {
	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	if !exists {
		return ErrCacheMiss
	}

	if time.Now().After(item.expiration) {
		go mc.deleteExpired(key)
		return ErrCacheMiss
	}

	if err := json.Unmarshal(item.payload, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// deleteExpired removes an expired key (called asynchronously)
func (mc *MemoryCache) deleteExpired(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if item, exists := mc.items[key]; exists {
		if time.Now().After(item.expiration) {
			delete(mc.items, key)
		}
	}
}

// cleanupLoop runs periodic cleanup of expired items
func (mc *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.cleanup()
		case <-mc.stopChan:
			return
		}
	}
}

// cleanup removes expired items
func (mc *MemoryCache) cleanup() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for key, item := range mc.items {
		if now.After(item.expiration) {
			delete(mc.items, key)
		}
	}
}
