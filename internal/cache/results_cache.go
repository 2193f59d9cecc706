// Package cache provides Redis-based caching of backtest results with
// graceful degradation. When Redis is unavailable, operations return
// ErrCacheUnavailable and callers fall back to the database or recompute.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cdc-zone-bot/config"

	"github.com/redis/go-redis/v9"
)

// latestKey is the cache slot for the most recent run of a pair at a timeframe.
const latestKey = "backtest:%s:%s:latest"

// DefaultResultTTL bounds staleness when the config carries no TTL.
const DefaultResultTTL = time.Hour

// ResultCache stores the latest backtest result per pair and timeframe.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	// Circuit breaker settings
	maxFailures   int
	checkInterval time.Duration
}

// NewResultCache creates a cache backed by the configured Redis instance.
// A failed initial ping returns the cache in degraded mode rather than an
// error; the circuit breaker re-probes in the background.
func NewResultCache(cfg config.RedisConfig) (*ResultCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ttl := DefaultResultTTL
	if cfg.CacheTTL > 0 {
		ttl = time.Duration(cfg.CacheTTL) * time.Second
	}

	rc := &ResultCache{
		client:        client,
		ttl:           ttl,
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[CACHE] Initial Redis connection failed: %v", err)
		return rc, nil // Return cache in degraded mode
	}

	rc.healthy = true
	rc.lastCheck = time.Now()
	log.Printf("[CACHE] Redis connected successfully at %s", cfg.Address)

	return rc, nil
}

// IsHealthy returns whether Redis is currently available.
func (rc *ResultCache) IsHealthy() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.healthy
}

// recordFailure tracks a Redis operation failure for the circuit breaker.
func (rc *ResultCache) recordFailure() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.failureCount++
	if rc.failureCount >= rc.maxFailures {
		if rc.healthy {
			log.Printf("[CACHE] Circuit breaker OPEN: Redis marked unhealthy after %d failures", rc.failureCount)
		}
		rc.healthy = false
	}
}

// recordSuccess resets the failure counter on successful operation.
func (rc *ResultCache) recordSuccess() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !rc.healthy {
		log.Printf("[CACHE] Circuit breaker CLOSED: Redis recovered")
	}
	rc.healthy = true
	rc.failureCount = 0
	rc.lastCheck = time.Now()
}

// checkHealth performs a background health check if enough time has passed.
func (rc *ResultCache) checkHealth(ctx context.Context) {
	rc.mu.RLock()
	timeSinceCheck := time.Since(rc.lastCheck)
	shouldCheck := !rc.healthy && timeSinceCheck >= rc.checkInterval
	rc.mu.RUnlock()

	if !shouldCheck {
		return
	}

	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := rc.client.Ping(pingCtx).Err(); err == nil {
			rc.recordSuccess()
		}
	}()
}

// SetLatest caches the most recent result for a pair at a timeframe.
func (rc *ResultCache) SetLatest(ctx context.Context, pair, timeframe string, result any) error {
	rc.checkHealth(ctx)

	if !rc.IsHealthy() {
		return ErrCacheUnavailable
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := fmt.Sprintf(latestKey, pair, timeframe)
	if err := rc.client.Set(ctx, key, data, rc.ttl).Err(); err != nil {
		rc.recordFailure()
		return fmt.Errorf("redis set failed: %w", err)
	}

	rc.recordSuccess()
	return nil
}

// GetLatest loads the cached result for a pair at a timeframe into out.
func (rc *ResultCache) GetLatest(ctx context.Context, pair, timeframe string, out any) error {
	rc.checkHealth(ctx)

	if !rc.IsHealthy() {
		return ErrCacheUnavailable
	}

	key := fmt.Sprintf(latestKey, pair, timeframe)
	data, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		rc.recordFailure()
		return fmt.Errorf("redis get failed: %w", err)
	}

	rc.recordSuccess()

	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return nil
}

// Invalidate drops the cached result for a pair at a timeframe.
func (rc *ResultCache) Invalidate(ctx context.Context, pair, timeframe string) error {
	rc.checkHealth(ctx)

	if !rc.IsHealthy() {
		return ErrCacheUnavailable
	}

	key := fmt.Sprintf(latestKey, pair, timeframe)
	if err := rc.client.Del(ctx, key).Err(); err != nil {
		rc.recordFailure()
		return fmt.Errorf("redis delete failed: %w", err)
	}

	rc.recordSuccess()
	return nil
}

// Close releases the Redis client.
func (rc *ResultCache) Close() error {
	return rc.client.Close()
}
