package cache

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/curi/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisTier is the persistent tier backed by Redis. Expiry is delegated to
// Redis itself, so Cleanup is a no-op and stale reads are not supported.
// A failed ping marks the tier unavailable; it recovers on the next
// successful operation.
type RedisTier struct {
	client    *redis.Client
	available atomic.Bool
}

// NewRedisTier creates a Redis-backed tier from a connection URL
// (e.g. "redis://localhost:6379"). The tier is returned even when Redis is
// unreachable so the cache can degrade to the remaining tiers.
func NewRedisTier(redisURL string) (*RedisTier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewRedisTierFromClient(redis.NewClient(opts)), nil
}

// NewRedisTierFromClient wraps an existing client (used by tests with
// miniredis).
func NewRedisTierFromClient(client *redis.Client) *RedisTier {
	tier := &RedisTier{client: client}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Cache] Redis tier unavailable: %v", err)
		tier.available.Store(false)
	} else {
		tier.available.Store(true)
	}

	return tier
}

// Name returns the tier identifier used in logs and stats.
func (t *RedisTier) Name() string { return "redis" }

// Available reports whether the last Redis operation succeeded.
func (t *RedisTier) Available() bool { return t.available.Load() }

// Get retrieves a value from Redis.
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := t.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		t.available.Store(true)
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		t.available.Store(false)
		return nil, fmt.Errorf("%w: redis: %v", domain.ErrCacheTierUnavailable, err)
	}

	t.available.Store(true)
	return data, nil
}

// Set stores a value in Redis with TTL.
func (t *RedisTier) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := t.client.Set(ctx, key, data, ttl).Err(); err != nil {
		t.available.Store(false)
		return fmt.Errorf("%w: redis: %v", domain.ErrCacheTierUnavailable, err)
	}

	t.available.Store(true)
	return nil
}

// Delete removes a value from Redis.
func (t *RedisTier) Delete(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, key).Err(); err != nil {
		t.available.Store(false)
		return fmt.Errorf("%w: redis: %v", domain.ErrCacheTierUnavailable, err)
	}

	t.available.Store(true)
	return nil
}

// Cleanup is a no-op: Redis evicts expired keys natively.
func (t *RedisTier) Cleanup(ctx context.Context) (int, error) {
	return 0, nil
}

// Len returns the number of keys in the Redis database.
func (t *RedisTier) Len(ctx context.Context) int {
	n, err := t.client.DBSize(ctx).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close releases the underlying client.
func (t *RedisTier) Close() error {
	return t.client.Close()
}
