package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/curi/backend/internal/domain"
)

// TTLPolicy maps cache data types to their time-to-live.
type TTLPolicy func(dataType string) time.Duration

// DefaultTTLs returns the stock TTL policy: product details 1h, search
// results 30m, category data 2h, reviews 4h, trending 15m.
func DefaultTTLs(dataType string) time.Duration {
	switch dataType {
	case domain.CacheTypeProductDetails:
		return time.Hour
	case domain.CacheTypeSearchResults:
		return 30 * time.Minute
	case domain.CacheTypeCategoryData:
		return 2 * time.Hour
	case domain.CacheTypeProductReviews:
		return 4 * time.Hour
	case domain.CacheTypeTrendingProducts:
		return 15 * time.Minute
	default:
		return time.Hour
	}
}

// TieredCache reads through an ordered list of tiers (fastest first),
// promoting slower-tier hits into faster tiers so repeated access converges
// on the fastest one. Writes populate every tier; a failing tier degrades
// the cache, never the request.
type TieredCache struct {
	tiers []domain.CacheTier
	ttls  TTLPolicy
}

// NewTieredCache creates a cache over the given tiers, ordered fastest
// first. A nil policy uses DefaultTTLs. Callers are unaware of how many
// tiers are actually configured.
func NewTieredCache(ttls TTLPolicy, tiers ...domain.CacheTier) *TieredCache {
	if ttls == nil {
		ttls = DefaultTTLs
	}

	return &TieredCache{tiers: tiers, ttls: ttls}
}

// Key derives the storage key for a data type and identifier. Hashing keeps
// file names and Redis keys uniform regardless of query contents.
func Key(dataType, identifier string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s", dataType, identifier)))
	return hex.EncodeToString(sum[:])
}

// Get checks each tier in order and promotes hits into the faster tiers.
func (c *TieredCache) Get(ctx context.Context, dataType, identifier string) ([]byte, error) {
	key := Key(dataType, identifier)

	for i, tier := range c.tiers {
		data, err := tier.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, domain.ErrCacheMiss) {
				log.Printf("[Cache] %s tier get error: %v", tier.Name(), err)
			}
			continue
		}

		if i > 0 {
			c.promote(ctx, key, data, c.ttls(dataType), i)
		}

		return data, nil
	}

	return nil, domain.ErrCacheMiss
}

// GetStale returns the freshest last-known-good value from any tier that
// retains expired entries. Used only for degraded responses.
func (c *TieredCache) GetStale(ctx context.Context, dataType, identifier string) ([]byte, error) {
	key := Key(dataType, identifier)

	for _, tier := range c.tiers {
		stale, ok := tier.(domain.StaleReader)
		if !ok {
			continue
		}

		data, err := stale.GetStale(ctx, key)
		if err == nil {
			return data, nil
		}
	}

	return nil, domain.ErrCacheMiss
}

// Set writes to every tier. Individual tier failures are logged and
// swallowed so one dead tier cannot fail the request; Set errors only when
// no tier accepted the value.
func (c *TieredCache) Set(ctx context.Context, dataType, identifier string, data []byte) error {
	key := Key(dataType, identifier)
	ttl := c.ttls(dataType)

	stored := false
	for _, tier := range c.tiers {
		if err := tier.Set(ctx, key, data, ttl); err != nil {
			log.Printf("[Cache] %s tier set error: %v", tier.Name(), err)
			continue
		}
		stored = true
	}

	if !stored {
		return domain.ErrCacheTierUnavailable
	}
	return nil
}

// Invalidate removes a single entry from all tiers.
func (c *TieredCache) Invalidate(ctx context.Context, dataType, identifier string) error {
	key := Key(dataType, identifier)

	var lastErr error
	for _, tier := range c.tiers {
		if err := tier.Delete(ctx, key); err != nil {
			log.Printf("[Cache] %s tier delete error: %v", tier.Name(), err)
			lastErr = err
		}
	}

	return lastErr
}

// Cleanup sweeps expired entries from every tier and returns the total
// number removed.
func (c *TieredCache) Cleanup(ctx context.Context) int {
	removed := 0
	for _, tier := range c.tiers {
		n, err := tier.Cleanup(ctx)
		if err != nil {
			log.Printf("[Cache] %s tier cleanup error: %v", tier.Name(), err)
			continue
		}
		removed += n
	}

	if removed > 0 {
		log.Printf("[Cache] Cleaned up %d expired entries", removed)
	}

	return removed
}

// TierStatuses reports availability and entry counts per tier.
func (c *TieredCache) TierStatuses(ctx context.Context) []domain.TierStatus {
	statuses := make([]domain.TierStatus, 0, len(c.tiers))
	for _, tier := range c.tiers {
		statuses = append(statuses, domain.TierStatus{
			Name:      tier.Name(),
			Available: tier.Available(),
			Entries:   tier.Len(ctx),
		})
	}
	return statuses
}

// promote writes a slower-tier hit into every faster tier, restarting the
// TTL clock the same way the persistent tiers do on promotion.
func (c *TieredCache) promote(ctx context.Context, key string, data []byte, ttl time.Duration, foundAt int) {
	for i := 0; i < foundAt; i++ {
		if err := c.tiers[i].Set(ctx, key, data, ttl); err != nil {
			log.Printf("[Cache] promote to %s failed: %v", c.tiers[i].Name(), err)
		}
	}
}
