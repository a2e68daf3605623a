package domain

import (
	"context"
	"time"
)

// CacheTier is one layer of the tiered cache, ordered by access latency.
// Values are opaque serialized bytes; expiry is enforced per tier.
type CacheTier interface {
	Name() string
	Available() bool
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Cleanup removes expired entries and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
	// Len returns the number of live entries (0 when unknown).
	Len(ctx context.Context) int
}

// StaleReader is implemented by tiers that retain expired entries long
// enough to serve a last-known-good value.
type StaleReader interface {
	GetStale(ctx context.Context, key string) ([]byte, error)
}

// CacheRepository is the tiered cache as seen by the usecase layer: typed
// reads and writes keyed by data type and identifier, with the tier walk
// hidden behind the interface.
type CacheRepository interface {
	Get(ctx context.Context, dataType, identifier string) ([]byte, error)
	GetStale(ctx context.Context, dataType, identifier string) ([]byte, error)
	Set(ctx context.Context, dataType, identifier string, data []byte) error
	Invalidate(ctx context.Context, dataType, identifier string) error
	Cleanup(ctx context.Context) int
	TierStatuses(ctx context.Context) []TierStatus
}

// TierStatus describes one cache tier for operational reporting.
type TierStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Entries   int    `json:"entries"`
}

// ProductProvider is an external product-search API treated as an opaque
// data source.
type ProductProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Product, error)
}

// ProductDetailer is implemented by providers that support per-SKU lookup.
type ProductDetailer interface {
	ProductDetails(ctx context.Context, sku string) (*Product, error)
}
