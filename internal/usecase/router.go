package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/curi/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

const dedupeTitlePrefix = 50

// RouterConfig holds configuration for the data source router
type RouterConfig struct {
	// ProviderTimeout bounds every individual provider call. In-flight
	// calls past the deadline are abandoned and counted as failures.
	ProviderTimeout time.Duration
	DefaultLimit    int
	MaxLimit        int
}

// DataSourceRouter serves product searches from the tiered cache, falling
// through remote providers in priority order and degrading to stale cache
// data or the static dataset when everything remote is down.
type DataSourceRouter struct {
	cache     domain.CacheRepository
	providers []domain.ProductProvider
	fallback  domain.ProductProvider
	stats     *StatsCollector
	timeout   time.Duration
	defLimit  int
	maxLimit  int
}

// NewDataSourceRouter creates a router. Providers are tried in the order
// given; fallback is the local static dataset consulted only after every
// remote provider and the stale-cache path have failed.
func NewDataSourceRouter(
	tiered domain.CacheRepository,
	providers []domain.ProductProvider,
	fallback domain.ProductProvider,
	stats *StatsCollector,
	cfg RouterConfig,
) *DataSourceRouter {
	timeout := cfg.ProviderTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	defLimit := cfg.DefaultLimit
	if defLimit == 0 {
		defLimit = 10
	}
	maxLimit := cfg.MaxLimit
	if maxLimit == 0 {
		maxLimit = 50
	}

	return &DataSourceRouter{
		cache:     tiered,
		providers: providers,
		fallback:  fallback,
		stats:     stats,
		timeout:   timeout,
		defLimit:  defLimit,
		maxLimit:  maxLimit,
	}
}

// Search runs the full pipeline: cache, remote providers, stale cache,
// static dataset. It fails only for invalid input; provider trouble degrades
// the response instead.
func (r *DataSourceRouter) Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = r.defLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}

	r.stats.RecordRequest()

	cacheID := searchCacheID(query, limit)

	// Tier walk first
	if data, err := r.cache.Get(ctx, domain.CacheTypeSearchResults, cacheID); err == nil {
		if products, err := decodeProducts(data); err == nil {
			r.stats.RecordCacheHit()
			return &domain.SearchResult{Products: products, Source: "cache", Query: query}, nil
		}
	}
	r.stats.RecordCacheMiss()

	// Remote providers in priority order
	for _, provider := range r.providers {
		products, err := r.callProvider(ctx, provider, query, limit)
		if err != nil {
			log.Printf("[Router] %s failed for %q: %v", provider.Name(), query, err)
			continue
		}
		if len(products) == 0 {
			continue
		}

		products = rankProducts(products, limit)
		r.storeResults(ctx, cacheID, products)

		return &domain.SearchResult{Products: products, Source: provider.Name(), Query: query}, nil
	}

	// Degraded path: last-known-good cache value, stale or not
	if data, err := r.cache.GetStale(ctx, domain.CacheTypeSearchResults, cacheID); err == nil {
		if products, err := decodeProducts(data); err == nil && len(products) > 0 {
			log.Printf("[Router] Serving stale results for %q", query)
			return &domain.SearchResult{Products: products, Source: "stale-cache", Query: query}, nil
		}
	}

	// Last resort: static dataset. Degraded, not an error.
	log.Printf("[Router] %v for %q, using static dataset", domain.ErrAllProvidersExhausted, query)
	r.stats.RecordCall(r.fallback.Name())
	products, err := r.fallback.Search(ctx, query, limit)
	if err != nil {
		r.stats.RecordFailure(r.fallback.Name())
		return nil, fmt.Errorf("%w: static fallback: %v", domain.ErrAllProvidersExhausted, err)
	}
	r.stats.RecordSuccess(r.fallback.Name())

	return &domain.SearchResult{Products: products, Source: "static", Query: query}, nil
}

// ProductDetails fetches a single product, caching under the details TTL
// class and degrading to the static catalog like Search does.
func (r *DataSourceRouter) ProductDetails(ctx context.Context, sku string) (*domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, fmt.Errorf("%w: empty sku", domain.ErrInvalidRequest)
	}

	r.stats.RecordRequest()

	if data, err := r.cache.Get(ctx, domain.CacheTypeProductDetails, sku); err == nil {
		var product domain.Product
		if err := json.Unmarshal(data, &product); err == nil {
			r.stats.RecordCacheHit()
			return &product, nil
		}
	}
	r.stats.RecordCacheMiss()

	for _, provider := range r.providers {
		detailer, ok := provider.(domain.ProductDetailer)
		if !ok {
			continue
		}

		r.stats.RecordCall(provider.Name())

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		product, err := detailer.ProductDetails(callCtx, sku)
		cancel()

		if err != nil {
			r.stats.RecordFailure(provider.Name())
			log.Printf("[Router] %s details failed for %q: %v", provider.Name(), sku, err)
			continue
		}
		r.stats.RecordSuccess(provider.Name())

		if data, err := json.Marshal(product); err == nil {
			if err := r.cache.Set(ctx, domain.CacheTypeProductDetails, sku, data); err != nil {
				log.Printf("[Router] caching details for %q failed: %v", sku, err)
			}
		}

		return product, nil
	}

	if detailer, ok := r.fallback.(domain.ProductDetailer); ok {
		if product, err := detailer.ProductDetails(ctx, sku); err == nil {
			return product, nil
		}
	}

	return nil, domain.ErrProductNotFound
}

// callProvider runs one provider attempt with its bounded timeout, keeping
// the per-source counters regardless of outcome.
func (r *DataSourceRouter) callProvider(ctx context.Context, provider domain.ProductProvider, query string, limit int) ([]domain.Product, error) {
	r.stats.RecordCall(provider.Name())

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	products, err := provider.Search(callCtx, query, limit)
	if err != nil {
		r.stats.RecordFailure(provider.Name())
		return nil, err
	}

	r.stats.RecordSuccess(provider.Name())
	return products, nil
}

// storeResults writes ranked results into every cache tier.
func (r *DataSourceRouter) storeResults(ctx context.Context, cacheID string, products []domain.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		log.Printf("[Router] failed to encode results: %v", err)
		return
	}

	if err := r.cache.Set(ctx, domain.CacheTypeSearchResults, cacheID, data); err != nil {
		log.Printf("[Router] caching results failed: %v", err)
	}
}

// searchCacheID builds the normalized cache identifier for a query.
// Format: "{normalized query}:{limit}"
func searchCacheID(query string, limit int) string {
	return fmt.Sprintf("%s:%d", normalizeQuery(query), limit)
}

// normalizeQuery lowercases, strips special characters and collapses
// whitespace so equivalent queries share a cache entry.
func normalizeQuery(s string) string {
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// rankProducts deduplicates by normalized title, sorts by popularity
// (rating weighted by review volume) and truncates to the limit.
func rankProducts(products []domain.Product, limit int) []domain.Product {
	seen := make(map[string]bool, len(products))
	unique := make([]domain.Product, 0, len(products))

	for _, product := range products {
		key := strings.ReplaceAll(strings.ToLower(product.Title), " ", "")
		// Truncate by characters, not bytes, so a multi-byte title never
		// collides on a split rune
		if runes := []rune(key); len(runes) > dedupeTitlePrefix {
			key = string(runes[:dedupeTitlePrefix])
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, product)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Rating*float64(unique[i].ReviewCount) >
			unique[j].Rating*float64(unique[j].ReviewCount)
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

func decodeProducts(data []byte) ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	return products, nil
}
