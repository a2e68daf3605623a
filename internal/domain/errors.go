package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProductNotFound is returned when no provider knows the product
	ErrProductNotFound = errors.New("product not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheTierUnavailable is returned when a cache tier is unreachable
	ErrCacheTierUnavailable = errors.New("cache tier unavailable")

	// ErrProviderAuth is returned when a provider rejects the API key;
	// never retried automatically
	ErrProviderAuth = errors.New("provider rejected API key")

	// ErrProviderRateLimited is returned on HTTP 429 or when the local
	// limiter refuses a slot within its bounded wait
	ErrProviderRateLimited = errors.New("provider rate limit exceeded")

	// ErrProviderTimeout is returned when a provider call exceeds its
	// bounded deadline
	ErrProviderTimeout = errors.New("provider request timed out")

	// ErrProviderFailure is returned for any other provider-side failure
	ErrProviderFailure = errors.New("provider request failed")

	// ErrAllProvidersExhausted is recorded when every remote provider and
	// the stale-cache path failed for a request
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrRefreshInProgress is returned when a prefetch cycle is already
	// running and another one is requested
	ErrRefreshInProgress = errors.New("cache refresh already in progress")
)
