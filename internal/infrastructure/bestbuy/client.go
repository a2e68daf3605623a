package bestbuy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/curi/backend/internal/domain"
	"github.com/curi/backend/internal/infrastructure/ratelimit"
)

// Client handles communication with the Best Buy Products API, the primary
// product data source.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *ratelimit.Limiter
	debug       bool
}

const maxAttempts = 3

// NewClient creates a new Best Buy API client. The rate limiter is shared
// with every caller that talks to Best Buy so the account-wide request
// ceiling holds across goroutines.
func NewClient(apiKey, baseURL string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

// Name identifies this provider in stats and logs.
func (c *Client) Name() string { return "bestbuy" }

// SetDebug enables verbose request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the sleep before retry attempt n (1-based).
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<attempt)) * time.Millisecond
}

// Search queries the Best Buy catalog, favoring well-reviewed products.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if c.debug {
		log.Printf("[BestBuy] Search called with query: %q limit: %d", query, limit)
	}

	params := url.Values{}
	params.Add("apikey", c.apiKey)
	params.Add("format", "json")
	params.Add("q", query)
	params.Add("limit", fmt.Sprintf("%d", limit))
	params.Add("sort", "customerReviewAverage.dsc")
	params.Add("facet", "customerReviewAverage,gt,3.5")
	params.Add("show", "sku,name,regularPrice,salePrice,categoryPath,longDescription,"+
		"customerReviewAverage,customerReviewCount,image,url,manufacturer,details,onlineAvailability")

	reqURL := fmt.Sprintf("%s/products?%s", c.baseURL, params.Encode())

	body, err := c.doWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	products := make([]domain.Product, 0, len(searchResp.Products))
	for _, item := range searchResp.Products {
		products = append(products, mapProduct(&item))
	}

	if c.debug {
		log.Printf("[BestBuy] Found %d products for query: %q", len(products), query)
	}

	return products, nil
}

// ProductDetails fetches a single product by SKU.
func (c *Client) ProductDetails(ctx context.Context, sku string) (*domain.Product, error) {
	params := url.Values{}
	params.Add("apikey", c.apiKey)
	params.Add("format", "json")
	params.Add("show", "all")

	reqURL := fmt.Sprintf("%s/products/%s?%s", c.baseURL, url.PathEscape(sku), params.Encode())

	body, err := c.doWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var item productResponse
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	product := mapProduct(&item)
	return &product, nil
}

// doWithRetry executes a GET with rate limiting and bounded retries.
// Auth rejections and rate-limit responses are surfaced immediately so the
// router can fall back instead of burning retries.
func (c *Client) doWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Acquire(ctx); err != nil {
			return nil, err
		}

		body, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, domain.ErrProviderAuth) ||
			errors.Is(err, domain.ErrProviderRateLimited) ||
			errors.Is(err, domain.ErrProductNotFound) ||
			errors.Is(err, domain.ErrProviderTimeout) {
			return nil, err
		}

		log.Printf("[BestBuy] Request error (attempt %d): %v", attempt, err)
		lastErr = err

		if attempt < maxAttempts {
			select {
			case <-time.After(exponentialBackoff(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrProviderTimeout, ctx.Err())
			}
		}
	}

	return nil, lastErr
}

// doRequest executes a single HTTP GET and classifies the outcome.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Curi/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderAuth, resp.StatusCode)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status 429", domain.ErrProviderRateLimited)
	case http.StatusNotFound:
		return nil, domain.ErrProductNotFound
	default:
		if c.debug {
			log.Printf("[BestBuy] API error - Status: %d, Body: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
}
