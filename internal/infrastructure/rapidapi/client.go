package rapidapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/curi/backend/internal/domain"
	"github.com/curi/backend/internal/infrastructure/ratelimit"
)

// Endpoint is one RapidAPI-hosted retailer search API.
type Endpoint struct {
	Name string
	URL  string
}

// Client fans a search across several RapidAPI retailer endpoints for
// redundancy, splitting the requested limit between them. Endpoints fail
// independently; the client errors only when every endpoint came back empty
// or broken.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	endpoints   []Endpoint
	rateLimiter *ratelimit.Limiter
}

// ParseEndpoints turns config "name=url" pairs into endpoints, skipping
// malformed entries.
func ParseEndpoints(specs []string) []Endpoint {
	endpoints := make([]Endpoint, 0, len(specs))
	for _, spec := range specs {
		name, rawURL, ok := strings.Cut(spec, "=")
		if !ok || name == "" || rawURL == "" {
			log.Printf("[RapidAPI] Skipping malformed endpoint spec: %q", spec)
			continue
		}
		endpoints = append(endpoints, Endpoint{Name: name, URL: rawURL})
	}
	return endpoints
}

// NewClient creates a RapidAPI client over the given endpoints.
func NewClient(apiKey string, endpoints []Endpoint, limiter *ratelimit.Limiter) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiKey:      apiKey,
		endpoints:   endpoints,
		rateLimiter: limiter,
	}
}

// Name identifies this provider in stats and logs.
func (c *Client) Name() string { return "rapidapi" }

// Search queries every configured endpoint and merges the results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured", domain.ErrProviderFailure)
	}

	perEndpoint := limit / len(c.endpoints)
	if perEndpoint < 1 {
		perEndpoint = 1
	}

	var all []domain.Product
	var lastErr error

	for _, endpoint := range c.endpoints {
		products, err := c.searchEndpoint(ctx, endpoint, query, perEndpoint)
		if err != nil {
			log.Printf("[RapidAPI] %s error: %v", endpoint.Name, err)
			lastErr = err
			continue
		}
		all = append(all, products...)
	}

	if len(all) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, domain.ErrProductNotFound
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// searchEndpoint queries a single retailer endpoint.
func (c *Client) searchEndpoint(ctx context.Context, endpoint Endpoint, query string, limit int) ([]domain.Product, error) {
	if err := c.rateLimiter.Acquire(ctx); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint url: %v", domain.ErrProviderFailure, err)
	}

	params := url.Values{}
	params.Add("query", query)
	params.Add("limit", fmt.Sprintf("%d", limit))
	parsed.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", parsed.Host)

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
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderAuth, resp.StatusCode)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status 429", domain.ErrProviderRateLimited)
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	products, err := parseResponse(body, endpoint.Name)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// rawItem tolerates the field-name drift between retailer APIs. Each field
// has a primary name and the aliases seen in practice.
type rawItem struct {
	ID            string      `json:"id"`
	ASIN          string      `json:"asin"`
	SKU           json.Number `json:"sku"`
	Title         string      `json:"title"`
	Name          string      `json:"name"`
	Brand         string      `json:"brand"`
	Manufacturer  string      `json:"manufacturer"`
	Price         json.Number `json:"price"`
	RegularPrice  json.Number `json:"regularPrice"`
	SalePrice     json.Number `json:"salePrice"`
	Category      string      `json:"category"`
	Description   string      `json:"description"`
	Rating        json.Number `json:"rating"`
	AverageRating json.Number `json:"averageRating"`
	ReviewCount   json.Number `json:"reviewCount"`
	RatingsTotal  json.Number `json:"ratingsTotal"`
	Image         string      `json:"image"`
	Images        []string    `json:"images"`
	URL           string      `json:"url"`
}

// envelope tolerates the list-key drift between retailer APIs
type envelope struct {
	Results  []rawItem `json:"results"`
	Products []rawItem `json:"products"`
	Items    []rawItem `json:"items"`
}

// parseResponse maps a lenient retailer payload to standardized products.
func parseResponse(body []byte, source string) ([]domain.Product, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := env.Results
	if len(items) == 0 {
		items = env.Products
	}
	if len(items) == 0 {
		items = env.Items
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		products = append(products, mapItem(&item, source))
	}
	return products, nil
}

func mapItem(item *rawItem, source string) domain.Product {
	images := item.Images
	if len(images) == 0 && item.Image != "" {
		images = []string{item.Image}
	}

	return domain.Product{
		SKU:         firstNonEmpty(item.ID, item.ASIN, item.SKU.String()),
		Title:       firstNonEmpty(item.Title, item.Name),
		Brand:       firstNonEmpty(item.Brand, item.Manufacturer),
		Price:       firstNumber(item.Price, item.RegularPrice),
		SalePrice:   numberOrZero(item.SalePrice),
		Category:    item.Category,
		Description: item.Description,
		Rating:      firstNumber(item.Rating, item.AverageRating),
		ReviewCount: int(firstNumber(item.ReviewCount, item.RatingsTotal)),
		Images:      images,
		URL:         item.URL,
		Source:      "rapidapi_" + source,
		LastUpdated: time.Now(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" && v != "0" {
			return v
		}
	}
	return ""
}

func firstNumber(values ...json.Number) float64 {
	for _, v := range values {
		if f := numberOrZero(v); f != 0 {
			return f
		}
	}
	return 0
}

func numberOrZero(n json.Number) float64 {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}
