package domain

import "time"

// Product is the standardized product representation shared by every data
// source. Providers map their own response shapes into this type.
type Product struct {
	SKU            string            `json:"sku"`
	Title          string            `json:"title"`
	Brand          string            `json:"brand,omitempty"`
	Price          float64           `json:"price"`
	SalePrice      float64           `json:"salePrice,omitempty"`
	Category       string            `json:"category,omitempty"`
	Description    string            `json:"description,omitempty"`
	Rating         float64           `json:"rating"`
	ReviewCount    int               `json:"reviewCount"`
	Availability   string            `json:"availability,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	URL            string            `json:"url,omitempty"`
	Source         string            `json:"source"` // "bestbuy", "rapidapi_*", "static", "cache"
	LastUpdated    time.Time         `json:"lastUpdated"`

	// Optional enrichment fields populated by downstream ranking layers.
	MatchScore     float64  `json:"matchScore,omitempty"`
	MatchReasoning string   `json:"matchReasoning,omitempty"`
	KeyFeatures    []string `json:"keyFeatures,omitempty"`
}

// SearchResult is what the router returns to the delivery layer: the products
// plus where they ultimately came from.
type SearchResult struct {
	Products []Product `json:"products"`
	Source   string    `json:"source"` // "cache", provider name, "stale-cache", "static"
	Query    string    `json:"query"`
}

// CacheEntry is the envelope persisted by the file tier. The other tiers
// track expiry natively.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry's TTL has elapsed.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Cache data types, each with its own TTL class.
const (
	CacheTypeSearchResults    = "search_results"
	CacheTypeProductDetails   = "product_details"
	CacheTypeCategoryData     = "category_data"
	CacheTypeProductReviews   = "product_reviews"
	CacheTypeTrendingProducts = "trending_products"
)
