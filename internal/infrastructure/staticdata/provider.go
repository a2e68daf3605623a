package staticdata

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/curi/backend/internal/domain"
)

//go:embed products.json
var catalogJSON []byte

// Provider serves search results from an embedded sample catalog. It is the
// data source of last resort: it never makes network calls and never fails
// a search.
type Provider struct {
	products []domain.Product
}

// New loads the embedded catalog. An unreadable catalog is a build defect,
// so the error is returned rather than hidden.
func New() (*Provider, error) {
	var products []domain.Product
	if err := json.Unmarshal(catalogJSON, &products); err != nil {
		return nil, fmt.Errorf("failed to load static catalog: %w", err)
	}

	now := time.Now()
	for i := range products {
		products[i].Source = "static"
		products[i].LastUpdated = now
	}

	return &Provider{products: products}, nil
}

// Name identifies this provider in stats and logs.
func (p *Provider) Name() string { return "static" }

// Search scores catalog entries by query-token overlap against title, brand,
// category and description. When nothing matches it falls back to the
// top-rated products so callers always get a best-effort list.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	tokens := strings.Fields(strings.ToLower(query))

	type scored struct {
		product domain.Product
		score   int
	}

	matches := make([]scored, 0, len(p.products))
	for _, product := range p.products {
		haystack := strings.ToLower(product.Title + " " + product.Brand + " " +
			product.Category + " " + product.Description)

		score := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				score++
			}
		}

		if score > 0 {
			matches = append(matches, scored{product: product, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return popularity(matches[i].product) > popularity(matches[j].product)
	})

	results := make([]domain.Product, 0, limit)
	for _, m := range matches {
		if len(results) == limit {
			break
		}
		results = append(results, m.product)
	}

	if len(results) == 0 {
		results = p.topRated(limit)
	}

	return results, nil
}

// ProductDetails looks up a catalog entry by SKU.
func (p *Provider) ProductDetails(ctx context.Context, sku string) (*domain.Product, error) {
	for _, product := range p.products {
		if product.SKU == sku {
			found := product
			return &found, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

// topRated returns the catalog's most popular products.
func (p *Provider) topRated(limit int) []domain.Product {
	ranked := make([]domain.Product, len(p.products))
	copy(ranked, p.products)

	sort.SliceStable(ranked, func(i, j int) bool {
		return popularity(ranked[i]) > popularity(ranked[j])
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func popularity(p domain.Product) float64 {
	return p.Rating * float64(p.ReviewCount)
}
