package staticdata

import (
	"context"
	"strings"
	"testing"

	"github.com/curi/backend/internal/domain"
)

func TestNew_LoadsCatalog(t *testing.T) {
	provider, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if len(provider.products) == 0 {
		t.Fatal("catalog is empty")
	}

	for _, product := range provider.products {
		if product.Source != "static" {
			t.Errorf("product %s Source = %s, want static", product.SKU, product.Source)
		}
		if product.Title == "" {
			t.Errorf("product %s has empty title", product.SKU)
		}
	}
}

func TestSearch_MatchesQueryTokens(t *testing.T) {
	provider, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		query     string
		wantToken string
	}{
		{"laptop", "laptop"},
		{"headphones", "headphones"},
		{"fitness tracker", "fitness"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			products, err := provider.Search(ctx, tt.query, 5)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(products) == 0 {
				t.Fatalf("Search(%q) returned no products", tt.query)
			}
			if len(products) > 5 {
				t.Errorf("Search(%q) returned %d products, want at most 5", tt.query, len(products))
			}

			// The top result should actually mention the query
			top := strings.ToLower(products[0].Title + " " + products[0].Category + " " + products[0].Description)
			if !strings.Contains(top, tt.wantToken) {
				t.Errorf("top result %q does not mention %q", products[0].Title, tt.wantToken)
			}
		})
	}
}

func TestSearch_UnknownQueryStillReturnsProducts(t *testing.T) {
	provider, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	products, err := provider.Search(context.Background(), "zzzz-no-such-thing", 3)
	if err != nil {
		t.Fatalf("Search() error = %v, static provider must never fail", err)
	}
	if len(products) == 0 {
		t.Error("Search() returned no products, want best-effort top-rated list")
	}
	if len(products) > 3 {
		t.Errorf("Search() returned %d products, want at most 3", len(products))
	}
}

func TestProductDetails(t *testing.T) {
	provider, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	known := provider.products[0].SKU
	product, err := provider.ProductDetails(ctx, known)
	if err != nil {
		t.Fatalf("ProductDetails(%q) error = %v", known, err)
	}
	if product.SKU != known {
		t.Errorf("ProductDetails(%q).SKU = %s", known, product.SKU)
	}

	if _, err := provider.ProductDetails(ctx, "no-such-sku"); err != domain.ErrProductNotFound {
		t.Errorf("ProductDetails(unknown) error = %v, want %v", err, domain.ErrProductNotFound)
	}
}
