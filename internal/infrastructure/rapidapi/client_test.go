package rapidapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/curi/backend/internal/domain"
	"github.com/curi/backend/internal/infrastructure/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 100,
		Burst:             100,
		AcquireWait:       time.Second,
	})
}

func TestParseEndpoints(t *testing.T) {
	tests := []struct {
		name  string
		specs []string
		want  int
	}{
		{
			name: "valid specs",
			specs: []string{
				"walmart_api=https://walmart.example.com/products/search",
				"amazon_api=https://amazon.example.com/search",
			},
			want: 2,
		},
		{
			name:  "malformed specs skipped",
			specs: []string{"no-separator", "=missing-name", "missing-url="},
			want:  0,
		},
		{
			name:  "empty list",
			specs: nil,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints := ParseEndpoints(tt.specs)
			assert.Len(t, endpoints, tt.want)
		})
	}
}

func TestSearch_MergesEndpoints(t *testing.T) {
	walmart := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-RapidAPI-Key"))
		assert.NotEmpty(t, r.Header.Get("X-RapidAPI-Host"))
		assert.Equal(t, "headphones", r.URL.Query().Get("query"))

		w.Write([]byte(`{"results": [{"id": "w1", "title": "Sony Headphones", "price": 199.99, "rating": 4.5}]}`))
	}))
	defer walmart.Close()

	amazon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Amazon-style payload: different list key and field aliases
		w.Write([]byte(`{"products": [{"asin": "B0TEST", "name": "Bose Headphones", "regularPrice": 299, "averageRating": 4.7, "ratingsTotal": 812}]}`))
	}))
	defer amazon.Close()

	client := NewClient("test-key", []Endpoint{
		{Name: "walmart_api", URL: walmart.URL + "/products/search"},
		{Name: "amazon_api", URL: amazon.URL + "/search"},
	}, testLimiter())

	products, err := client.Search(context.Background(), "headphones", 10)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "w1", products[0].SKU)
	assert.Equal(t, "Sony Headphones", products[0].Title)
	assert.Equal(t, 199.99, products[0].Price)
	assert.Equal(t, "rapidapi_walmart_api", products[0].Source)

	assert.Equal(t, "B0TEST", products[1].SKU)
	assert.Equal(t, "Bose Headphones", products[1].Title)
	assert.Equal(t, 299.0, products[1].Price)
	assert.Equal(t, 4.7, products[1].Rating)
	assert.Equal(t, 812, products[1].ReviewCount)
	assert.Equal(t, "rapidapi_amazon_api", products[1].Source)
}

func TestSearch_SkipsFailingEndpoint(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [{"sku": 42, "title": "Tablet", "price": 499}]}`))
	}))
	defer healthy.Close()

	client := NewClient("test-key", []Endpoint{
		{Name: "broken_api", URL: broken.URL + "/search"},
		{Name: "target_api", URL: healthy.URL + "/search"},
	}, testLimiter())

	products, err := client.Search(context.Background(), "tablet", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "42", products[0].SKU)
}

func TestSearch_AllEndpointsFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer broken.Close()

	client := NewClient("test-key", []Endpoint{
		{Name: "only_api", URL: broken.URL + "/search"},
	}, testLimiter())

	_, err := client.Search(context.Background(), "tablet", 10)
	assert.ErrorIs(t, err, domain.ErrProviderRateLimited)
}

func TestSearch_NoEndpointsConfigured(t *testing.T) {
	client := NewClient("test-key", nil, testLimiter())

	_, err := client.Search(context.Background(), "tablet", 10)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"id": "1", "title": "A"},
			{"id": "2", "title": "B"},
			{"id": "3", "title": "C"}
		]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", []Endpoint{
		{Name: "one", URL: server.URL + "/search"},
	}, testLimiter())

	products, err := client.Search(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
