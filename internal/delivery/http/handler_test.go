package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/curi/backend/config"
	"github.com/curi/backend/internal/domain"
	"github.com/curi/backend/internal/infrastructure/cache"
	"github.com/curi/backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubProvider serves a fixed catalog for handler tests
type stubProvider struct {
	name     string
	products []domain.Product
	err      error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.products) > limit {
		return p.products[:limit], nil
	}
	return p.products, nil
}

func (p *stubProvider) ProductDetails(ctx context.Context, sku string) (*domain.Product, error) {
	if p.err != nil {
		return nil, p.err
	}
	for i := range p.products {
		if p.products[i].SKU == sku {
			return &p.products[i], nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func testEngine(t *testing.T, provider domain.ProductProvider) (*gin.Engine, *usecase.PrefetchScheduler) {
	t.Helper()

	tiered := cache.NewTieredCache(nil, cache.NewMemoryTier(0))
	stats := usecase.NewStatsCollector()

	fallback := &stubProvider{name: "static", products: []domain.Product{
		{SKU: "static-1", Title: "Static Product", Rating: 4.0, ReviewCount: 10},
	}}

	router := usecase.NewDataSourceRouter(tiered, []domain.ProductProvider{provider}, fallback, stats, usecase.RouterConfig{
		ProviderTimeout: time.Second,
	})
	prefetch := usecase.NewPrefetchScheduler(router, usecase.PrefetchConfig{
		Queries: []string{"laptop"},
	})
	handler := NewHandler(router, tiered, stats, prefetch)

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Server.AllowedOrigins = []string{"*"}

	return SetupRouter(cfg, handler), prefetch
}

func doRequest(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, target, nil)
	engine.ServeHTTP(recorder, request)
	return recorder
}

func TestHealthCheck(t *testing.T) {
	engine, _ := testEngine(t, &stubProvider{name: "bestbuy"})

	recorder := doRequest(engine, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "curi-backend", body["service"])
}

func TestSearchProducts(t *testing.T) {
	provider := &stubProvider{name: "bestbuy", products: []domain.Product{
		{SKU: "1", Title: "Dell XPS 15", Rating: 4.6, ReviewCount: 2847},
		{SKU: "2", Title: "MacBook Air", Rating: 4.8, ReviewCount: 9312},
	}}
	engine, _ := testEngine(t, provider)

	recorder := doRequest(engine, http.MethodGet, "/products/search?query=laptop&limit=5")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Query    string           `json:"query"`
		Source   string           `json:"source"`
		Count    int              `json:"count"`
		Products []domain.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "laptop", body.Query)
	assert.Equal(t, "bestbuy", body.Source)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Products, 2)
	assert.Equal(t, "MacBook Air", body.Products[0].Title, "results are popularity ranked")
}

func TestSearchProducts_MissingQuery(t *testing.T) {
	engine, _ := testEngine(t, &stubProvider{name: "bestbuy"})

	recorder := doRequest(engine, http.MethodGet, "/products/search")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSearchProducts_BadLimit(t *testing.T) {
	engine, _ := testEngine(t, &stubProvider{name: "bestbuy"})

	for _, limit := range []string{"abc", "-3", "1.5"} {
		recorder := doRequest(engine, http.MethodGet, "/products/search?query=tv&limit="+limit)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "limit=%s", limit)
	}
}

func TestSearchProducts_DegradesToStatic(t *testing.T) {
	engine, _ := testEngine(t, &stubProvider{name: "bestbuy", err: domain.ErrProviderFailure})

	recorder := doRequest(engine, http.MethodGet, "/products/search?query=tv")
	require.Equal(t, http.StatusOK, recorder.Code, "provider trouble must degrade, not fail")

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "static", body["source"])
}

func TestGetProduct(t *testing.T) {
	provider := &stubProvider{name: "bestbuy", products: []domain.Product{
		{SKU: "6565837", Title: "Dell XPS 15"},
	}}
	engine, _ := testEngine(t, provider)

	recorder := doRequest(engine, http.MethodGet, "/products/6565837")
	require.Equal(t, http.StatusOK, recorder.Code)

	var product domain.Product
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &product))
	assert.Equal(t, "Dell XPS 15", product.Title)
}

func TestGetProduct_NotFound(t *testing.T) {
	engine, _ := testEngine(t, &stubProvider{name: "bestbuy"})

	recorder := doRequest(engine, http.MethodGet, "/products/no-such-sku")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCacheStats(t *testing.T) {
	provider := &stubProvider{name: "bestbuy", products: []domain.Product{
		{SKU: "1", Title: "TV"},
	}}
	engine, _ := testEngine(t, provider)

	// One miss then one hit
	doRequest(engine, http.MethodGet, "/products/search?query=tv")
	doRequest(engine, http.MethodGet, "/products/search?query=tv")

	recorder := doRequest(engine, http.MethodGet, "/admin/cache/stats")
	require.Equal(t, http.StatusOK, recorder.Code)

	var snapshot usecase.StatsSnapshot
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.CacheHits)
	assert.InDelta(t, 0.5, snapshot.CacheHitRate, 1e-9)
	require.Len(t, snapshot.Tiers, 1)
	assert.Equal(t, "memory", snapshot.Tiers[0].Name)
}

func TestSystemStatus(t *testing.T) {
	engine, _ := testEngine(t, &stubProvider{name: "bestbuy"})

	recorder := doRequest(engine, http.MethodGet, "/admin/system/status")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])
	assert.Contains(t, body, "prefetch")
}

func TestRefreshCache(t *testing.T) {
	provider := &stubProvider{name: "bestbuy", products: []domain.Product{
		{SKU: "1", Title: "Laptop"},
	}}
	engine, _ := testEngine(t, provider)

	recorder := doRequest(engine, http.MethodPost, "/admin/cache/refresh")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "refreshed")
}

func TestRefreshCache_Conflict(t *testing.T) {
	provider := &slowProvider{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine, prefetch := testEngine(t, provider)

	// Hold one refresh cycle open inside the provider call
	cycleDone := make(chan struct{})
	go func() {
		prefetch.RunOnce(context.Background())
		close(cycleDone)
	}()
	select {
	case <-provider.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh cycle never reached the provider")
	}

	recorder := doRequest(engine, http.MethodPost, "/admin/cache/refresh")
	assert.Equal(t, http.StatusConflict, recorder.Code)

	close(provider.release)
	<-cycleDone
}

// slowProvider blocks every search until release is closed
type slowProvider struct {
	entered chan struct{}
	release chan struct{}
}

func (p *slowProvider) Name() string { return "bestbuy" }

func (p *slowProvider) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []domain.Product{{SKU: "1", Title: "Laptop"}}, nil
}

func TestCleanupCache(t *testing.T) {
	engine, _ := testEngine(t, &stubProvider{name: "bestbuy"})

	recorder := doRequest(engine, http.MethodDelete, "/admin/cache/cleanup")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, 0, body["removed"])
}
