package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/curi/backend/internal/domain"
	"github.com/curi/backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	router    *usecase.DataSourceRouter
	cache     domain.CacheRepository
	stats     *usecase.StatsCollector
	prefetch  *usecase.PrefetchScheduler
	startedAt time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(
	router *usecase.DataSourceRouter,
	tiered domain.CacheRepository,
	stats *usecase.StatsCollector,
	prefetch *usecase.PrefetchScheduler,
) *Handler {
	return &Handler{
		router:    router,
		cache:     tiered,
		stats:     stats,
		prefetch:  prefetch,
		startedAt: time.Now(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "curi-backend",
		"version": "1.0.0",
	})
}

// SearchProducts handles GET /products/search?query=&limit=.
// Provider trouble degrades the response; only malformed input is rejected.
func (h *Handler) SearchProducts(c *gin.Context) {
	query := c.Query("query")

	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	result, err := h.router.Search(c.Request.Context(), query, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":    result.Query,
		"source":   result.Source,
		"count":    len(result.Products),
		"products": result.Products,
	})
}

// GetProduct handles GET /products/:sku
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.router.ProductDetails(c.Request.Context(), c.Param("sku"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "sku is required"})
		case errors.Is(err, domain.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "product lookup temporarily unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

// CacheStats handles GET /admin/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot(c.Request.Context(), h.cache))
}

// SystemStatus handles GET /admin/system/status
func (h *Handler) SystemStatus(c *gin.Context) {
	snapshot := h.stats.Snapshot(c.Request.Context(), h.cache)

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(h.startedAt).String(),
		"tiers":    snapshot.Tiers,
		"stats":    snapshot,
		"prefetch": h.prefetch.Status(),
	})
}

// RefreshCache handles POST /admin/cache/refresh by running one prefetch
// cycle synchronously.
func (h *Handler) RefreshCache(c *gin.Context) {
	if err := h.prefetch.RunOnce(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrRefreshInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "refresh already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// CleanupCache handles DELETE /admin/cache/cleanup
func (h *Handler) CleanupCache(c *gin.Context) {
	removed := h.cache.Cleanup(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
