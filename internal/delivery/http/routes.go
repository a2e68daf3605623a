package http

import (
	"github.com/curi/backend/config"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Product endpoints
	products := router.Group("/products")
	{
		products.GET("/search", handler.SearchProducts)
		products.GET("/:sku", handler.GetProduct)
	}

	// Operational endpoints
	admin := router.Group("/admin")
	{
		admin.GET("/cache/stats", handler.CacheStats)
		admin.GET("/system/status", handler.SystemStatus)
		admin.POST("/cache/refresh", handler.RefreshCache)
		admin.DELETE("/cache/cleanup", handler.CleanupCache)
	}

	return router
}
