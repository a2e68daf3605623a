package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/curi/backend/config"
	httpDelivery "github.com/curi/backend/internal/delivery/http"
	"github.com/curi/backend/internal/domain"
	"github.com/curi/backend/internal/infrastructure/bestbuy"
	"github.com/curi/backend/internal/infrastructure/cache"
	"github.com/curi/backend/internal/infrastructure/rapidapi"
	"github.com/curi/backend/internal/infrastructure/ratelimit"
	"github.com/curi/backend/internal/infrastructure/staticdata"
	"github.com/curi/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Curi Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Cache tiers, fastest first. Disabled or unreachable tiers drop out
	// and the cache degrades transparently.
	tiered := buildCache(cfg)

	// Shared per-provider rate limiters
	primaryLimiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.PrimaryRPS,
		Burst:             cfg.RateLimit.PrimaryBurst,
		AcquireWait:       cfg.RateLimit.AcquireWait,
	})
	secondaryLimiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.SecondaryRPS,
		Burst:             cfg.RateLimit.SecondaryBurst,
		AcquireWait:       cfg.RateLimit.AcquireWait,
	})

	log.Printf("Rate limits: primary %.1f req/s (burst %d), secondary %.1f req/s",
		cfg.RateLimit.PrimaryRPS, cfg.RateLimit.PrimaryBurst, cfg.RateLimit.SecondaryRPS)

	// Data sources in priority order
	bestbuyClient := bestbuy.NewClient(cfg.BestBuy.APIKey, cfg.BestBuy.BaseURL, primaryLimiter)
	if cfg.Server.Environment == "development" {
		bestbuyClient.SetDebug(true)
		log.Printf("Best Buy client debug mode enabled")
	}
	log.Printf("Best Buy API configured: %s", cfg.BestBuy.BaseURL)

	providers := []domain.ProductProvider{bestbuyClient}
	if cfg.RapidAPI.APIKey != "" {
		endpoints := rapidapi.ParseEndpoints(cfg.RapidAPI.Endpoints)
		providers = append(providers, rapidapi.NewClient(cfg.RapidAPI.APIKey, endpoints, secondaryLimiter))
		log.Printf("RapidAPI fallback configured: %d endpoints", len(endpoints))
	} else {
		log.Printf("WARNING: RapidAPI key not set - no secondary provider")
	}

	fallback, err := staticdata.New()
	if err != nil {
		log.Fatalf("Failed to load static catalog: %v", err)
	}

	// Usecase layer
	stats := usecase.NewStatsCollector()
	router := usecase.NewDataSourceRouter(tiered, providers, fallback, stats, usecase.RouterConfig{})

	prefetch := usecase.NewPrefetchScheduler(router, usecase.PrefetchConfig{
		Interval: cfg.Prefetch.Interval,
		MaxCycle: cfg.Prefetch.MaxCycle,
		Limit:    cfg.Prefetch.Limit,
		Queries:  cfg.Prefetch.Queries,
	})
	if cfg.Prefetch.Enabled {
		prefetch.Start(context.Background())
		defer prefetch.Stop()
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(router, tiered, stats, prefetch)

	// Setup router
	engine := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildCache assembles the tiered cache from the enabled tiers.
func buildCache(cfg *config.Config) *cache.TieredCache {
	var tiers []domain.CacheTier

	if cfg.Cache.EnableMemory {
		tiers = append(tiers, cache.NewMemoryTier(cfg.Cache.CleanupPeriod))
		log.Printf("Cache tier enabled: memory")
	}

	if cfg.Cache.EnableRedis {
		redisTier, err := cache.NewRedisTier(cfg.Cache.RedisURL)
		if err != nil {
			log.Printf("WARNING: Redis tier misconfigured, skipping: %v", err)
		} else {
			tiers = append(tiers, redisTier)
			log.Printf("Cache tier enabled: redis (%s, available=%v)", cfg.Cache.RedisURL, redisTier.Available())
		}
	}

	if cfg.Cache.EnableFile {
		fileTier := cache.NewFileTier(cfg.Cache.FileDir)
		tiers = append(tiers, fileTier)
		log.Printf("Cache tier enabled: file (%s, available=%v)", cfg.Cache.FileDir, fileTier.Available())
	}

	return cache.NewTieredCache(cfg.Cache.TTLFor, tiers...)
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
