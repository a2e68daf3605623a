package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	BestBuy   BestBuyConfig
	RapidAPI  RapidAPIConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Prefetch  PrefetchConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BestBuyConfig holds primary provider configuration
type BestBuyConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// RapidAPIConfig holds secondary provider configuration. Endpoints are
// "name=host" pairs so the set can be reshuffled without a code change.
type RapidAPIConfig struct {
	APIKey    string   `mapstructure:"api_key"`
	Endpoints []string `mapstructure:"endpoints"`
}

// CacheConfig holds tiered cache configuration
type CacheConfig struct {
	RedisURL      string        `mapstructure:"redis_url"`
	FileDir       string        `mapstructure:"file_dir"`
	EnableMemory  bool          `mapstructure:"enable_memory"`
	EnableRedis   bool          `mapstructure:"enable_redis"`
	EnableFile    bool          `mapstructure:"enable_file"`
	SearchTTL     time.Duration `mapstructure:"search_ttl"`
	DetailsTTL    time.Duration `mapstructure:"details_ttl"`
	CategoryTTL   time.Duration `mapstructure:"category_ttl"`
	ReviewsTTL    time.Duration `mapstructure:"reviews_ttl"`
	TrendingTTL   time.Duration `mapstructure:"trending_ttl"`
	CleanupPeriod time.Duration `mapstructure:"cleanup_period"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PrimaryRPS     float64       `mapstructure:"primary_rps"`
	PrimaryBurst   int           `mapstructure:"primary_burst"`
	SecondaryRPS   float64       `mapstructure:"secondary_rps"`
	SecondaryBurst int           `mapstructure:"secondary_burst"`
	AcquireWait    time.Duration `mapstructure:"acquire_wait"`
}

// PrefetchConfig holds the popular-query warmup configuration
type PrefetchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	MaxCycle time.Duration `mapstructure:"max_cycle"`
	Limit    int           `mapstructure:"limit"`
	Queries  []string      `mapstructure:"queries"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/curi/")

	// Environment variable settings: nested keys map to underscored
	// variables, e.g. bestbuy.api_key -> CURI_BESTBUY_API_KEY
	v.SetEnvPrefix("CURI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Provider defaults. Keys must be registered for env-only values to
	// survive Unmarshal, so the secrets default to empty.
	v.SetDefault("bestbuy.api_key", "")
	v.SetDefault("bestbuy.base_url", "https://api.bestbuy.com/v1")
	v.SetDefault("rapidapi.api_key", "")
	v.SetDefault("rapidapi.endpoints", []string{
		"walmart_api=https://walmart-api-by-speedapi.p.rapidapi.com/products/search",
		"amazon_api=https://amazon-api-by-speedapi.p.rapidapi.com/search",
		"target_api=https://target-api-by-speedapi.p.rapidapi.com/search",
	})

	// Cache defaults
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.file_dir", "file_cache")
	v.SetDefault("cache.enable_memory", true)
	v.SetDefault("cache.enable_redis", true)
	v.SetDefault("cache.enable_file", true)
	v.SetDefault("cache.search_ttl", "30m")
	v.SetDefault("cache.details_ttl", "1h")
	v.SetDefault("cache.category_ttl", "2h")
	v.SetDefault("cache.reviews_ttl", "4h")
	v.SetDefault("cache.trending_ttl", "15m")
	v.SetDefault("cache.cleanup_period", "10m")

	// Rate limit defaults: Best Buy allows 5 req/s, stay at 4 to be safe
	v.SetDefault("ratelimit.primary_rps", 4.0)
	v.SetDefault("ratelimit.primary_burst", 10)
	v.SetDefault("ratelimit.secondary_rps", 10.0)
	v.SetDefault("ratelimit.secondary_burst", 10)
	v.SetDefault("ratelimit.acquire_wait", "2s")

	// Prefetch defaults
	v.SetDefault("prefetch.enabled", true)
	v.SetDefault("prefetch.interval", "4h")
	v.SetDefault("prefetch.max_cycle", "5m")
	v.SetDefault("prefetch.limit", 50)
	v.SetDefault("prefetch.queries", []string{
		"laptop", "phone", "headphones", "tablet", "smartwatch",
		"gaming", "camera", "speaker", "tv", "fitness tracker",
	})
}

// validate validates the configuration
func validate(config *Config) error {
	if config.BestBuy.APIKey == "" {
		return fmt.Errorf("Best Buy API key is required (set CURI_BESTBUY_API_KEY)")
	}

	if config.RateLimit.PrimaryRPS <= 0 {
		return fmt.Errorf("primary rate limit must be positive, got: %v", config.RateLimit.PrimaryRPS)
	}

	if config.RateLimit.PrimaryBurst < 1 {
		return fmt.Errorf("primary burst must be at least 1, got: %d", config.RateLimit.PrimaryBurst)
	}

	if config.Prefetch.Enabled && config.Prefetch.Interval <= 0 {
		return fmt.Errorf("prefetch interval must be positive, got: %v", config.Prefetch.Interval)
	}

	if config.Cache.EnableRedis && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when the Redis tier is enabled")
	}

	if !config.Cache.EnableMemory && !config.Cache.EnableRedis && !config.Cache.EnableFile {
		return fmt.Errorf("at least one cache tier must be enabled")
	}

	return nil
}

// TTLFor returns the TTL for a cache data type, falling back to the search
// TTL for unknown types.
func (c *CacheConfig) TTLFor(dataType string) time.Duration {
	switch dataType {
	case "product_details":
		return c.DetailsTTL
	case "search_results":
		return c.SearchTTL
	case "category_data":
		return c.CategoryTTL
	case "product_reviews":
		return c.ReviewsTTL
	case "trending_products":
		return c.TrendingTTL
	default:
		return c.SearchTTL
	}
}
