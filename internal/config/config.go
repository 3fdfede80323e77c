package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/temcen/reelshelf/pkg/models"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Catalog        CatalogConfig        `mapstructure:"catalog"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// AutoMigrate creates the library tables on startup when they are missing.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Hot  RedisInstanceConfig `mapstructure:"hot"`
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		RecommendationsServed string `mapstructure:"recommendations_served"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Default int           `mapstructure:"default"`
	Premium int           `mapstructure:"premium"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig holds the provider credentials and the client's resilience settings.
type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Language          string        `mapstructure:"language"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type RecommendationConfig struct {
	SampleSize   int `mapstructure:"sample_size"`
	DefaultLimit int `mapstructure:"default_limit"`
	// DeterministicSampling profiles the first SampleSize library items instead of a
	// random subset. Meant for debugging ranking changes.
	DeterministicSampling bool            `mapstructure:"deterministic_sampling"`
	Discovery             DiscoveryConfig `mapstructure:"discovery"`
}

// DiscoveryConfig bounds the supplementary director/actor discovery calls.
type DiscoveryConfig struct {
	MinPersonCount   int `mapstructure:"min_person_count"`
	MaxPeople        int `mapstructure:"max_people"`
	TopGenres        int `mapstructure:"top_genres"`
	ResultsPerPerson int `mapstructure:"results_per_person"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaults(v)

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the settings the recommender cannot run without.
func (c *Config) Validate() error {
	if c.Catalog.APIKey == "" {
		return fmt.Errorf("catalog.api_key is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if _, err := language.Parse(c.Catalog.Language); err != nil {
		return fmt.Errorf("invalid catalog.language %q: %w", c.Catalog.Language, err)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive")
	}
	if c.Recommendation.SampleSize <= 0 {
		return fmt.Errorf("recommendation.sample_size must be positive")
	}
	if c.Recommendation.DefaultLimit <= 0 || c.Recommendation.DefaultLimit > models.MaxRecommendationLimit {
		return fmt.Errorf("recommendation.default_limit must be between 1 and %d, got %d",
			models.MaxRecommendationLimit, c.Recommendation.DefaultLimit)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "development")

	// Keys without a sensible default are registered so env overrides reach Unmarshal
	v.SetDefault("database.url", "")
	v.SetDefault("redis.hot.url", "localhost:6379")
	v.SetDefault("redis.warm.url", "localhost:6379")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("catalog.api_key", "")

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_time", "15m")
	v.SetDefault("database.max_lifetime", "1h")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.auto_migrate", false)

	// Redis defaults
	v.SetDefault("redis.hot.max_retries", 3)
	v.SetDefault("redis.hot.pool_size", 10)
	v.SetDefault("redis.hot.timeout", "5s")
	v.SetDefault("redis.warm.max_retries", 3)
	v.SetDefault("redis.warm.pool_size", 5)
	v.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	v.SetDefault("kafka.topics.recommendations_served", "recommendations-served")

	// Auth defaults
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.rate_limit.default", 1000)
	v.SetDefault("auth.rate_limit.premium", 10000)
	v.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Catalog provider defaults
	v.SetDefault("catalog.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("catalog.language", "en-US")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("catalog.requests_per_second", 35)
	v.SetDefault("catalog.burst", 10)
	v.SetDefault("catalog.max_concurrency", 8)
	v.SetDefault("catalog.cache_ttl", "1h")
	v.SetDefault("catalog.breaker.max_requests", 3)
	v.SetDefault("catalog.breaker.interval", "1m")
	v.SetDefault("catalog.breaker.timeout", "30s")
	v.SetDefault("catalog.breaker.failure_ratio", 0.6)
	v.SetDefault("catalog.breaker.min_requests", 10)

	// Recommendation defaults
	v.SetDefault("recommendation.sample_size", 10)
	v.SetDefault("recommendation.default_limit", 20)
	v.SetDefault("recommendation.deterministic_sampling", false)
	v.SetDefault("recommendation.discovery.min_person_count", 2)
	v.SetDefault("recommendation.discovery.max_people", 2)
	v.SetDefault("recommendation.discovery.top_genres", 3)
	v.SetDefault("recommendation.discovery.results_per_person", 3)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Authorization", "Content-Type"})
}
