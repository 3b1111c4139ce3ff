package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/marketplace/pkg/config"
	"github.com/utafrali/marketplace/pkg/database"
	"github.com/utafrali/marketplace/pkg/middleware"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// Media storage backends.
const (
	StorageMemory = "memory"
	StorageS3     = "s3"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"CATALOG_HTTP_PORT" envDefault:"8001"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"marketplace"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"marketplace"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Taxonomy cache
	TaxonomyCacheTTL time.Duration `env:"TAXONOMY_CACHE_TTL" envDefault:"10m"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Seller tokens. PEM encoded RSA public key; literal \n escapes are accepted.
	JWTPublicKey string `env:"JWT_PUBLIC_KEY" envDefault:""`

	// Per-seller API rate limit. RATE_LIMIT_RPS=0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Store settings
	StoreManageStock               bool   `env:"STORE_MANAGE_STOCK" envDefault:"true"`
	StoreCategoryMode              string `env:"STORE_CATEGORY_MODE" envDefault:"single"`
	StoreTimezone                  string `env:"STORE_TIMEZONE" envDefault:"UTC"`
	StoreBaseURL                   string `env:"STORE_BASE_URL" envDefault:"http://localhost:8001"`
	StorePlaceholderImageURL       string `env:"STORE_PLACEHOLDER_IMAGE_URL" envDefault:"http://localhost:8001/assets/placeholder.png"`
	StoreSuppressImageUploadErrors bool   `env:"STORE_SUPPRESS_IMAGE_UPLOAD_ERRORS" envDefault:"false"`
	StoreCurrencySymbol            string `env:"STORE_CURRENCY_SYMBOL" envDefault:"$"`
	StorePriceDecimals             int32  `env:"STORE_PRICE_DECIMALS" envDefault:"2"`

	// Media
	MediaFetchTimeout time.Duration `env:"MEDIA_FETCH_TIMEOUT" envDefault:"30s"`
	MediaMaxBytes     int64         `env:"MEDIA_MAX_BYTES" envDefault:"10485760"`
	MediaStorage      string        `env:"MEDIA_STORAGE" envDefault:"memory"`
	MediaBaseURL      string        `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8001"`
	S3Bucket          string        `env:"S3_BUCKET" envDefault:""`
	S3Region          string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string        `env:"S3_ENDPOINT" envDefault:""`
	S3ForcePathStyle  bool          `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	S3PublicURL       string        `env:"S3_PUBLIC_URL" envDefault:""`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from a .env file, when present, and the
// environment.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotenv(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.JWTPublicKey == "" && c.Environment != "development" {
		return fmt.Errorf("JWT_PUBLIC_KEY is required outside development")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %f", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst)
	}
	switch domain.CategoryMode(c.StoreCategoryMode) {
	case domain.CategoryModeSingle, domain.CategoryModeMultiple:
	default:
		return fmt.Errorf("STORE_CATEGORY_MODE must be single or multiple, got %q", c.StoreCategoryMode)
	}
	if _, err := time.LoadLocation(c.StoreTimezone); err != nil {
		return fmt.Errorf("invalid STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	if c.StorePriceDecimals < 0 || c.StorePriceDecimals > 8 {
		return fmt.Errorf("STORE_PRICE_DECIMALS must be between 0 and 8, got %d", c.StorePriceDecimals)
	}
	if c.MediaMaxBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_BYTES must be positive, got %d", c.MediaMaxBytes)
	}
	switch c.MediaStorage {
	case StorageMemory:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MEDIA_STORAGE=s3")
		}
	default:
		return fmt.Errorf("MEDIA_STORAGE must be memory or s3, got %q", c.MediaStorage)
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// RateLimit returns the per-seller API rate limit.
func (c *Config) RateLimit() middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	rl.RPS = c.RateLimitRPS
	rl.Burst = c.RateLimitBurst
	return rl
}

// StoreSettings converts the store settings into the form the mapper reads.
// Load has already validated the timezone.
func (c *Config) StoreSettings() domain.StoreSettings {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		loc = time.UTC
	}
	return domain.StoreSettings{
		ManageStock:         c.StoreManageStock,
		CategoryMode:        domain.CategoryMode(c.StoreCategoryMode),
		Location:            loc,
		BaseURL:             strings.TrimRight(c.StoreBaseURL, "/"),
		PlaceholderImageURL: c.StorePlaceholderImageURL,
		CurrencySymbol:      c.StoreCurrencySymbol,
		PriceDecimals:       c.StorePriceDecimals,
	}
}
