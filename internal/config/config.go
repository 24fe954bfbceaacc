package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// API server configuration
	Server ServerConfig

	// Holdings store selection
	Store StoreConfig

	// PostgreSQL configuration (STORE_BACKEND=postgres)
	Database DatabaseConfig

	// Redis configuration (STORE_BACKEND=redis)
	Redis RedisConfig

	// Market data feed configuration
	Feed FeedConfig

	// Price refresh configuration
	Refresh RefreshConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"SERVER_RATE_LIMIT_RPS" default:"100"`
}

// StoreConfig selects the holdings store backend
type StoreConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"postgres"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"portfolio"`
	Password        string        `envconfig:"DB_PASSWORD" default:"portfolio"`
	Name            string        `envconfig:"DB_NAME" default:"crypto_portfolio"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host        string `envconfig:"REDIS_HOST" default:"localhost"`
	Port        int    `envconfig:"REDIS_PORT" default:"6379"`
	Password    string `envconfig:"REDIS_PASSWORD" default:""`
	DB          int    `envconfig:"REDIS_DB" default:"0"`
	HoldingsKey string `envconfig:"REDIS_HOLDINGS_KEY" default:"portfolio:holdings"`
}

// FeedConfig holds market data feed settings
type FeedConfig struct {
	BaseURL        string        `envconfig:"FEED_BASE_URL" default:"https://api.coingecko.com/api/v3"`
	APIKey         string        `envconfig:"FEED_API_KEY" default:""`
	RequestTimeout time.Duration `envconfig:"FEED_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"FEED_MAX_RETRIES" default:"5"`
	RetryDelay     time.Duration `envconfig:"FEED_RETRY_DELAY" default:"1s"`
}

// RefreshConfig holds price refresh settings
type RefreshConfig struct {
	// Interval is the period of the background refresh and the minimum
	// spacing between full-batch feed calls.
	Interval time.Duration `envconfig:"REFRESH_INTERVAL" default:"30s"`

	// CacheDuration is how long a cached price counts as fresh.
	CacheDuration time.Duration `envconfig:"PRICE_CACHE_DURATION" default:"5m"`

	// PacingDelay is the fixed delay applied between per-holding updates
	// during a reconciliation pass.
	PacingDelay time.Duration `envconfig:"RECONCILE_PACING_DELAY" default:"3s"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
