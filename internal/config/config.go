package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds all application configuration loaded from the environment.
type Config struct {
	AppEnv           string `env:"APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"text"`
	HTTPListenAddr   string `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	PublicBasePath   string `env:"PUBLIC_BASE_PATH"`
	PublicBaseURL    string `env:"PUBLIC_BASE_URL"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"botpanel"`

	// Storage
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"data/botpanel.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseSchema string `env:"DATABASE_SCHEMA" envDefault:"public"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisTLS      bool   `env:"REDIS_TLS" envDefault:"false"`

	// Telegram
	TelegramAPIEndpoint string        `env:"TELEGRAM_API_ENDPOINT" envDefault:"https://api.telegram.org/bot%s/%s"`
	TelegramTimeout     time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"15s"`
	WebhookSecret       string        `env:"WEBHOOK_SECRET"`

	// Background work
	SchedulerEnabled     bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	SyncInterval         time.Duration `env:"SYNC_INTERVAL" envDefault:"60s"`
	StatsRefreshInterval time.Duration `env:"STATS_REFRESH_INTERVAL" envDefault:"30s"`
	SyncPageSize         int           `env:"SYNC_PAGE_SIZE" envDefault:"100"`
	BroadcastDelay       time.Duration `env:"BROADCAST_DELAY" envDefault:"100ms"`

	// Admin auth
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
	AdminUsername string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	SeedDemoBot   bool          `env:"SEED_DEMO_BOT" envDefault:"false"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.SyncPageSize <= 0 || c.SyncPageSize > 100 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 100, got %d", c.SyncPageSize)
	}
	if c.BroadcastDelay < 0 {
		return fmt.Errorf("BROADCAST_DELAY must not be negative")
	}
	return nil
}
