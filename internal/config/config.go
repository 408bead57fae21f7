// Package config loads the application configuration from environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"PASTLOG_DB_PATH" envDefault:"./data/pastlog.db"`
	ServerHost string `env:"PASTLOG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"PASTLOG_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"PASTLOG_ENV" envDefault:"development"`
	LogLevel   string `env:"PASTLOG_LOG_LEVEL" envDefault:"info"`

	// EventLogMinLevel is the lowest slog level that is mirrored into the
	// event log by the logging bridge.
	EventLogMinLevel string `env:"PASTLOG_EVENTLOG_MIN_LEVEL" envDefault:"warn"`

	// Cache configuration
	RedisURL    string `env:"PASTLOG_REDIS_URL"`                          // Optional Redis URL for distributed caching
	CachePrefix string `env:"PASTLOG_CACHE_PREFIX" envDefault:"pastlog:"` // Redis key prefix
	CacheTTL    int    `env:"PASTLOG_CACHE_TTL" envDefault:"3600"`        // Default cache TTL in seconds

	// Retention configuration. Zero disables the scheduled purge.
	RetentionDays int `env:"PASTLOG_RETENTION_DAYS" envDefault:"30"`

	// API rate limiting
	RateLimitRPS   float64 `env:"PASTLOG_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"PASTLOG_RATE_LIMIT_BURST" envDefault:"20"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheExpiry returns the default cache TTL as a duration.
func (c Config) CacheExpiry() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Retention returns how long events are kept before the scheduled purge
// removes them. Zero means events are kept forever.
func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SlogLevel maps the configured log level name to a slog.Level.
// Unknown names fall back to info.
func (c Config) SlogLevel() slog.Level {
	return parseLevel(c.LogLevel, slog.LevelInfo)
}

// EventLogLevel maps the configured event log threshold to a slog.Level.
// Unknown names fall back to warn.
func (c Config) EventLogLevel() slog.Level {
	return parseLevel(c.EventLogMinLevel, slog.LevelWarn)
}

func parseLevel(name string, fallback slog.Level) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("PASTLOG_SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("PASTLOG_RETENTION_DAYS must not be negative, got %d", cfg.RetentionDays)
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("PASTLOG_RATE_LIMIT_RPS must be positive, got %g", cfg.RateLimitRPS)
	}

	return cfg, nil
}
