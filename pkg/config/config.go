// Package config loads httpcache configuration from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds the configuration of the caching proxy.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080"
	Listen string `yaml:"listen" validate:"required"`

	// UserAgent is sent on origin requests when the caller did not set one
	UserAgent string `yaml:"user_agent"`

	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
	Retry RetryConfig `yaml:"retry"`
	Warm  WarmConfig  `yaml:"warm"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Pretty bool   `yaml:"pretty"`
}

// StoreConfig selects and configures the cache backend.
type StoreConfig struct {
	Backend string       `yaml:"backend" validate:"required,oneof=memory redis sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string        `yaml:"addr" validate:"omitempty,hostname_port"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"gte=0,lte=15"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RetryConfig configures origin retries in the transport.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"gte=1,lte=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" validate:"gtefield=InitialBackoff"`
}

// WarmConfig configures the cache warm-up endpoint.
type WarmConfig struct {
	Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=100"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// RateLimitConfig configures per-host origin rate limit gating. State is
// shared through Redis when the redis store backend is selected.
type RateLimitConfig struct {
	Enabled          bool          `yaml:"enabled"`
	WarningThreshold int           `yaml:"warning_threshold" validate:"gte=0"`
	ThrottleDelay    time.Duration `yaml:"throttle_delay" validate:"gte=0"`
}

// Default returns a configuration that runs with an in-memory store.
func Default() Config {
	return Config{
		Listen:    ":8080",
		UserAgent: "httpcache/0.1.0",
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "httpcache",
			},
			SQLite: SQLiteConfig{
				Path: "./httpcache.db",
			},
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Warm: WarmConfig{
			Concurrency: 10,
			Timeout:     15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			WarningThreshold: 5,
			ThrottleDelay:    time.Second,
		},
	}
}

// Load reads path (optional) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks field constraints and backend requirements.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("invalid config: store.redis.addr is required for the redis backend")
		}
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("invalid config: store.sqlite.path is required for the sqlite backend")
		}
	}

	return nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Listen = ":" + port
	}
	c.Listen = getEnv("HTTPCACHE_LISTEN", c.Listen)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Store.Backend = getEnv("HTTPCACHE_STORE", c.Store.Backend)
	c.Store.Redis.Addr = getEnv("REDIS_URL", c.Store.Redis.Addr)
	c.Store.SQLite.Path = getEnv("HTTPCACHE_SQLITE_PATH", c.Store.SQLite.Path)

	if raw := os.Getenv("HTTPCACHE_REDIS_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse HTTPCACHE_REDIS_TTL: %w", err)
		}
		c.Store.Redis.TTL = ttl
	}

	if raw := os.Getenv("HTTPCACHE_RETRY_ATTEMPTS"); raw != "" {
		attempts, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse HTTPCACHE_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.MaxAttempts = attempts
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
