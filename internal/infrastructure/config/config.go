package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Dedup     DedupConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Breaker   BreakerConfig
	Probe     ProbeConfig
	Deps      DepsConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// DedupConfig holds request coalescer configuration.
type DedupConfig struct {
	MaxPending     int           `envconfig:"DEDUP_MAX_PENDING" default:"1000"`
	DefaultTimeout time.Duration `envconfig:"DEDUP_TIMEOUT" default:"30s"`
	GraceWindow    time.Duration `envconfig:"DEDUP_GRACE_WINDOW" default:"5s"`
}

// CacheConfig holds fallback cache configuration.
type CacheConfig struct {
	Capacity int           `envconfig:"CACHE_CAPACITY" default:"4096"`
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
}

// QueueConfig holds request queue configuration.
type QueueConfig struct {
	DrainRate float64 `envconfig:"QUEUE_DRAIN_RPS" default:"50"`
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	FailureThreshold uint32        `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	OpenTimeout      time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`
	Interval         time.Duration `envconfig:"BREAKER_INTERVAL" default:"60s"`
	MaxRequests      uint32        `envconfig:"BREAKER_MAX_REQUESTS" default:"1"`
}

// ProbeConfig holds health probe defaults; per-dependency settings in
// the deps file override the interval and timeout.
type ProbeConfig struct {
	Enabled  bool          `envconfig:"PROBE_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"PROBE_INTERVAL" default:"15s"`
	Timeout  time.Duration `envconfig:"PROBE_TIMEOUT" default:"3s"`
}

// DepsConfig locates the dependency registration file.
type DepsConfig struct {
	File string `envconfig:"DEPS_FILE" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Dedup: DedupConfig{
			MaxPending:     1000,
			DefaultTimeout: 30 * time.Second,
			GraceWindow:    5 * time.Second,
		},
		Cache: CacheConfig{
			Capacity: 4096,
			TTL:      5 * time.Minute,
		},
		Queue: QueueConfig{
			DrainRate: 50,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			Interval:         60 * time.Second,
			MaxRequests:      1,
		},
		Probe: ProbeConfig{
			Enabled:  true,
			Interval: 15 * time.Second,
			Timeout:  3 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
