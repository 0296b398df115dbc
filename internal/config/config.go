package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the storage service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"KVAREA_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"KVAREA_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Underlying store configuration
	Store StoreConfig

	// Redis configuration
	Redis RedisConfig

	// Change relay configuration
	Relay RelayConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// StoreConfig selects the underlying store
type StoreConfig struct {
	Backend   string `env:"STORE_BACKEND" envDefault:"memory"`
	KeyPrefix string `env:"STORE_KEY_PREFIX" envDefault:"kvarea:item:"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// RelayConfig holds Redis Streams change relay configuration
type RelayConfig struct {
	Enabled             bool          `env:"RELAY_ENABLED" envDefault:"false"`
	Stream              string        `env:"RELAY_STREAM" envDefault:"kvarea:changes"`
	MaxLen              int64         `env:"RELAY_MAX_LEN" envDefault:"10000"`
	Workers             int           `env:"RELAY_WORKERS" envDefault:"2"`
	QueueSize           int           `env:"RELAY_QUEUE_SIZE" envDefault:"256"`
	HealthCheckInterval time.Duration `env:"RELAY_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout     time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"15s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate store config
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported store backend: %s (must be memory or redis)", c.Store.Backend)
	}

	// Validate Redis config
	if c.NeedsRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate relay config
	if c.Relay.Enabled {
		if c.Relay.Stream == "" {
			return fmt.Errorf("relay stream name is required")
		}
		if c.Relay.Workers < 1 {
			return fmt.Errorf("relay workers must be at least 1")
		}
		if c.Relay.QueueSize < 1 {
			return fmt.Errorf("relay queue size must be at least 1")
		}
	}

	if c.Timeouts.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// NeedsRedis reports whether any component requires a Redis connection
func (c *Config) NeedsRedis() bool {
	return c.Store.Backend == "redis" || c.Relay.Enabled
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
