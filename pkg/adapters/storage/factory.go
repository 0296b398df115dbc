package storage

import (
	"fmt"

	"github.com/aescanero/kvarea/pkg/adapters/storage/memory"
	redisstore "github.com/aescanero/kvarea/pkg/adapters/storage/redis"
	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names accepted by NewStore
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds store construction parameters
type Config struct {
	Backend   string
	KeyPrefix string
	// Client is required for the redis backend
	Client *redis.Client
	Logger *zap.Logger
}

// NewStore creates a store for the configured backend
func NewStore(cfg *Config) (ports.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.NewStore(), nil
	case BackendRedis:
		if cfg.Client == nil {
			return nil, fmt.Errorf("redis backend requires a client")
		}
		return redisstore.NewStore(cfg.Client, cfg.KeyPrefix, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
