package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces stored items inside the Redis keyspace
const DefaultKeyPrefix = "kvarea:item:"

// scanCount is the COUNT hint passed to SCAN
const scanCount = 100

// Store implements ports.Store using Redis.
// Values are stored as JSON strings under prefix+key.
type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, prefix string, logger *zap.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Get retrieves the value stored under key, or nil if there is none
func (s *Store) Get(ctx context.Context, key string) (interface{}, error) {
	data, err := s.client.Get(ctx, s.itemKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item %q: %w", key, err)
	}

	return decode(key, data)
}

// Set stores value under key without expiration
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}

	if err := s.client.Set(ctx, s.itemKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set item %q: %w", key, err)
	}

	return nil
}

// Remove deletes key
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.itemKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove item %q: %w", key, err)
	}

	return nil
}

// Clear deletes every key under the store prefix. Keys outside the prefix
// are left alone, so the store can share a database with other data.
func (s *Store) Clear(ctx context.Context) error {
	var removed int
	err := s.scan(ctx, func(batch []string) error {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete items: %w", err)
		}
		removed += len(batch)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("store cleared",
		zap.String("prefix", s.prefix),
		zap.Int("removed", removed))

	return nil
}

// IterateAll visits every entry under the store prefix. Entries deleted
// between SCAN and MGET are skipped.
func (s *Store) IterateAll(ctx context.Context, visit func(key string, value interface{}) error) error {
	seen := make(map[string]struct{})

	return s.scan(ctx, func(batch []string) error {
		values, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to get items: %w", err)
		}

		for i, raw := range values {
			key := strings.TrimPrefix(batch[i], s.prefix)
			// SCAN may return a key more than once
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			str, ok := raw.(string)
			if !ok {
				continue
			}

			value, err := decode(key, []byte(str))
			if err != nil {
				return err
			}
			if err := visit(key, value); err != nil {
				return err
			}
		}

		return nil
	})
}

// Ping checks the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// scan walks every key under the prefix in SCAN batches
func (s *Store) scan(ctx context.Context, fn func(batch []string) error) error {
	pattern := s.prefix + "*"

	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// itemKey returns the Redis key for a storage key
func (s *Store) itemKey(key string) string {
	return s.prefix + key
}

func decode(key string, data []byte) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value for key %q: %w", key, err)
	}
	return value, nil
}
