package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store implements ports.Store using an in-memory map.
// Values are kept in their JSON encoding so every read hands out a fresh
// copy, the same structured-clone behavior the Redis store has.
type Store struct {
	items map[string][]byte
	mu    sync.RWMutex
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{
		items: make(map[string][]byte),
	}
}

// Get retrieves the value stored under key, or nil if there is none
func (s *Store) Get(ctx context.Context, key string) (interface{}, error) {
	s.mu.RLock()
	data, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	return decode(key, data)
}

// Set stores a copy of value under key
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = data
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Clear deletes every entry
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string][]byte)
	return nil
}

// IterateAll visits a snapshot of every entry taken when the call starts.
// The visitor runs without the lock held, so it may call back into the store.
func (s *Store) IterateAll(ctx context.Context, visit func(key string, value interface{}) error) error {
	s.mu.RLock()
	snapshot := make(map[string][]byte, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	for key, data := range snapshot {
		value, err := decode(key, data)
		if err != nil {
			return err
		}
		if err := visit(key, value); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of stored entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func decode(key string, data []byte) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value for key %q: %w", key, err)
	}
	return value, nil
}
