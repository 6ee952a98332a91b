// Package memory provides an in-process KeyValueStore for single-node runs and tests.
package memory

import (
	"context"
	"sync"
)

// Store implements ports.KeyValueStore in memory.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) SetString(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.GetString(ctx, key)
	return ok, err
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }
