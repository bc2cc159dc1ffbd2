package prefstore

import (
	"context"
	"sync"
)

// Keys persisted for a preference profile.
const (
	KeyFromCurrency = "fromCurrency"
	KeyToCurrency   = "toCurrency"
	KeyTheme        = "theme"
)

// Store is a durable string key/value store. A missing key is reported with found == false, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

type memoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore keeps preferences for the life of the process only.
func NewMemoryStore() Store {
	return &memoryStore{values: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

type noopStore struct{}

// NewNoopStore is used when preference persistence is disabled: reads always miss and writes are dropped.
func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (noopStore) Set(context.Context, string, string) error         { return nil }
