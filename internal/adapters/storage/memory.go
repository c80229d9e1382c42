// Package storage provides ports.KeyValueStore backends: memory, file,
// SQLite and MongoDB, plus a file watcher that reports out-of-process edits.
package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MemoryStore keeps values in a map. It backs session storage and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get implements ports.KeyValueStore.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, domain.NewNotFoundError("storage key", key)
	}

	return slices.Clone(v), nil
}

// Set implements ports.KeyValueStore.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = slices.Clone(value)

	return nil
}

// Delete implements ports.KeyValueStore.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}

// Name implements ports.HealthChecker.
func (m *MemoryStore) Name() string { return "storage" }

// Check implements ports.HealthChecker. Memory is always available.
func (m *MemoryStore) Check(context.Context) error { return nil }

// Close implements io.Closer.
func (m *MemoryStore) Close() error { return nil }
