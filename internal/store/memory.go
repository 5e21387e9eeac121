package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]string
	changes *fanout
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]string),
		changes: newFanout(),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	m.changes.notify(Change{Key: key})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.data[key]
	delete(m.data, key)
	m.mu.Unlock()
	if existed {
		m.changes.notify(Change{Key: key, Deleted: true})
	}
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, suffix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasSuffix(k, suffix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, key string) (<-chan Change, func(), error) {
	ch, cancel := m.changes.add(ctx, key)
	return ch, cancel, nil
}

func (m *MemoryStore) Close() error {
	m.changes.close()
	return nil
}
