package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ObjectStore used in tests and local
// development runs without bucket credentials.
type MemoryStore struct {
	mu      sync.Mutex
	cdnBase string
	objects map[string][]byte
}

func NewMemoryStore(cdnBase string) *MemoryStore {
	return &MemoryStore{
		cdnBase: cdnBase,
		objects: make(map[string][]byte),
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.objects[key]; !exists {
		buf := make([]byte, len(data))
		copy(buf, data)
		m.objects[key] = buf
	}

	return PublicURL(m.cdnBase, key), nil
}

// Len reports how many distinct objects have been stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Has reports whether an object exists under key.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
