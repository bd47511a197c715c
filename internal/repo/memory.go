package repo

import (
	"context"
	"sync"
)

// MemoryBlobStore keeps blobs in process memory. Used for tests and ephemeral runs.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory blob store.
func NewMemory() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryBlobStore) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.blobs[key] = v
	m.mu.Unlock()
	return nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.blobs, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBlobStore) Close() error { return nil }
