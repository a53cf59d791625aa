package vectorstore

import (
	"context"
	"sync"

	"excelinsights/domain/insight"
)

// MemoryStore keeps collections in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]insight.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]insight.Chunk)}
}

func (m *MemoryStore) Replace(ctx context.Context, collection string, chunks []insight.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]insight.Chunk, len(chunks))
	for i, c := range chunks {
		c.Collection = collection
		c.Embedding = append([]float32(nil), c.Embedding...)
		stored[i] = c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = stored
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, collection string, query []float32, k int) ([]insight.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	chunks := m.collections[collection]
	m.mu.RUnlock()
	return rank(chunks, query, k), nil
}

func (m *MemoryStore) DeleteCollection(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
	return nil
}

func (m *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection]), nil
}
