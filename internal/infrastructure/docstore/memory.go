package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory Store implementation. It backs tests and
// single-process development runs.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc any) (string, error) {
	m, err := encodeDoc(doc)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	m["id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = m
	return id, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc any) error {
	m, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	m["id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = m
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	return decodeInto(m, out)
}

func (s *MemoryStore) Query(ctx context.Context, collection string, q Query, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]map[string]any, 0, len(s.collections[collection]))
	for _, m := range s.collections[collection] {
		if matchesFilters(m, q.Filters) {
			docs = append(docs, m)
		}
	}

	sortDocs(docs, q.OrderBy, q.Descending)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return decodeSlice(docs, out)
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		m[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}
