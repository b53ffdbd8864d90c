// Package inmemory provides an in-memory DocumentStore, used for dry runs and tests.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
)

// InMemoryDocumentStore holds documents in a map. Stored slices are copied on the way in and out.
type InMemoryDocumentStore struct {
	docs map[string][]byte
	mu   sync.RWMutex
}

var _ repository.DocumentStore = (*InMemoryDocumentStore)(nil)

// NewInMemoryDocumentStore creates an empty store.
func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string][]byte)}
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemoryDocumentStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), data...)
	return nil
}

func (s *InMemoryDocumentStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}

func (s *InMemoryDocumentStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases nothing; the documents stay readable.
func (s *InMemoryDocumentStore) Close() error {
	return nil
}
