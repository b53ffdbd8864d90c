package test

import (
	"context"
	"strings"
	"sync"

	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/inmemory"
)

// FaultyDocumentStore wraps an in-memory store and fails writes whose key starts with a configured prefix.
type FaultyDocumentStore struct {
	*inmemory.InMemoryDocumentStore

	mu        sync.Mutex
	failPuts  map[string]error
	failGets  map[string]error
	putCounts map[string]int
}

var _ repository.DocumentStore = (*FaultyDocumentStore)(nil)

// NewFaultyDocumentStore creates a FaultyDocumentStore with no faults.
func NewFaultyDocumentStore() *FaultyDocumentStore {
	return &FaultyDocumentStore{
		InMemoryDocumentStore: inmemory.NewInMemoryDocumentStore(),
		failPuts:              make(map[string]error),
		failGets:              make(map[string]error),
		putCounts:             make(map[string]int),
	}
}

// FailPut makes every Put and Delete of a key starting with prefix return err.
func (s *FaultyDocumentStore) FailPut(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts[prefix] = err
}

// FailGet makes every Get of a key starting with prefix return err.
func (s *FaultyDocumentStore) FailGet(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGets[prefix] = err
}

// Heal removes all faults.
func (s *FaultyDocumentStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts = make(map[string]error)
	s.failGets = make(map[string]error)
}

// PutCount returns how many successful Puts key received.
func (s *FaultyDocumentStore) PutCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCounts[key]
}

func (s *FaultyDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.fault(s.failGets, key); err != nil {
		return nil, err
	}
	return s.InMemoryDocumentStore.Get(ctx, key)
}

func (s *FaultyDocumentStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.fault(s.failPuts, key); err != nil {
		return err
	}
	if err := s.InMemoryDocumentStore.Put(ctx, key, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.putCounts[key]++
	s.mu.Unlock()
	return nil
}

func (s *FaultyDocumentStore) Delete(ctx context.Context, key string) error {
	if err := s.fault(s.failPuts, key); err != nil {
		return err
	}
	return s.InMemoryDocumentStore.Delete(ctx, key)
}

func (s *FaultyDocumentStore) fault(faults map[string]error, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for prefix, err := range faults {
		if strings.HasPrefix(key, prefix) {
			return err
		}
	}
	return nil
}
