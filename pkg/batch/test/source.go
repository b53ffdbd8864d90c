package test

import (
	"context"
	"sync"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// StaticSource returns a fixed list of work items, or a fixed error.
type StaticSource struct {
	mu    sync.Mutex
	items []model.WorkItem
	err   error
	loads int
}

var _ port.WorkItemSource = (*StaticSource)(nil)

// NewStaticSource creates a source over items.
func NewStaticSource(items ...model.WorkItem) *StaticSource {
	return &StaticSource{items: items}
}

// NewFailingSource creates a source whose Load always returns err.
func NewFailingSource(err error) *StaticSource {
	return &StaticSource{err: err}
}

// Load implements port.WorkItemSource.
func (s *StaticSource) Load(ctx context.Context) ([]model.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.WorkItem(nil), s.items...), nil
}

// Loads returns how many times Load was called.
func (s *StaticSource) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}
