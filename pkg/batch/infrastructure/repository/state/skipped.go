package state

import (
	"context"
	"sort"
	"time"

	"github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
)

// SkippedKey is the document holding the Skipped set.
const SkippedKey = "skipped.json"

// SkippedStore persists items excluded from automatic processing.
type SkippedStore struct {
	store *JSONStore[*model.SkippedSet]
	now   func() time.Time
	set   *model.SkippedSet
}

// NewSkippedStore creates a SkippedStore.
func NewSkippedStore(docs repository.DocumentStore, now func() time.Time) *SkippedStore {
	return &SkippedStore{
		store: NewJSONStore[*model.SkippedSet](docs, SkippedKey, "skipped"),
		now:   now,
		set:   model.NewSkippedSet(),
	}
}

// Load reads the set, or starts an empty one.
func (s *SkippedStore) Load(ctx context.Context) (*model.SkippedSet, error) {
	set, found, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !found || set == nil {
		set = model.NewSkippedSet()
	}
	if set.Entries == nil {
		set.Entries = make(map[string]model.SkippedEntry)
	}
	s.set = set
	return set, nil
}

// Contains reports whether id is skipped.
func (s *SkippedStore) Contains(id string) bool {
	return s.set.Contains(id)
}

// Len returns the number of skipped items.
func (s *SkippedStore) Len() int {
	return len(s.set.Entries)
}

// Entries returns the skipped entries sorted by id.
func (s *SkippedStore) Entries() []model.SkippedEntry {
	out := make([]model.SkippedEntry, 0, len(s.set.Entries))
	for _, e := range s.set.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Add moves an item into the set and persists it.
func (s *SkippedStore) Add(ctx context.Context, entry model.SkippedEntry) error {
	if entry.SkippedAt.IsZero() {
		entry.SkippedAt = s.now()
	}
	prev, existed := s.set.Entries[entry.ID]
	s.set.Entries[entry.ID] = entry
	if err := s.persist(ctx); err != nil {
		if existed {
			s.set.Entries[entry.ID] = prev
		} else {
			delete(s.set.Entries, entry.ID)
		}
		return err
	}
	return nil
}

// Remove takes ids out of the set. It returns the ids that were present.
func (s *SkippedStore) Remove(ctx context.Context, ids ...string) ([]string, error) {
	removed := make(map[string]model.SkippedEntry)
	for _, id := range ids {
		if e, ok := s.set.Entries[id]; ok {
			removed[id] = e
			delete(s.set.Entries, id)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := s.persist(ctx); err != nil {
		for id, e := range removed {
			s.set.Entries[id] = e
		}
		return nil, err
	}
	out := make([]string, 0, len(removed))
	for id := range removed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Clear empties the set. It returns the ids that were present.
func (s *SkippedStore) Clear(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.set.Entries))
	for id := range s.set.Entries {
		ids = append(ids, id)
	}
	return s.Remove(ctx, ids...)
}

func (s *SkippedStore) persist(ctx context.Context) error {
	s.set.LastUpdated = s.now()
	return s.store.Save(ctx, s.set)
}
