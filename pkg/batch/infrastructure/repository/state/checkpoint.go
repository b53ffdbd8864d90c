package state

import (
	"context"
	"time"

	"github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
)

// CheckpointKey is the document holding the progress cursor.
const CheckpointKey = "checkpoint.json"

// CheckpointStore loads and saves the CheckpointState.
type CheckpointStore struct {
	store *JSONStore[model.CheckpointState]
	now   func() time.Time
}

// NewCheckpointStore creates a CheckpointStore.
func NewCheckpointStore(docs repository.DocumentStore, now func() time.Time) *CheckpointStore {
	return &CheckpointStore{
		store: NewJSONStore[model.CheckpointState](docs, CheckpointKey, "checkpoint"),
		now:   now,
	}
}

// Load returns the stored checkpoint, or a fresh one if none exists.
func (s *CheckpointStore) Load(ctx context.Context) (model.CheckpointState, error) {
	cp, found, err := s.store.Load(ctx)
	if err != nil {
		return model.CheckpointState{}, err
	}
	if !found {
		return model.NewCheckpointState(s.now()), nil
	}
	return cp, nil
}

// Save stamps LastUpdated and persists the checkpoint.
func (s *CheckpointStore) Save(ctx context.Context, cp *model.CheckpointState) error {
	cp.LastUpdated = s.now()
	return s.store.Save(ctx, *cp)
}
