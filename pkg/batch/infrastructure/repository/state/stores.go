package state

import (
	"context"
	"time"

	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
)

// Stores bundles every durable store of one pipeline over a single DocumentStore.
type Stores struct {
	Docs       repository.DocumentStore
	Checkpoint *CheckpointStore
	Manifest   *ManifestStore
	Ledger     *FailureLedger
	Skipped    *SkippedStore
	Records    *RecordStore
	Stages     *StageStore
}

// Options configures NewStores.
type Options struct {
	MaxRetries      int
	ManifestVersion string
	Now             func() time.Time
}

// NewStores creates all stores over docs.
func NewStores(docs repository.DocumentStore, opts Options) *Stores {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Stores{
		Docs:       docs,
		Checkpoint: NewCheckpointStore(docs, now),
		Manifest:   NewManifestStore(docs, opts.ManifestVersion, now),
		Ledger:     NewFailureLedger(docs, opts.MaxRetries, now),
		Skipped:    NewSkippedStore(docs, now),
		Records:    NewRecordStore(docs),
		Stages:     NewStageStore(docs),
	}
}

// LoadAll loads the manifest, the ledger and the skipped set into memory.
func (s *Stores) LoadAll(ctx context.Context) error {
	if _, err := s.Manifest.Load(ctx); err != nil {
		return err
	}
	if err := s.Ledger.Load(ctx); err != nil {
		return err
	}
	if _, err := s.Skipped.Load(ctx); err != nil {
		return err
	}
	return nil
}
