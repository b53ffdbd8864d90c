package state

import (
	"context"
	"time"

	"github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

const (
	// ManifestKey is the document listing every id with a durably stored record.
	ManifestKey = "manifest.json"
	// ManifestSummaryKey is the lightweight progress side-file for external consumers.
	ManifestSummaryKey = "manifest-summary.json"
)

// ManifestStore is the single source of truth for completed items.
// Load must be called before Contains or RecordSuccess.
type ManifestStore struct {
	docs     repository.DocumentStore
	now      func() time.Time
	version  string
	manifest *model.Manifest
}

// NewManifestStore creates a ManifestStore. version is written into the manifest document.
func NewManifestStore(docs repository.DocumentStore, version string, now func() time.Time) *ManifestStore {
	return &ManifestStore{docs: docs, version: version, now: now, manifest: model.NewManifest()}
}

// Load reads the manifest, or starts an empty one.
func (s *ManifestStore) Load(ctx context.Context) (*model.Manifest, error) {
	m := model.NewManifest()
	if _, err := getJSON(ctx, s.docs, ManifestKey, "manifest", m); err != nil {
		return nil, err
	}
	s.manifest = m
	return m, nil
}

// Contains reports whether id is complete.
func (s *ManifestStore) Contains(id string) bool {
	return s.manifest.IDs.Contains(id)
}

// Size returns the number of completed items.
func (s *ManifestStore) Size() int {
	return s.manifest.IDs.Cardinality()
}

// Manifest returns the loaded manifest.
func (s *ManifestStore) Manifest() *model.Manifest {
	return s.manifest
}

// RecordSuccess adds id and persists the manifest. If the write fails the id is not kept in memory either.
func (s *ManifestStore) RecordSuccess(ctx context.Context, id string) error {
	if !s.manifest.IDs.Add(id) {
		return nil
	}
	if err := s.persist(ctx); err != nil {
		s.manifest.IDs.Remove(id)
		return err
	}
	return nil
}

// Remove drops ids from the manifest so they are processed again.
func (s *ManifestStore) Remove(ctx context.Context, ids ...string) (int, error) {
	var removed []string
	for _, id := range ids {
		if s.manifest.IDs.Contains(id) {
			s.manifest.IDs.Remove(id)
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := s.persist(ctx); err != nil {
		s.manifest.IDs.Append(removed...)
		return 0, err
	}
	return len(removed), nil
}

func (s *ManifestStore) persist(ctx context.Context) error {
	s.manifest.Version = s.version
	s.manifest.LastUpdated = s.now()
	s.manifest.TotalEnriched = s.manifest.IDs.Cardinality()
	if err := putJSON(ctx, s.docs, ManifestKey, "manifest", s.manifest); err != nil {
		return err
	}

	summary := model.ManifestSummary{
		TotalEnriched: s.manifest.TotalEnriched,
		LastUpdated:   s.manifest.LastUpdated,
	}
	if err := putJSON(ctx, s.docs, ManifestSummaryKey, "manifest", summary); err != nil {
		logger.Warnf("Failed to update %s: %v", ManifestSummaryKey, err)
	}
	return nil
}
