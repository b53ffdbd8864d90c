package state

import (
	"context"

	"github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
)

const (
	recordsDir  = "records"
	stagesDir   = "stages"
	progressDir = "progress"
)

// RecordStore writes one EnrichedRecord document per item. A write always replaces the whole record.
type RecordStore struct {
	docs repository.DocumentStore
}

// NewRecordStore creates a RecordStore.
func NewRecordStore(docs repository.DocumentStore) *RecordStore {
	return &RecordStore{docs: docs}
}

// Put stores record under records/<id>.json.
func (s *RecordStore) Put(ctx context.Context, record *model.EnrichedRecord) error {
	return putJSON(ctx, s.docs, idKey(recordsDir, record.ID), "records", record)
}

// Get loads the record for id.
func (s *RecordStore) Get(ctx context.Context, id string) (*model.EnrichedRecord, bool, error) {
	record := model.NewEnrichedRecord(id)
	found, err := getJSON(ctx, s.docs, idKey(recordsDir, id), "records", record)
	if err != nil || !found {
		return nil, false, err
	}
	record.ID = id
	return record, true, nil
}

// StageStore persists per-stage outputs and per-item stage progress so a retried item resumes
// after its last completed stage.
type StageStore struct {
	docs repository.DocumentStore
}

// NewStageStore creates a StageStore.
func NewStageStore(docs repository.DocumentStore) *StageStore {
	return &StageStore{docs: docs}
}

// SaveOutput stores the output of stage for an item under stages/<stage>/<id>.json.
func (s *StageStore) SaveOutput(ctx context.Context, stage string, record *model.EnrichedRecord) error {
	return putJSON(ctx, s.docs, idKey(stagesDir+"/"+stage, record.ID), "stages", record)
}

// LoadOutput loads a previously saved stage output.
func (s *StageStore) LoadOutput(ctx context.Context, stage, id string) (*model.EnrichedRecord, bool, error) {
	record := model.NewEnrichedRecord(id)
	found, err := getJSON(ctx, s.docs, idKey(stagesDir+"/"+stage, id), "stages", record)
	if err != nil || !found {
		return nil, false, err
	}
	record.ID = id
	return record, true, nil
}

// LoadProgress returns the stage progress of id (empty when none was saved).
func (s *StageStore) LoadProgress(ctx context.Context, id string) (model.StageProgress, error) {
	progress := model.StageProgress{ID: id}
	if _, err := getJSON(ctx, s.docs, idKey(progressDir, id), "stages", &progress); err != nil {
		return model.StageProgress{}, err
	}
	progress.ID = id
	return progress, nil
}

// SaveProgress persists the stage progress of an item.
func (s *StageStore) SaveProgress(ctx context.Context, progress model.StageProgress) error {
	return putJSON(ctx, s.docs, idKey(progressDir, progress.ID), "stages", progress)
}

// Clear deletes the progress and the outputs of stages for id.
func (s *StageStore) Clear(ctx context.Context, id string, stages []string) error {
	for _, stage := range stages {
		if err := deleteDoc(ctx, s.docs, idKey(stagesDir+"/"+stage, id), "stages"); err != nil {
			return err
		}
	}
	return deleteDoc(ctx, s.docs, idKey(progressDir, id), "stages")
}
