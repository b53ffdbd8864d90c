package enrich

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// Stage is one named step of enrichment.
type Stage struct {
	Name     string
	Optional bool
	// Timeout bounds one call of this stage. 0 leaves only the item timeout.
	Timeout time.Duration
}

// StagesFromConfig returns the configured stages, or the single default stage.
func StagesFromConfig(cfg config.EnrichmentConfig) []Stage {
	if len(cfg.Stages) == 0 {
		return []Stage{{Name: DefaultStageName}}
	}
	stages := make([]Stage, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		stages = append(stages, Stage{
			Name:     s.Name,
			Optional: s.Optional,
			Timeout:  time.Duration(s.TimeoutMs) * time.Millisecond,
		})
	}
	return stages
}

// StageStateStore persists per-item stage outputs and progress.
type StageStateStore interface {
	SaveOutput(ctx context.Context, stage string, record *model.EnrichedRecord) error
	LoadOutput(ctx context.Context, stage, id string) (*model.EnrichedRecord, bool, error)
	LoadProgress(ctx context.Context, id string) (model.StageProgress, error)
	SaveProgress(ctx context.Context, progress model.StageProgress) error
	Clear(ctx context.Context, id string, stages []string) error
}

// StagedEnricher advances an item through its stages. With more than one stage, each completed
// stage output is persisted so a retried item resumes after its last completed stage.
type StagedEnricher struct {
	client    Client
	stages    []Stage
	store     StageStateStore
	merger    *Merger
	validator Validator
	now       func() time.Time
}

var (
	_ port.Enricher  = (*StagedEnricher)(nil)
	_ port.Finalizer = (*StagedEnricher)(nil)
)

// NewStagedEnricher creates a StagedEnricher. store may be nil for a single stage.
func NewStagedEnricher(client Client, stages []Stage, store StageStateStore, merger *Merger, validator Validator, now func() time.Time) (*StagedEnricher, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("at least one enrichment stage is required")
	}
	names := mapset.NewThreadUnsafeSet[string]()
	for _, s := range stages {
		if s.Name == "" {
			return nil, fmt.Errorf("enrichment stage without a name")
		}
		if !names.Add(s.Name) {
			return nil, fmt.Errorf("duplicate enrichment stage '%s'", s.Name)
		}
	}
	if len(stages) > 1 && store == nil {
		return nil, fmt.Errorf("a stage store is required for %d stages", len(stages))
	}
	if now == nil {
		now = time.Now
	}
	return &StagedEnricher{
		client:    client,
		stages:    stages,
		store:     store,
		merger:    merger,
		validator: validator,
		now:       now,
	}, nil
}

func (e *StagedEnricher) persistent() bool {
	return len(e.stages) > 1
}

// Enrich implements port.Enricher.
func (e *StagedEnricher) Enrich(ctx context.Context, item model.WorkItem) (*model.EnrichedRecord, error) {
	progress := model.StageProgress{ID: item.ID}
	if e.persistent() {
		p, err := e.store.LoadProgress(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		progress = p
	}
	completed := progress.CompletedSet()

	var outputs []StageOutput
	for _, stage := range e.stages {
		if completed.Contains(stage.Name) {
			record, found, err := e.store.LoadOutput(ctx, stage.Name, item.ID)
			if err != nil {
				return nil, err
			}
			if found {
				logger.Debugf("Item '%s': stage '%s' already completed.", item.ID, stage.Name)
				outputs = append(outputs, StageOutput{Stage: stage.Name, Record: record})
				continue
			}
			completed.Remove(stage.Name)
		}

		var previous *model.EnrichedRecord
		if len(outputs) > 0 {
			previous = e.merger.Merge(item.ID, outputs)
		}
		record, err := e.runStage(ctx, stage, item, previous)
		if err != nil {
			if stage.Optional && !exception.IsStorageError(err) && ctx.Err() == nil {
				logger.Warnf("Item '%s': optional stage '%s' failed, continuing: %s", item.ID, stage.Name, exception.ExtractErrorMessage(err))
				continue
			}
			return nil, err
		}
		outputs = append(outputs, StageOutput{Stage: stage.Name, Record: record})

		if e.persistent() {
			// A caller that gave up on this item may already be running the next one.
			if err := ctx.Err(); err != nil {
				return nil, exception.NewTransientEnrichmentError(fmt.Sprintf("stage '%s' finished after the call was abandoned", stage.Name), err)
			}
			if err := e.store.SaveOutput(ctx, stage.Name, record); err != nil {
				return nil, err
			}
			completed.Add(stage.Name)
			progress.Completed = orderedCompleted(e.stages, completed)
			progress.UpdatedAt = e.now()
			if err := e.store.SaveProgress(ctx, progress); err != nil {
				return nil, err
			}
		}
	}

	if len(outputs) == 0 {
		return nil, exception.NewPermanentEnrichmentError(fmt.Sprintf("no stage produced output for '%s'", item.ID), nil)
	}
	merged := e.merger.Merge(item.ID, outputs)
	if e.validator != nil {
		if err := e.validator.Validate(merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func (e *StagedEnricher) runStage(ctx context.Context, stage Stage, item model.WorkItem, previous *model.EnrichedRecord) (*model.EnrichedRecord, error) {
	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}
	record, err := e.client.Complete(ctx, Request{Item: item, Stage: stage.Name, Previous: previous})
	if err != nil {
		return nil, exception.ClassifyEnrichmentError(err)
	}
	if record == nil {
		return nil, exception.NewPermanentEnrichmentError(fmt.Sprintf("stage '%s' returned no record", stage.Name), nil)
	}
	record.ID = item.ID
	return record, nil
}

// Finalize deletes the stage outputs and progress of a completed item.
func (e *StagedEnricher) Finalize(ctx context.Context, id string) error {
	if !e.persistent() {
		return nil
	}
	names := make([]string, 0, len(e.stages))
	for _, s := range e.stages {
		names = append(names, s.Name)
	}
	return e.store.Clear(ctx, id, names)
}

func orderedCompleted(stages []Stage, completed mapset.Set[string]) []string {
	out := make([]string, 0, completed.Cardinality())
	for _, s := range stages {
		if completed.Contains(s.Name) {
			out = append(out, s.Name)
		}
	}
	return out
}
