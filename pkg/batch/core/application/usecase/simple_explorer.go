package usecase

import (
	"context"
	"sort"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	state "github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/state"
)

// SimpleBatchExplorer implements BatchExplorer by reading the stores and the work item source.
type SimpleBatchExplorer struct {
	stores *state.Stores
	source port.WorkItemSource
}

// NewSimpleBatchExplorer creates a new SimpleBatchExplorer.
func NewSimpleBatchExplorer(stores *state.Stores, source port.WorkItemSource) *SimpleBatchExplorer {
	return &SimpleBatchExplorer{stores: stores, source: source}
}

var _ BatchExplorer = (*SimpleBatchExplorer)(nil)

// Snapshot implements BatchExplorer. Items are listed in source order.
func (e *SimpleBatchExplorer) Snapshot(ctx context.Context) (*model.StatusSnapshot, error) {
	items, err := e.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.stores.LoadAll(ctx); err != nil {
		return nil, err
	}
	cp, err := e.stores.Checkpoint.Load(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &model.StatusSnapshot{
		Checkpoint: cp,
		Ledger:     e.stores.Ledger.Entries(),
		Skipped:    e.stores.Skipped.Entries(),
		Items:      make([]model.ItemStatus, 0, len(items)),
		Totals: model.Totals{
			TotalEnriched:  e.stores.Manifest.Size(),
			TotalSkipped:   e.stores.Skipped.Len(),
			LedgerSize:     e.stores.Ledger.Len(),
			TotalProcessed: cp.TotalProcessed,
			TotalErrors:    cp.TotalErrors,
		},
	}

	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		known[item.ID] = struct{}{}
		snapshot.Items = append(snapshot.Items, e.itemStatus(item, cp))
	}

	orphans := make(map[string]struct{})
	for _, entry := range snapshot.Ledger {
		if _, ok := known[entry.ID]; !ok {
			orphans[entry.ID] = struct{}{}
		}
	}
	for _, entry := range snapshot.Skipped {
		if _, ok := known[entry.ID]; !ok {
			orphans[entry.ID] = struct{}{}
		}
	}
	for id := range orphans {
		snapshot.Orphans = append(snapshot.Orphans, id)
	}
	sort.Strings(snapshot.Orphans)
	return snapshot, nil
}

func (e *SimpleBatchExplorer) itemStatus(item model.WorkItem, cp model.CheckpointState) model.ItemStatus {
	status := model.ItemStatus{ID: item.ID, Rank: item.Rank, State: model.ItemPending}
	if entry, ok := e.stores.Ledger.Get(item.ID); ok {
		status.State = model.ItemFailed
		status.Retries = entry.Retries
		status.LastError = entry.Error
		status.LastAttempt = entry.LastAttempt
	}
	switch {
	case e.stores.Manifest.Contains(item.ID):
		status.State = model.ItemSucceeded
	case e.stores.Skipped.Contains(item.ID):
		status.State = model.ItemSkipped
	case cp.InProgress == item.ID:
		status.State = model.ItemInProgress
	}
	return status
}
