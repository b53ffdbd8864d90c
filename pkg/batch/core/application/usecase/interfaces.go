package usecase

import (
	"context"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// BatchLauncher runs one batch of the enrichment pipeline.
type BatchLauncher interface {
	// Run processes up to batchSize remaining items (0 or less means all), then the retry pass.
	// The returned error is non-nil only for fatal conditions: the work item source could not be
	// loaded, or durable state could not be read or written. Per-item failures never surface here.
	Run(ctx context.Context, batchSize int) (*model.RunSummary, error)
}

// BatchOperator performs explicit re-run tooling on durable state.
type BatchOperator interface {
	// Requeue removes ids from the Skipped set and the failure ledger so they are processed again.
	// With force the ids are removed from the manifest too. It returns the ids that changed.
	Requeue(ctx context.Context, ids []string, force bool) ([]string, error)

	// ClearSkipped empties the Skipped set and resets the ledger entries of the released ids.
	ClearSkipped(ctx context.Context) ([]string, error)
}

// BatchExplorer queries durable pipeline state.
type BatchExplorer interface {
	// Snapshot returns the state of every work item plus cumulative totals.
	Snapshot(ctx context.Context) (*model.StatusSnapshot, error)
}
