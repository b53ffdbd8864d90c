// Package port defines the core interfaces (ports) of the enrichment pipeline.
// The Batch Driver depends only on these; concrete clients and listeners are injected.
package port

import (
	"context"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// Enricher performs the costly per-item operation. Errors should be classified with
// exception.NewTransientEnrichmentError or exception.NewPermanentEnrichmentError; the Driver
// classifies anything else itself.
type Enricher interface {
	Enrich(ctx context.Context, item model.WorkItem) (*model.EnrichedRecord, error)
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc func(ctx context.Context, item model.WorkItem) (*model.EnrichedRecord, error)

// Enrich implements Enricher.
func (f EnricherFunc) Enrich(ctx context.Context, item model.WorkItem) (*model.EnrichedRecord, error) {
	return f(ctx, item)
}

// Finalizer is implemented by enrichers that keep per-item intermediate state. The Driver calls
// Finalize after the item's record and manifest entry are durable; a failure is only logged.
type Finalizer interface {
	Finalize(ctx context.Context, id string) error
}

// WorkItemSource produces the deterministic, ordered list of work items.
type WorkItemSource interface {
	Load(ctx context.Context) ([]model.WorkItem, error)
}

// RunListener observes the lifecycle of a run.
type RunListener interface {
	// BeforeRun is called once the remaining work is known.
	BeforeRun(ctx context.Context, summary *model.RunSummary)
	// BeforeRetryPass is called before the retry pass with the number of candidates.
	BeforeRetryPass(ctx context.Context, summary *model.RunSummary, candidates int)
	// AfterRun is called with the final summary, also when the run stops early.
	AfterRun(ctx context.Context, summary *model.RunSummary)
}

// ItemListener observes per-item state transitions.
type ItemListener interface {
	BeforeItem(ctx context.Context, event model.ItemEvent)
	OnItemSuccess(ctx context.Context, event model.ItemEvent)
	OnItemFailure(ctx context.Context, event model.ItemEvent)
	OnItemSkipped(ctx context.Context, event model.ItemEvent)
}

// ProgressListener receives periodic progress reports.
type ProgressListener interface {
	OnProgress(ctx context.Context, progress model.Progress)
}

// Fx value group tags for listeners.
const (
	RunListenerGroup      = `group:"run_listeners"`
	ItemListenerGroup     = `group:"item_listeners"`
	ProgressListenerGroup = `group:"progress_listeners"`
)

// Notifier delivers the run summary to an external consumer.
type Notifier interface {
	NotifyRunCompletion(ctx context.Context, summary *model.RunSummary) error
}
