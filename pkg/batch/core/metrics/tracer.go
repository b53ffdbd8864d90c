package metrics

import (
	"context"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing of runs and items.
type Tracer interface {
	// StartRunSpan starts a span covering a whole run. Call the returned function to end it.
	StartRunSpan(ctx context.Context, runID string) (context.Context, func())
	// StartItemSpan starts a span for one item attempt.
	StartItemSpan(ctx context.Context, item model.WorkItem, pass model.Pass) (context.Context, func())
	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
	// Shutdown flushes and stops the exporter, if any.
	Shutdown(ctx context.Context) error
}
