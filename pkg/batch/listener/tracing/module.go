package tracing

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
)

// Module registers the tracing listeners. The Tracer comes from infrastructure/metrics.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewTracingItemListener, fx.As(new(port.ItemListener)), fx.ResultTags(port.ItemListenerGroup))),
	fx.Provide(fx.Annotate(NewTracingRunListener, fx.As(new(port.RunListener)), fx.ResultTags(port.RunListenerGroup))),
)
