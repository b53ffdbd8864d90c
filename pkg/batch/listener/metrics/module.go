package metrics

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
)

// Module registers the metrics listeners. The MetricRecorder comes from infrastructure/metrics.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewMetricsItemListener, fx.As(new(port.ItemListener)), fx.ResultTags(port.ItemListenerGroup))),
	fx.Provide(fx.Annotate(NewMetricsRunListener, fx.As(new(port.RunListener)), fx.ResultTags(port.RunListenerGroup))),
)
