package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/nameforge/pkg/batch/listener/logging"
	"github.com/tigerroll/nameforge/pkg/batch/listener/metrics"
	"github.com/tigerroll/nameforge/pkg/batch/listener/notification"
	"github.com/tigerroll/nameforge/pkg/batch/listener/tracing"
)

// Module aggregates all listener modules of the pipeline.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	tracing.Module,
	notification.Module,
)
