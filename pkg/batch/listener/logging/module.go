package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
)

func newItemListener(cfg *config.Config) *LoggingItemListener {
	return NewLoggingItemListener(cfg.Nameforge.Batch.MaxRetries)
}

// Module registers the logging listeners.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLoggingRunListener, fx.As(new(port.RunListener)), fx.ResultTags(port.RunListenerGroup))),
	fx.Provide(fx.Annotate(newItemListener, fx.As(new(port.ItemListener)), fx.ResultTags(port.ItemListenerGroup))),
	fx.Provide(fx.Annotate(NewLoggingProgressListener, fx.As(new(port.ProgressListener)), fx.ResultTags(port.ProgressListenerGroup))),
)
