// Package config provides the configuration model, loader and fx wiring for the pipeline.
package config

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Nameforge.System.Logging
}

// NewBatchConfigProvider extracts *BatchConfig from *Config.
func NewBatchConfigProvider(cfg *Config) *BatchConfig {
	return &cfg.Nameforge.Batch
}

// configureLogging applies the logging configuration and closes the run log on stop.
func configureLogging(lc fx.Lifecycle, logCfg *LoggingConfig) {
	cleanup, err := logger.Configure(logCfg.Level, logCfg.File)
	if err != nil {
		logger.Warnf("Run log unavailable, logging to console only: %v", err)
	}
	logger.Debugf("Log level set to: %s", logCfg.Level)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return cleanup()
		},
	})
}

// Module provides configuration-derived components to Fx. *Config itself is supplied by the caller.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewBatchConfigProvider),
	fx.Invoke(configureLogging),
)
