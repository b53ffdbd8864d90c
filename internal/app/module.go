// Package app wires the nameforge pipeline with uber fx and implements the CLI commands.
package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nameforge/pkg/batch/component/enrich"
	"github.com/tigerroll/nameforge/pkg/batch/component/source"
	usecase "github.com/tigerroll/nameforge/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	metrics "github.com/tigerroll/nameforge/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository"
	batchlistener "github.com/tigerroll/nameforge/pkg/batch/listener"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// Exit codes of the CLI.
const (
	ExitOK       = 0
	ExitFatal    = 1
	ExitCanceled = 130
)

// StateModule provides configuration, durable state and the work item source.
// It is enough for the operator commands, which never call the Enrichment Client.
var StateModule = fx.Options(
	logger.Module,
	config.Module,
	repository.Module,
	source.Module,
	usecase.Module,
)

// RunModule adds the Enrichment Client, metrics, tracing and the listeners needed by a batch run.
var RunModule = fx.Options(
	StateModule,
	metrics.Module,
	enrich.Module,
	batchlistener.Module,
)

// newApp builds an fx application around cfg. appCtx is injected as `name:"appCtx"`.
func newApp(appCtx context.Context, cfg *config.Config, opts ...fx.Option) *fx.App {
	return fx.New(
		fx.Supply(
			cfg,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		fx.Options(opts...),
	)
}

// runApp starts app, waits for a shutdown signal and stops it. It returns the exit code carried by the signal.
func runApp(app *fx.App) int {
	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return ExitFatal
	}

	sig := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warnf("Application did not stop cleanly: %v", err)
	}
	return sig.ExitCode
}
