package app

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/fx"

	"github.com/tigerroll/nameforge/pkg/batch/component/report"
	usecase "github.com/tigerroll/nameforge/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/serialization"
)

// ConfigOptions locate the configuration of one CLI invocation.
type ConfigOptions struct {
	EnvFile    string
	ConfigPath string
	Embedded   config.EmbeddedConfig
	// BatchOverrides are applied after loading, before validation.
	BatchOverrides func(*config.BatchConfig)
}

// LoadConfig loads and validates the configuration. ConfigPath, when set, replaces the embedded YAML.
func LoadConfig(opts ConfigOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadConfigFile(opts.EnvFile, opts.ConfigPath)
	} else {
		cfg, err = config.LoadConfig(opts.EnvFile, opts.Embedded)
	}
	if err != nil {
		return nil, err
	}
	if opts.BatchOverrides != nil {
		opts.BatchOverrides(&cfg.Nameforge.Batch)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Nameforge.System.Logging.Level)
	if dump, err := serialization.MarshalMasked(cfg); err == nil {
		logger.Debugf("Effective configuration: %s", dump)
	}
	return cfg, nil
}

// RunRequest describes one invocation of the run command.
type RunRequest struct {
	// BatchSize is the number of items to take. 0 or less takes all remaining items.
	BatchSize int
	Out       io.Writer
	NoColor   bool
}

type runOutcome struct {
	done     chan struct{}
	summary  *model.RunSummary
	exitCode int
}

// RunBatch executes one batch run and returns the process exit code. A run that completes,
// even with per-item failures or after reaching max duration, exits 0.
func RunBatch(appCtx context.Context, cfg *config.Config, req RunRequest) int {
	outcome := &runOutcome{done: make(chan struct{}), exitCode: ExitFatal}

	app := newApp(appCtx, cfg,
		RunModule,
		fx.Supply(req, outcome),
		fx.Invoke(fx.Annotate(startBatchRun, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // launcher usecase.BatchLauncher
			"",              // req RunRequest
			"",              // outcome *runOutcome
			`name:"appCtx"`, // appCtx context.Context
		))),
	)
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to build application: %v", err)
		return ExitFatal
	}

	code := runApp(app)
	select {
	case <-outcome.done:
		return outcome.exitCode
	default:
		// Start failed or the app was stopped before the run goroutine began.
		return code
	}
}

// startBatchRun is invoked by Fx to launch the Batch Driver once the application has started.
func startBatchRun(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	launcher usecase.BatchLauncher,
	req RunRequest,
	outcome *runOutcome,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go executeRun(appCtx, launcher, req, outcome, shutdowner)
			return nil
		},
		// The driver stops at the next item boundary once appCtx is canceled.
		OnStop: func(ctx context.Context) error {
			select {
			case <-outcome.done:
			case <-ctx.Done():
				logger.Warnf("Batch run did not finish before shutdown timeout.")
			}
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func executeRun(appCtx context.Context, launcher usecase.BatchLauncher, req RunRequest, outcome *runOutcome, shutdowner fx.Shutdowner) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in batch run: %v", r)
			outcome.exitCode = ExitFatal
		}
		close(outcome.done)
		if err := shutdowner.Shutdown(fx.ExitCode(outcome.exitCode)); err != nil {
			logger.Errorf("Failed to shutdown application: %v", err)
		}
	}()

	summary, err := launcher.Run(appCtx, req.BatchSize)
	outcome.summary = summary
	if summary != nil && req.Out != nil {
		if rerr := report.RenderSummary(req.Out, summary, report.RenderOptions{NoColor: req.NoColor}); rerr != nil {
			logger.Warnf("Failed to print run summary: %v", rerr)
		}
	}
	outcome.exitCode = exitCodeFor(summary, err)
}

// exitCodeFor maps the result of a run onto the process exit code.
func exitCodeFor(summary *model.RunSummary, err error) int {
	if err != nil {
		logger.Errorf("Batch run failed: %s", exception.ExtractErrorMessage(err))
		return ExitFatal
	}
	if summary != nil && summary.StopReason == usecase.StopReasonCanceled {
		return ExitCanceled
	}
	return ExitOK
}

// ParseBatchSize parses the run argument: a positive integer or "all".
func ParseBatchSize(arg string, defaultSize int) (int, error) {
	if arg == "" {
		return defaultSize, nil
	}
	if arg == "all" {
		return 0, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("batch size must be a positive integer or \"all\", got %q", arg)
	}
	return n, nil
}
