package usecase

import (
	"context"
	"time"

	"go.uber.org/fx"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	metrics "github.com/tigerroll/nameforge/pkg/batch/core/metrics"
	retry "github.com/tigerroll/nameforge/pkg/batch/engine/step/retry"
	skip "github.com/tigerroll/nameforge/pkg/batch/engine/step/skip"
	state "github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/state"
	exception "github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// RunContext carries everything one Batch Driver needs. There is no ambient state: every
// collaborator is set here, so the driver can be tested against in-memory stores.
type RunContext struct {
	Stores   *state.Stores
	Source   port.WorkItemSource
	Enricher port.Enricher

	RetryPolicy       retry.RetryPolicy
	SkipPolicyFactory *skip.DefaultSkipPolicyFactory
	Tracer            metrics.Tracer

	RunListeners      []port.RunListener
	ItemListeners     []port.ItemListener
	ProgressListeners []port.ProgressListener

	MaxRetries    int
	PacingDelay   time.Duration
	CallTimeout   time.Duration
	MaxDuration   time.Duration
	ProgressEvery int
	RetryPass     bool

	// Now and Sleep default to time.Now and retry.SleepContext.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRunContext builds a RunContext from the batch configuration with no listeners and a no-op tracer.
func NewRunContext(cfg config.BatchConfig, stores *state.Stores, source port.WorkItemSource, enricher port.Enricher) (*RunContext, error) {
	maxDuration, err := cfg.MaxRunDuration()
	if err != nil {
		return nil, exception.NewBatchError("driver", "invalid batch.max_duration", err, false, false)
	}
	return &RunContext{
		Stores:            stores,
		Source:            source,
		Enricher:          enricher,
		RetryPolicy:       retry.NewDefaultRetryPolicyFactory().Create(cfg),
		SkipPolicyFactory: skip.NewDefaultSkipPolicyFactory(),
		Tracer:            metrics.NewNoOpTracer(),
		MaxRetries:        cfg.MaxRetries,
		PacingDelay:       cfg.PacingDelay(),
		CallTimeout:       cfg.CallTimeout(),
		MaxDuration:       maxDuration,
		ProgressEvery:     cfg.ProgressEvery,
		RetryPass:         cfg.RetryPassEnabled(),
		Now:               time.Now,
		Sleep:             retry.SleepContext,
	}, nil
}

// RunContextParams are the fx dependencies of a RunContext.
type RunContextParams struct {
	fx.In

	Config   *config.Config
	Stores   *state.Stores
	Source   port.WorkItemSource
	Enricher port.Enricher
	Tracer   metrics.Tracer

	RunListeners      []port.RunListener      `group:"run_listeners"`
	ItemListeners     []port.ItemListener     `group:"item_listeners"`
	ProgressListeners []port.ProgressListener `group:"progress_listeners"`
}

// NewRunContextFromParams builds the RunContext used by the application.
func NewRunContextFromParams(p RunContextParams) (*RunContext, error) {
	rc, err := NewRunContext(p.Config.Nameforge.Batch, p.Stores, p.Source, p.Enricher)
	if err != nil {
		return nil, err
	}
	rc.Tracer = p.Tracer
	rc.RunListeners = p.RunListeners
	rc.ItemListeners = p.ItemListeners
	rc.ProgressListeners = p.ProgressListeners
	return rc, nil
}

func (rc *RunContext) now() time.Time {
	if rc.Now == nil {
		return time.Now()
	}
	return rc.Now()
}

func (rc *RunContext) sleep(ctx context.Context, d time.Duration) error {
	if rc.Sleep == nil {
		return retry.SleepContext(ctx, d)
	}
	return rc.Sleep(ctx, d)
}

func (rc *RunContext) tracer() metrics.Tracer {
	if rc.Tracer == nil {
		return metrics.NewNoOpTracer()
	}
	return rc.Tracer
}
