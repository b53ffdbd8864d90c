// Package retry holds the one retry utility of the pipeline: a RetryPolicy and WithCap.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// RetryPolicy is an interface that defines retry logic.
// This interface provides methods to determine if a specific error is retryable,
// and to determine the backoff interval between retries.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the wait after the given failed attempt (starting from 1).
	GetBackoffInterval(attempt int, err error) time.Duration
	// GetMaxAttempts returns the maximum number of attempts, including the first.
	GetMaxAttempts() int
}

// DefaultRetryPolicyFactory is a factory for creating RetryPolicy.
type DefaultRetryPolicyFactory struct{}

// NewDefaultRetryPolicyFactory creates a new DefaultRetryPolicyFactory.
func NewDefaultRetryPolicyFactory() *DefaultRetryPolicyFactory {
	return &DefaultRetryPolicyFactory{}
}

// Create creates a RetryPolicy from the batch configuration.
func (f *DefaultRetryPolicyFactory) Create(cfg config.BatchConfig) RetryPolicy {
	return &backoffRetryPolicy{
		maxAttempts:      cfg.CallAttempts,
		initialInterval:  time.Duration(cfg.Backoff.InitialIntervalMs) * time.Millisecond,
		maxInterval:      time.Duration(cfg.Backoff.MaxIntervalMs) * time.Millisecond,
		factor:           cfg.Backoff.Factor,
		permanentBackoff: time.Duration(cfg.PermanentBackoffMs) * time.Millisecond,
	}
}

// backoffRetryPolicy waits exponentially after transient failures and a flat interval after
// permanent ones. A longer wait is unlikely to fix a deterministic parse issue.
type backoffRetryPolicy struct {
	maxAttempts      int
	initialInterval  time.Duration
	maxInterval      time.Duration
	factor           float64
	permanentBackoff time.Duration
}

func (p *backoffRetryPolicy) GetMaxAttempts() int {
	if p.maxAttempts < 1 {
		return 1
	}
	return p.maxAttempts
}

// ShouldRetry retries every enrichment failure. Storage failures, cancellation and run deadlines are not retried.
func (p *backoffRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if exception.IsStorageError(err) || errors.Is(err, exception.ErrRunDeadline) || errors.Is(err, context.Canceled) {
		return false
	}
	if exception.IsPermanentEnrichmentError(err) {
		return true
	}
	var be *exception.BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	return exception.IsTemporary(err)
}

// GetBackoffInterval returns initial*factor^(attempt-1) capped at maxInterval for transient errors,
// and the flat permanent backoff for permanent ones.
func (p *backoffRetryPolicy) GetBackoffInterval(attempt int, err error) time.Duration {
	if exception.IsPermanentEnrichmentError(err) {
		return p.permanentBackoff
	}
	if attempt < 1 {
		attempt = 1
	}
	factor := p.factor
	if factor < 1 {
		factor = 1
	}
	interval := float64(p.initialInterval) * math.Pow(factor, float64(attempt-1))
	if p.maxInterval > 0 && interval > float64(p.maxInterval) {
		return p.maxInterval
	}
	return time.Duration(interval)
}

// Verify interfaces
var _ RetryPolicy = (*backoffRetryPolicy)(nil)

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithCap runs op until it succeeds, the policy declines the error, or GetMaxAttempts attempts were made.
// It returns the last error and the number of attempts made.
func WithCap[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	maxAttempts := policy.GetMaxAttempts()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err
		if attempt == maxAttempts || !policy.ShouldRetry(err) {
			return zero, attempt, err
		}
		if sleepErr := SleepContext(ctx, policy.GetBackoffInterval(attempt, err)); sleepErr != nil {
			return zero, attempt, lastErr
		}
	}
	return zero, maxAttempts, lastErr
}
