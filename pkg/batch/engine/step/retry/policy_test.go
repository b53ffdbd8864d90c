package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	"github.com/tigerroll/nameforge/pkg/batch/engine/step/retry"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

func newPolicy(attempts int) retry.RetryPolicy {
	return retry.NewDefaultRetryPolicyFactory().Create(config.BatchConfig{
		CallAttempts: attempts,
		Backoff: config.BackoffConfig{
			InitialIntervalMs: 100,
			MaxIntervalMs:     500,
			Factor:            2,
		},
		PermanentBackoffMs: 50,
	})
}

func TestBackoffInterval(t *testing.T) {
	p := newPolicy(5)
	transient := exception.NewTransientEnrichmentError("rate limited", nil)
	permanent := exception.NewPermanentEnrichmentError("bad json", nil)

	assert.Equal(t, 100*time.Millisecond, p.GetBackoffInterval(1, transient))
	assert.Equal(t, 200*time.Millisecond, p.GetBackoffInterval(2, transient))
	assert.Equal(t, 400*time.Millisecond, p.GetBackoffInterval(3, transient))
	assert.Equal(t, 500*time.Millisecond, p.GetBackoffInterval(4, transient), "capped at max interval")
	assert.Equal(t, 50*time.Millisecond, p.GetBackoffInterval(3, permanent), "permanent errors use the flat backoff")
}

func TestShouldRetry(t *testing.T) {
	p := newPolicy(3)
	assert.True(t, p.ShouldRetry(exception.NewTransientEnrichmentError("429", nil)))
	assert.True(t, p.ShouldRetry(exception.NewPermanentEnrichmentError("schema", nil)))
	assert.True(t, p.ShouldRetry(errors.New("connection reset by peer")))
	assert.False(t, p.ShouldRetry(exception.NewStorageError("manifest", "write failed", nil)))
	assert.False(t, p.ShouldRetry(context.Canceled))
	assert.False(t, p.ShouldRetry(nil))
}

func TestGetMaxAttemptsAtLeastOne(t *testing.T) {
	assert.Equal(t, 1, newPolicy(0).GetMaxAttempts())
}

func TestWithCap(t *testing.T) {
	t.Run("returns first success", func(t *testing.T) {
		calls := 0
		v, attempts, err := retry.WithCap(context.Background(), newZeroWaitPolicy(3), func(ctx context.Context, attempt int) (string, error) {
			calls++
			if attempt < 2 {
				return "", exception.NewTransientEnrichmentError("rate limited", nil)
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops at the cap", func(t *testing.T) {
		calls := 0
		_, attempts, err := retry.WithCap(context.Background(), newZeroWaitPolicy(3), func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, exception.NewTransientEnrichmentError("timeout", nil)
		})
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry storage errors", func(t *testing.T) {
		calls := 0
		_, attempts, err := retry.WithCap(context.Background(), newZeroWaitPolicy(3), func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, exception.NewStorageError("records", "write failed", nil)
		})
		require.Error(t, err)
		assert.True(t, exception.IsStorageError(err))
		assert.Equal(t, 1, attempts)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops waiting when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		policy := retry.NewDefaultRetryPolicyFactory().Create(config.BatchConfig{
			CallAttempts: 3,
			Backoff:      config.BackoffConfig{InitialIntervalMs: 60000, MaxIntervalMs: 60000, Factor: 1},
		})
		calls := 0
		_, _, err := retry.WithCap(ctx, policy, func(ctx context.Context, attempt int) (int, error) {
			calls++
			cancel()
			return 0, exception.NewTransientEnrichmentError("rate limited", nil)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, retry.SleepContext(context.Background(), 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, retry.SleepContext(ctx, time.Hour), context.Canceled)
}

func newZeroWaitPolicy(attempts int) retry.RetryPolicy {
	return retry.NewDefaultRetryPolicyFactory().Create(config.BatchConfig{CallAttempts: attempts})
}
