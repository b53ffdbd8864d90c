package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("disk full")
	be := exception.NewBatchError("state", "failed to save checkpoint", originalErr, false, false)

	assert.Equal(t, "state", be.Module)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.False(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Equal(t, "[state] failed to save checkpoint: disk full", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestTaxonomyConstructors(t *testing.T) {
	ds := exception.NewDataSourceError("names file missing", errors.New("no such file"))
	assert.True(t, exception.IsDataSourceError(ds))
	assert.True(t, exception.IsFatal(ds))
	assert.True(t, errors.Is(ds, exception.ErrDataSource))

	st := exception.NewStorageError("state", "save manifest", errors.New("EIO"))
	assert.True(t, exception.IsStorageError(st))
	assert.True(t, exception.IsFatal(st))

	tr := exception.NewTransientEnrichmentError("rate limited", nil)
	assert.True(t, exception.IsTemporary(tr))
	assert.False(t, exception.IsFatal(tr))
	assert.False(t, exception.IsPermanentEnrichmentError(tr))

	pe := exception.NewPermanentEnrichmentError("missing field origin", nil)
	assert.False(t, exception.IsTemporary(pe))
	assert.True(t, exception.IsPermanentEnrichmentError(pe))
	assert.False(t, exception.IsFatal(pe))
}

func TestIsTemporary(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"net timeout", timeoutErr{}, true},
		{"http 429", errors.New("API returned unexpected status code: 429"), true},
		{"rate limit text", errors.New("Rate limit reached for gpt-4"), true},
		{"overloaded", errors.New("anthropic: overloaded_error"), true},
		{"plain", errors.New("invalid json"), false},
		{"batch error flag wins", exception.NewBatchError("x", "429", nil, true, false), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exception.IsTemporary(tc.err))
		})
	}
}

func TestClassifyEnrichmentError(t *testing.T) {
	assert.Nil(t, exception.ClassifyEnrichmentError(nil))

	be := exception.ClassifyEnrichmentError(errors.New("status 503 service unavailable"))
	assert.True(t, errors.Is(be, exception.ErrEnrichmentTransient))

	be = exception.ClassifyEnrichmentError(errors.New("something odd"))
	assert.True(t, errors.Is(be, exception.ErrEnrichmentTransient), "unknown errors are transient")

	perm := exception.NewPermanentEnrichmentError("bad json", nil)
	assert.Same(t, perm, exception.ClassifyEnrichmentError(fmt.Errorf("stage v10: %w", perm)))

	skippable := exception.NewBatchError("enrich", "schema mismatch", nil, true, false)
	be = exception.ClassifyEnrichmentError(skippable)
	assert.True(t, exception.IsPermanentEnrichmentError(be))

	stored := exception.NewStorageError("stages", "save stage output", errors.New("disk full"))
	be = exception.ClassifyEnrichmentError(fmt.Errorf("stage culture: %w", stored))
	assert.Same(t, stored, be)
	assert.True(t, exception.IsStorageError(be))
	assert.False(t, be.IsRetryable())
}

func TestIsFatal(t *testing.T) {
	assert.False(t, exception.IsFatal(nil))
	assert.False(t, exception.IsFatal(errors.New("permission denied")), "errors outside the taxonomy are not fatal")
	assert.True(t, exception.IsFatal(fmt.Errorf("wrapped: %w", exception.NewStorageError("state", "save", nil))))
	assert.False(t, exception.IsFatal(exception.NewPermanentEnrichmentError("bad", nil)))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))

	err := exception.NewTransientEnrichmentError("enrichment call failed transiently", errors.New("429 Too Many Requests"))
	assert.Equal(t, "enrichment call failed transiently: 429 Too Many Requests", exception.ExtractErrorMessage(err))

	assert.Equal(t, "missing name", exception.ExtractErrorMessage(exception.NewPermanentEnrichmentError("missing name", nil)))
}
