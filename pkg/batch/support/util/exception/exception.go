// Package exception provides the error types and classification helpers used by the pipeline.
// Every error that crosses a component boundary is a BatchError carrying the module it came from
// and whether the failure may be retried (transient) or only recorded and eventually skipped
// (permanent). Errors that are neither are fatal to the run.
package exception

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"strings"
)

// BatchError is the error type produced by pipeline components.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "source", "enrich", "state", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is the stack at construction time (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError.
// The flag order (isSkippable, isRetryable) follows the rest of the framework.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError determines if err (or anything it wraps) is a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// Sentinel errors for the pipeline's error taxonomy. They are joined into the wrapped error of the
// corresponding constructors so callers can test with errors.Is.
var (
	// ErrDataSource means the work item source could not be loaded at all.
	ErrDataSource = errors.New("DataSourceError")
	// ErrStorage means durable state could not be read or written.
	ErrStorage = errors.New("StorageError")
	// ErrEnrichmentTransient marks a rate-limit, timeout or network failure of the enrichment call.
	ErrEnrichmentTransient = errors.New("EnrichmentTransientError")
	// ErrEnrichmentPermanent marks a deterministic failure such as a response that fails validation.
	ErrEnrichmentPermanent = errors.New("EnrichmentPermanentError")
	// ErrRunDeadline is returned when the configured maximum run duration elapses.
	ErrRunDeadline = errors.New("RunDeadlineExceeded")
)

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

// NewDataSourceError creates a fatal error for a missing or malformed work item source.
func NewDataSourceError(message string, cause error) *BatchError {
	return NewBatchError("source", message, join(ErrDataSource, cause), false, false)
}

// NewStorageError creates a fatal error for a failed durable read or write.
func NewStorageError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrStorage, cause), false, false)
}

// NewTransientEnrichmentError creates a retryable enrichment error.
func NewTransientEnrichmentError(message string, cause error) *BatchError {
	return NewBatchError("enrich", message, join(ErrEnrichmentTransient, cause), true, true)
}

// NewPermanentEnrichmentError creates a non-retryable (but skippable) enrichment error.
func NewPermanentEnrichmentError(message string, cause error) *BatchError {
	return NewBatchError("enrich", message, join(ErrEnrichmentPermanent, cause), true, false)
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	return err != nil && errors.Is(err, ErrStorage)
}

// IsDataSourceError reports whether err is (or wraps) a DataSourceError.
func IsDataSourceError(err error) bool {
	return err != nil && errors.Is(err, ErrDataSource)
}

// IsPermanentEnrichmentError reports whether err was classified as a permanent enrichment failure.
func IsPermanentEnrichmentError(err error) bool {
	return err != nil && errors.Is(err, ErrEnrichmentPermanent)
}

// transientMarkers are message fragments that indicate a failure worth waiting out.
var transientMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"overloaded",
	"502",
	"503",
	"504",
	"EOF",
}

// IsTemporary determines if an error is temporary. BatchError flags take precedence; otherwise
// context deadlines, net timeouts and known rate-limit or network message markers count as temporary.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(errStr, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err carries a BatchError that is neither retryable nor skippable.
// Errors outside the taxonomy are not fatal by themselves.
func IsFatal(err error) bool {
	var be *BatchError
	if err == nil || !errors.As(err, &be) {
		return false
	}
	return !be.IsRetryable() && !be.IsSkippable()
}

// ClassifyEnrichmentError converts an arbitrary enrichment client error into a transient or
// permanent enrichment BatchError. Errors that are already classified are returned as is, and so
// are fatal ones such as a StorageError raised by a stage store.
// Errors of unknown class are treated as transient so they keep their retry budget.
func ClassifyEnrichmentError(err error) *BatchError {
	if err == nil {
		return nil
	}
	if IsFatal(err) {
		var be *BatchError
		errors.As(err, &be)
		return be
	}
	if errors.Is(err, ErrEnrichmentTransient) || errors.Is(err, ErrEnrichmentPermanent) {
		var be *BatchError
		if errors.As(err, &be) {
			return be
		}
	}
	if errors.Is(err, context.Canceled) {
		return NewTransientEnrichmentError("enrichment call canceled", err)
	}
	if IsTemporary(err) {
		return NewTransientEnrichmentError("enrichment call failed transiently", err)
	}
	var be *BatchError
	if errors.As(err, &be) && !be.IsRetryable() && be.IsSkippable() {
		return NewPermanentEnrichmentError(be.Message, err)
	}
	return NewTransientEnrichmentError("enrichment call failed", err)
}

// ExtractErrorMessage returns a human-readable message for err, preferring the innermost
// BatchError message plus the root cause so ledger entries stay short but informative.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		if be.OriginalErr != nil {
			if root := rootCause(be.OriginalErr); root != "" && root != be.Message {
				return be.Message + ": " + root
			}
		}
		return be.Message
	}
	return err.Error()
}

// rootCause returns the message of the deepest non-sentinel error in the chain.
func rootCause(err error) string {
	msg := ""
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		switch e {
		case ErrDataSource, ErrStorage, ErrEnrichmentTransient, ErrEnrichmentPermanent:
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if be, ok := e.(*BatchError); ok {
			msg = be.Message
			walk(be.OriginalErr)
			return
		}
		msg = e.Error()
	}
	walk(err)
	return msg
}
