// Package storage defines the common interface for object storage adapters.
// Durable pipeline state and enriched records are written through it, so the same
// crash-safety contract holds whether the backend is a local directory, GCS or S3.
package storage

import (
	"context"
	"errors"
	"io"

	coreAdapter "github.com/tigerroll/nameforge/pkg/batch/core/adapter"
)

// ErrObjectNotFound is returned (wrapped) by Download when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload stores data under objectName. The object becomes visible atomically:
	// readers observe either the previous object or the complete new one.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens objectName. The caller must close the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes objectName. Missing objects are not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents a named storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}
