// Package repository defines the persistence contracts of the pipeline.
package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by DocumentStore.Get when no document exists under the key.
var ErrNotFound = errors.New("document not found")

// DocumentStore is a flat key/value store of small documents.
// Put must replace a document atomically: a reader sees either the previous or the new content,
// never a partial write, even if the process dies mid-call.
type DocumentStore interface {
	// Get returns the document stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, replacing any previous document.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Close releases the store's resources.
	Close() error
}

// DurableStore persists a single value of type T.
type DurableStore[T any] interface {
	// Load returns the stored value and true, or the zero value and false if nothing was stored yet.
	Load(ctx context.Context) (T, bool, error)
	// Save atomically replaces the stored value.
	Save(ctx context.Context, value T) error
}
