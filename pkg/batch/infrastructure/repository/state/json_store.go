// Package state implements the pipeline's durable stores (checkpoint, manifest, failure ledger,
// skipped set, records and stage outputs) as JSON documents in a repository.DocumentStore.
// Every write replaces exactly one document, so each store is consistent on its own after any crash.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// JSONStore persists one value of type T as an indented JSON document.
type JSONStore[T any] struct {
	docs   repository.DocumentStore
	key    string
	module string
}

var _ repository.DurableStore[int] = (*JSONStore[int])(nil)

// NewJSONStore creates a DurableStore for key. module names the owner in StorageErrors.
func NewJSONStore[T any](docs repository.DocumentStore, key, module string) *JSONStore[T] {
	return &JSONStore[T]{docs: docs, key: key, module: module}
}

// Load implements repository.DurableStore. A document that exists but does not decode is a StorageError.
func (s *JSONStore[T]) Load(ctx context.Context) (T, bool, error) {
	var value T
	found, err := getJSON(ctx, s.docs, s.key, s.module, &value)
	return value, found, err
}

// Save implements repository.DurableStore.
func (s *JSONStore[T]) Save(ctx context.Context, value T) error {
	return putJSON(ctx, s.docs, s.key, s.module, value)
}

func getJSON(ctx context.Context, docs repository.DocumentStore, key, module string, target interface{}) (bool, error) {
	data, err := docs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, exception.NewStorageError(module, fmt.Sprintf("failed to read '%s'", key), err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, exception.NewStorageError(module, fmt.Sprintf("document '%s' is corrupt", key), err)
	}
	return true, nil
}

func putJSON(ctx context.Context, docs repository.DocumentStore, key, module string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to encode '%s'", key), err)
	}
	if err := docs.Put(ctx, key, data); err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to write '%s'", key), err)
	}
	return nil
}

func deleteDoc(ctx context.Context, docs repository.DocumentStore, key, module string) error {
	if err := docs.Delete(ctx, key); err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to delete '%s'", key), err)
	}
	return nil
}

// idKey makes an item id safe to use as a single path segment.
func idKey(dir, id string) string {
	return dir + "/" + url.PathEscape(id) + ".json"
}
