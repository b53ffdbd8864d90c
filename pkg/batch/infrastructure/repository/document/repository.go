// Package document implements DocumentStore on top of a storage connection (local disk, GCS, S3).
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
)

const contentTypeJSON = "application/json"

// StorageDocumentStore maps document keys to objects under an optional prefix.
// Atomic replacement comes from the connection's Upload contract.
type StorageDocumentStore struct {
	conn   storageAdapter.StorageConnection
	prefix string
}

var _ repository.DocumentStore = (*StorageDocumentStore)(nil)

// NewStorageDocumentStore creates a store writing into conn's default bucket.
func NewStorageDocumentStore(conn storageAdapter.StorageConnection, prefix string) *StorageDocumentStore {
	return &StorageDocumentStore{conn: conn, prefix: strings.Trim(prefix, "/")}
}

func (s *StorageDocumentStore) objectName(key string) string {
	return repository.JoinKey(s.prefix, key)
}

func (s *StorageDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.conn.Download(ctx, "", s.objectName(key))
	if err != nil {
		if errors.Is(err, storageAdapter.ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read document '%s': %w", key, err)
	}
	return data, nil
}

func (s *StorageDocumentStore) Put(ctx context.Context, key string, data []byte) error {
	return s.conn.Upload(ctx, "", s.objectName(key), bytes.NewReader(data), contentTypeJSON)
}

func (s *StorageDocumentStore) Delete(ctx context.Context, key string) error {
	return s.conn.DeleteObject(ctx, "", s.objectName(key))
}

// List returns keys relative to the store prefix.
func (s *StorageDocumentStore) List(ctx context.Context, prefix string) ([]string, error) {
	base := ""
	if s.prefix != "" {
		base = s.prefix + "/"
	}
	var keys []string
	err := s.conn.ListObjects(ctx, "", base+prefix, func(objectName string) error {
		keys = append(keys, strings.TrimPrefix(objectName, base))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close is a no-op; the connection is owned by the storage resolver.
func (s *StorageDocumentStore) Close() error {
	return nil
}
