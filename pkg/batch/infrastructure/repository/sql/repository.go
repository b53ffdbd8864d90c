// Package sql implements DocumentStore as rows of a relational table through GORM.
// A single-row upsert gives Put the same all-or-nothing replacement the object stores provide.
package sql

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/nameforge/pkg/batch/adapter/database"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
)

// SQLDocumentStore stores documents in durable_documents, keyed by prefix + key.
type SQLDocumentStore struct {
	conn   database.DBConnection
	prefix string
	now    func() time.Time
}

var _ repository.DocumentStore = (*SQLDocumentStore)(nil)

// NewSQLDocumentStore creates a store over conn. The schema must already be migrated.
func NewSQLDocumentStore(conn database.DBConnection, prefix string) *SQLDocumentStore {
	return &SQLDocumentStore{
		conn:   conn,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

func (s *SQLDocumentStore) rowKey(key string) string {
	return repository.JoinKey(s.prefix, key)
}

func (s *SQLDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row DocumentEntity
	err := s.conn.DB(ctx).Where("doc_key = ?", s.rowKey(key)).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return []byte(row.Payload), nil
}

func (s *SQLDocumentStore) Put(ctx context.Context, key string, data []byte) error {
	row := DocumentEntity{
		Key:       s.rowKey(key),
		Payload:   string(data),
		UpdatedAt: s.now().UTC(),
	}
	return s.conn.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLDocumentStore) Delete(ctx context.Context, key string) error {
	return s.conn.DB(ctx).Where("doc_key = ?", s.rowKey(key)).Delete(&DocumentEntity{}).Error
}

// List returns keys under prefix, relative to the store prefix, in lexical order.
// Matching is done in Go to avoid LIKE escaping and collation differences between dialects.
func (s *SQLDocumentStore) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.rowKey(prefix)
	var rowKeys []string
	err := s.conn.DB(ctx).Model(&DocumentEntity{}).
		Where("doc_key >= ?", full).
		Pluck("doc_key", &rowKeys).Error
	if err != nil {
		return nil, err
	}

	base := ""
	if s.prefix != "" {
		base = s.prefix + "/"
	}
	keys := make([]string, 0, len(rowKeys))
	for _, k := range rowKeys {
		if strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, base))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; the connection is owned by the database resolver.
func (s *SQLDocumentStore) Close() error {
	return nil
}
