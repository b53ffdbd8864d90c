// Package repository selects and wires the durable state backend.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	gormAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm"
	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	migration "github.com/tigerroll/nameforge/pkg/batch/component/tasklet/migration"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	domain "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/document"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/inmemory"
	sqlStore "github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/state"
	exception "github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// State backends selectable with state.backend.
const (
	BackendDocument = "document"
	BackendDatabase = "database"
	BackendMemory   = "memory"
)

// NewDocumentStore opens the DocumentStore selected by state.backend. The database backend
// migrates the durable_documents table first.
func NewDocumentStore(ctx context.Context, cfg *config.Config, storage *storageAdapter.Resolver, db *gormAdapter.Resolver) (domain.DocumentStore, error) {
	sc := cfg.Nameforge.State
	switch sc.Backend {
	case BackendDocument, "":
		conn, err := storage.Resolve(ctx, sc.StorageRef)
		if err != nil {
			return nil, exception.NewStorageError("repository", "failed to open state storage", err)
		}
		logger.Infof("Pipeline state: %s storage connection '%s' (prefix '%s').", conn.Type(), conn.Name(), sc.Prefix)
		return document.NewStorageDocumentStore(conn, sc.Prefix), nil

	case BackendDatabase:
		conn, err := db.Resolve(ctx, sc.DatabaseRef)
		if err != nil {
			return nil, exception.NewStorageError("repository", "failed to open state database", err)
		}
		if err := migration.ApplySchema(ctx, conn); err != nil {
			return nil, exception.NewStorageError("repository", "failed to migrate state database", err)
		}
		// Migration closes the connection it used.
		conn, err = db.Resolve(ctx, sc.DatabaseRef)
		if err != nil {
			return nil, exception.NewStorageError("repository", "failed to reopen state database", err)
		}
		logger.Infof("Pipeline state: %s database '%s' (prefix '%s').", conn.Type(), conn.Name(), sc.Prefix)
		return sqlStore.NewSQLDocumentStore(conn, sc.Prefix), nil

	case BackendMemory:
		logger.Warnf("Pipeline state: in-memory backend, nothing survives this process.")
		return inmemory.NewInMemoryDocumentStore(), nil

	default:
		return nil, exception.NewBatchError("repository", fmt.Sprintf("unknown state backend '%s'", sc.Backend), nil, false, false)
	}
}

// NewStoresFromConfig creates the state stores over docs.
func NewStoresFromConfig(cfg *config.Config, docs domain.DocumentStore) *state.Stores {
	return state.NewStores(docs, state.Options{
		MaxRetries:      cfg.Nameforge.Batch.MaxRetries,
		ManifestVersion: cfg.Nameforge.Enrichment.MergeVersion,
	})
}

func newDocumentStore(lc fx.Lifecycle, cfg *config.Config, storage *storageAdapter.Resolver, db *gormAdapter.Resolver) (domain.DocumentStore, error) {
	docs, err := NewDocumentStore(context.Background(), cfg, storage, db)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return docs.Close()
		},
	})
	return docs, nil
}

func closeResolvers(lc fx.Lifecycle, storage *storageAdapter.Resolver, db *gormAdapter.Resolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := storage.CloseAll(); err != nil {
				logger.Warnf("Failed to close storage connections: %v", err)
			}
			if err := db.CloseAll(); err != nil {
				logger.Warnf("Failed to close database connections: %v", err)
			}
			return nil
		},
	})
}

// Module provides the connection resolvers, the DocumentStore and the state stores.
var Module = fx.Options(
	fx.Provide(storageAdapter.NewResolver),
	fx.Provide(gormAdapter.NewResolver),
	fx.Provide(newDocumentStore),
	fx.Provide(NewStoresFromConfig),
	fx.Invoke(closeResolvers),
)
