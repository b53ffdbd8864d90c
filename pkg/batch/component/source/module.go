package source

import (
	"context"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	exception "github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// NewWorkItemSource returns a StorageSource when source.storage_ref is set, otherwise a FileSource.
func NewWorkItemSource(cfg *config.Config, storage *storageAdapter.Resolver) (port.WorkItemSource, error) {
	sc := cfg.Nameforge.Source
	if sc.StorageRef == "" {
		return NewFileSource(sc.Path, sc.TopN), nil
	}
	conn, err := storage.Resolve(context.Background(), sc.StorageRef)
	if err != nil {
		return nil, exception.NewDataSourceError("failed to open source storage", err)
	}
	return NewStorageSource(conn, sc.Path, sc.TopN), nil
}

// Module provides the WorkItemSource.
var Module = fx.Options(
	fx.Provide(NewWorkItemSource),
)
