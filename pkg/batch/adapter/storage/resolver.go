package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/nameforge/pkg/batch/core/config"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// ConnectionFactory opens a StorageConnection from its decoded configuration.
type ConnectionFactory func(ctx context.Context, cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

var (
	factoryRegistry = make(map[string]ConnectionFactory)
	factoryMutex    sync.RWMutex
)

// RegisterFactory registers a ConnectionFactory for a storage type. Adapters call it from init.
func RegisterFactory(storageType string, factory ConnectionFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	if _, exists := factoryRegistry[storageType]; exists {
		logger.Warnf("Storage factory for type '%s' already registered. Overwriting.", storageType)
	}
	factoryRegistry[storageType] = factory
}

// GetFactory returns the ConnectionFactory registered for storageType.
func GetFactory(storageType string) (ConnectionFactory, error) {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	factory, ok := factoryRegistry[storageType]
	if !ok {
		return nil, fmt.Errorf("no storage adapter registered for type: %s", storageType)
	}
	return factory, nil
}

// DecodeStorageConfig decodes a raw adapter.storage entry using its yaml tags.
func DecodeStorageConfig(raw interface{}) (storageConfig.StorageConfig, error) {
	var cfg storageConfig.StorageConfig
	if err := configbinder.BindProperties(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config: %w", err)
	}
	return cfg, nil
}

// Resolver opens and caches named storage connections declared under adapter.storage.
type Resolver struct {
	cfg         *coreConfig.Config
	connections map[string]StorageConnection
	mu          sync.Mutex
}

// NewResolver creates a Resolver over the application configuration.
func NewResolver(cfg *coreConfig.Config) *Resolver {
	return &Resolver{
		cfg:         cfg,
		connections: make(map[string]StorageConnection),
	}
}

// Resolve returns the connection named name, opening it on first use.
func (r *Resolver) Resolve(ctx context.Context, name string) (StorageConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.connections[name]; ok {
		return conn, nil
	}

	raw, ok := r.cfg.Nameforge.Adapter.Storage[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in adapter.storage configuration", name)
	}
	sc, err := DecodeStorageConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("storage connection '%s': %w", name, err)
	}
	factory, err := GetFactory(sc.Type)
	if err != nil {
		return nil, fmt.Errorf("storage connection '%s': %w", name, err)
	}
	conn, err := factory(ctx, sc, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage connection '%s' (%s): %w", name, sc.Type, err)
	}
	r.connections[name] = conn
	logger.Debugf("Opened storage connection '%s' (%s).", name, sc.Type)
	return conn, nil
}

// CloseAll closes every connection opened by the resolver.
func (r *Resolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close storage connection '%s': %w", name, err))
		}
		delete(r.connections, name)
	}
	return result.ErrorOrNil()
}
