// Package adapter holds the contracts shared by every external resource connection.
package adapter

// ResourceConnection represents a named connection to an external resource (storage bucket, database).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "local", "gcs", "sqlite").
	Type() string
	// Name returns the configured connection name (e.g., "state", "records").
	Name() string
}
