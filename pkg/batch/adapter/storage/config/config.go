// Package config holds the settings decoded for each named storage connection.
package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs", "s3").
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to a credentials file (GCS service account key).
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
	Region          string `yaml:"region"`           // Region for S3.
	Endpoint        string `yaml:"endpoint"`         // Custom endpoint for S3-compatible stores.
	UsePathStyle    bool   `yaml:"use_path_style"`   // Path-style addressing for S3-compatible stores.
}
