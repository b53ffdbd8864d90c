// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this GCS storage provider.
	ProviderType = "gcs"
)

func init() {
	storageAdapter.RegisterFactory(ProviderType, NewGCSAdapter)
}

// gcsAdapter implements storage.StorageConnection on top of a GCS bucket.
// GCS object writes are atomic on Close, so Upload needs no staging object.
type gcsAdapter struct {
	client *storage.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter opens a GCS client using Application Default Credentials,
// or the service account key in credentials_file when set.
func NewGCSAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': bucket_name must be specified", name)
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	logger.Debugf("GCS storage adapter '%s' opened for bucket '%s'.", name, cfg.BucketName)
	return &gcsAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *gcsAdapter) Close() error { return a.client.Close() }
func (a *gcsAdapter) Type() string { return ProviderType }
func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// Upload streams data to the object. The new generation becomes visible only once the writer closes cleanly.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) (err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "upload", ProviderType, bucket, objectName)
	defer func() { storageAdapter.EndSpan(span, err) }()

	writer := a.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err = io.Copy(writer, data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to upload object %s/%s: %w", bucket, objectName, err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// Download opens a reader for the object.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (rc io.ReadCloser, err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "download", ProviderType, bucket, objectName)
	defer func() {
		if errors.Is(err, storageAdapter.ErrObjectNotFound) {
			storageAdapter.EndSpan(span, nil)
			return
		}
		storageAdapter.EndSpan(span, err)
	}()

	reader, err := a.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("download %s/%s: %w", bucket, objectName, err)
	}
	return reader, nil
}

// ListObjects iterates object names under prefix. GCS returns names in lexical order.
func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) (err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "list", ProviderType, bucket, prefix)
	defer func() { storageAdapter.EndSpan(span, err) }()

	it := a.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// DeleteObject deletes the object. Returns nil if the object doesn't exist.
func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) (err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "delete", ProviderType, bucket, objectName)
	defer func() { storageAdapter.EndSpan(span, err) }()

	if err = a.client.Bucket(bucket).Object(objectName).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, objectName, err)
	}
	return nil
}
