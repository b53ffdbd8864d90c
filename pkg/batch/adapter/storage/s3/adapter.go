// Package s3 provides an Amazon S3 (and S3-compatible) implementation of the storage adapter interfaces.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this S3 storage provider.
	ProviderType = "s3"
)

func init() {
	storageAdapter.RegisterFactory(ProviderType, NewS3Adapter)
}

// s3Adapter implements storage.StorageConnection on top of an S3 bucket.
// PutObject replaces an object atomically, so Upload writes the key directly.
type s3Adapter struct {
	client *s3.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter loads the default AWS configuration chain and applies region, endpoint and
// path-style overrides from cfg.
func NewS3Adapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("s3 storage adapter '%s': bucket_name must be specified", name)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 storage adapter '%s': failed to load AWS config: %w", name, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	logger.Debugf("S3 storage adapter '%s' opened for bucket '%s'.", name, cfg.BucketName)
	return &s3Adapter{client: client, cfg: cfg, name: name}, nil
}

func (a *s3Adapter) Close() error { return nil }
func (a *s3Adapter) Type() string { return ProviderType }
func (a *s3Adapter) Name() string { return a.name }

func (a *s3Adapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// Upload buffers data and puts it as a single object.
func (a *s3Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) (err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "upload", ProviderType, bucket, objectName)
	defer func() { storageAdapter.EndSpan(span, err) }()

	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read upload body for %s/%s: %w", bucket, objectName, err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectName),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload S3 object %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// Download returns the object body.
func (a *s3Adapter) Download(ctx context.Context, bucket, objectName string) (rc io.ReadCloser, err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "download", ProviderType, bucket, objectName)
	defer func() {
		if errors.Is(err, storageAdapter.ErrObjectNotFound) {
			storageAdapter.EndSpan(span, nil)
			return
		}
		storageAdapter.EndSpan(span, err)
	}()

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("download %s/%s: %w", bucket, objectName, err)
	}
	return out.Body, nil
}

// ListObjects pages through keys under prefix. S3 returns keys in lexical order.
func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) (err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "list", ProviderType, bucket, prefix)
	defer func() { storageAdapter.EndSpan(span, err) }()

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if err := fn(aws.ToString(obj.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteObject deletes the object. S3 deletes are already idempotent.
func (a *s3Adapter) DeleteObject(ctx context.Context, bucket, objectName string) (err error) {
	bucket = a.bucket(bucket)
	ctx, span := storageAdapter.StartSpan(ctx, "delete", ProviderType, bucket, objectName)
	defer func() { storageAdapter.EndSpan(span, err) }()

	_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, objectName, err)
	}
	return nil
}
