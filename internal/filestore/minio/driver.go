// Package minio provides a MinIO implementation of filestore.Store.
//
// Usage:
//
//	cfg := filestore.DefaultConfig()
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	res, err := store.ListObjects(ctx, filestore.ListOptions{Prefix: "notes/"})
package minio

import (
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
)

// Driver is a MinIO implementation of filestore.Store bound to one bucket.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO using the provided Config and returns a Driver.
// It makes the bucket when cfg.MinIO.CreateBucket is set, then calls Ping
// to validate the connection before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	mc := cfg.MinIO
	client, err := miniogo.New(mc.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
		Secure: mc.UseSSL,
		Region: mc.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, bucket: mc.Bucket}

	if mc.CreateBucket {
		if err := d.ensureBucket(ctx, mc.Region); err != nil {
			return nil, err
		}
	}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Driver) ensureBucket(ctx context.Context, region string) error {
	exists, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "failed to check bucket")
	}
	if exists {
		return nil
	}
	if err := d.client.MakeBucket(ctx, d.bucket, miniogo.MakeBucketOptions{Region: region}); err != nil {
		return mapError(err, "failed to create bucket")
	}
	return nil
}

// --- filestore.Store implementation ---

// Ping verifies the bucket is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	exists, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !exists {
		return errs.New(errs.ErrKindNotFound, "bucket does not exist: "+d.bucket)
	}
	return nil
}

// Close is a no-op: the MinIO client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// ListObjects returns objects whose key starts with opts.Prefix.
// It reads one entry past Limit to detect truncation.
func (d *Driver) ListObjects(ctx context.Context, opts filestore.ListOptions) (*filestore.ListResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // stops the SDK's listing goroutine when we break early

	listOpts := miniogo.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: true,
	}

	res := &filestore.ListResult{}
	for obj := range d.client.ListObjects(ctx, d.bucket, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}
		if opts.Limit > 0 && len(res.Objects) >= opts.Limit {
			res.Truncated = true
			break
		}

		res.Objects = append(res.Objects, filestore.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}

	return res, nil
}

// HeadObject returns metadata for the object at key without downloading
// its content.
func (d *Driver) HeadObject(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, d.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	return toInfo(key, stat), nil
}

// GetObject opens a streaming handle to the object at key.
// The caller MUST call Object.Close() after reading.
func (d *Driver) GetObject(ctx context.Context, key string) (filestore.Object, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	// GetObject is lazy; Stat forces the request and surfaces NoSuchKey.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapError(err, "failed to stat object after get")
	}

	return filestore.NewObject(obj, toInfo(key, stat)), nil
}

// PutObject uploads size bytes from r under key.
func (d *Driver) PutObject(ctx context.Context, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	up, err := d.client.PutObject(ctx, d.bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.CustomMetadata,
	})
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}

	return &filestore.ObjectInfo{
		Key:            key,
		Size:           up.Size,
		ContentType:    opts.ContentType,
		ETag:           up.ETag,
		LastModified:   up.LastModified,
		CustomMetadata: filestore.CloneMetadata(opts.CustomMetadata),
	}, nil
}

// DeleteObject removes the object at key. S3 semantics make this a no-op
// for missing keys.
func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	err := d.client.RemoveObject(ctx, d.bucket, key, miniogo.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	mapped := mapError(err, "failed to delete object")
	if errs.IsNotFound(mapped) {
		return nil
	}
	return mapped
}

func toInfo(key string, stat miniogo.ObjectInfo) *filestore.ObjectInfo {
	return &filestore.ObjectInfo{
		Key:            key,
		Size:           stat.Size,
		ContentType:    stat.ContentType,
		ETag:           stat.ETag,
		LastModified:   stat.LastModified,
		CustomMetadata: filestore.CloneMetadata(stat.UserMetadata),
	}
}

var _ filestore.Store = (*Driver)(nil)
