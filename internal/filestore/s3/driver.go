// Package s3 provides an Amazon S3 implementation of filestore.Store.
//
// Any S3-compatible service works when Endpoint is set, including
// Cloudflare R2 (region "auto") and MinIO.
package s3

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
)

// Driver implements filestore.Store on top of the AWS SDK v2 S3 client.
type Driver struct {
	client *awss3.Client
	bucket string
}

// New builds an S3 client from cfg.S3 and verifies the bucket with Ping.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	sc := cfg.S3
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(sc.Region),
	}
	if sc.AccessKey != "" && sc.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to load aws config", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
			o.UsePathStyle = true
		} else {
			o.UsePathStyle = sc.ForcePathStyle
		}
		// R2 and older MinIO releases reject the default CRC32 trailers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	d := &Driver{client: client, bucket: sc.Bucket}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping verifies the bucket exists and is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(d.bucket)})
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op; the SDK client shares the default HTTP transport.
func (d *Driver) Close() error {
	return nil
}

// ListObjects follows continuation tokens until Limit is reached or the
// listing ends.
func (d *Driver) ListObjects(ctx context.Context, opts filestore.ListOptions) (*filestore.ListResult, error) {
	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(opts.Prefix),
	}

	res := &filestore.ListResult{}
	for {
		out, err := d.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, mapError(err, "failed to list objects")
		}

		for _, obj := range out.Contents {
			if opts.Limit > 0 && len(res.Objects) >= opts.Limit {
				res.Truncated = true
				return res, nil
			}
			info := filestore.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				ETag: trimETag(obj.ETag),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			res.Objects = append(res.Objects, info)
		}

		if !aws.ToBool(out.IsTruncated) {
			return res, nil
		}
		if opts.Limit > 0 && len(res.Objects) >= opts.Limit {
			res.Truncated = true
			return res, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

// HeadObject returns metadata for key without its content.
func (d *Driver) HeadObject(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	out, err := d.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	info := &filestore.ObjectInfo{
		Key:            key,
		Size:           aws.ToInt64(out.ContentLength),
		ContentType:    aws.ToString(out.ContentType),
		ETag:           trimETag(out.ETag),
		CustomMetadata: filestore.CloneMetadata(out.Metadata),
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// GetObject opens a streaming handle to key.
// The caller MUST call Object.Close() after reading.
func (d *Driver) GetObject(ctx context.Context, key string) (filestore.Object, error) {
	out, err := d.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	info := &filestore.ObjectInfo{
		Key:            key,
		Size:           aws.ToInt64(out.ContentLength),
		ContentType:    aws.ToString(out.ContentType),
		ETag:           trimETag(out.ETag),
		CustomMetadata: filestore.CloneMetadata(out.Metadata),
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return filestore.NewObject(out.Body, info), nil
}

// PutObject uploads r under key. r should be seekable (the proxy always
// passes a fully buffered reader) so the SDK can sign the payload.
func (d *Driver) PutObject(ctx context.Context, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	input := &awss3.PutObjectInput{
		Bucket:   aws.String(d.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: opts.CustomMetadata,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	out, err := d.client.PutObject(ctx, input)
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}

	return &filestore.ObjectInfo{
		Key:            key,
		Size:           size,
		ContentType:    opts.ContentType,
		ETag:           trimETag(out.ETag),
		CustomMetadata: filestore.CloneMetadata(opts.CustomMetadata),
	}, nil
}

// DeleteObject removes key. S3 answers 204 for missing keys as well.
func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	_, err := d.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}
	mapped := mapError(err, "failed to delete object")
	if errs.IsNotFound(mapped) {
		return nil
	}
	return mapped
}

func trimETag(etag *string) string {
	return strings.Trim(aws.ToString(etag), `"`)
}

var _ filestore.Store = (*Driver)(nil)
