// Package filestore defines the unified interface for blob storage backends.
//
// All providers (MinIO, S3/R2, Postgres, MySQL, memory) implement the Store
// interface. Callers depend only on this package, never on a specific
// provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig()
//	cfg.MinIO.Endpoint = "localhost:9000"
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	objects, err := store.ListObjects(ctx, filestore.ListOptions{Prefix: "notes/"})
package filestore

import (
	"context"
	"io"

	"github.com/koustreak/blobgate/internal/errs"
)

// Store is the single interface all blob storage providers must implement.
// A Store is bound to one bucket (or table); keys are unique within it.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// ListObjects returns the objects whose key starts with opts.Prefix,
	// sorted by key.
	ListObjects(ctx context.Context, opts ListOptions) (*ListResult, error)

	// HeadObject returns metadata for the object at key without its content.
	// A missing key yields an errs.ErrKindNotFound error.
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)

	// GetObject opens a streaming handle to the object at key.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, key string) (Object, error)

	// PutObject writes size bytes from r under key, replacing any object
	// already stored there.
	PutObject(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (*ObjectInfo, error)

	// DeleteObject removes the object at key. Deleting a missing key is not
	// an error.
	DeleteObject(ctx context.Context, key string) error
}

// Exists reports whether key is present, using a metadata-only lookup.
func Exists(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.HeadObject(ctx, key)
	if err == nil {
		return true, nil
	}
	if errs.IsNotFound(err) {
		return false, nil
	}
	return false, err
}
