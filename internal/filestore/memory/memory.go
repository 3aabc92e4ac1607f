// Package memory provides an in-process implementation of filestore.Store.
//
// It backs tests and the "memory" provider for local development. Content
// lives only as long as the process.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
)

// Store is a map-backed filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	mu      sync.RWMutex
	objects map[string]*entry
	now     func() time.Time
}

type entry struct {
	info filestore.ObjectInfo
	data []byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		objects: make(map[string]*entry),
		now:     time.Now,
	}
}

// --- filestore.Store implementation ---

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) ListObjects(ctx context.Context, opts filestore.ListOptions) (*filestore.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "failed to list objects", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	res := &filestore.ListResult{Objects: make([]filestore.ObjectInfo, 0, len(keys))}
	for _, k := range keys {
		if opts.Limit > 0 && len(res.Objects) >= opts.Limit {
			res.Truncated = true
			break
		}
		res.Objects = append(res.Objects, cloneInfo(s.objects[k].info))
	}
	return res, nil
}

func (s *Store) HeadObject(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "failed to stat object", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "object not found: "+key)
	}
	info := cloneInfo(e.info)
	return &info, nil
}

func (s *Store) GetObject(ctx context.Context, key string) (filestore.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "failed to get object", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "object not found: "+key)
	}
	info := cloneInfo(e.info)
	// data is never mutated in place; puts replace the slice.
	return filestore.NewObject(io.NopCloser(bytes.NewReader(e.data)), &info), nil
}

func (s *Store) PutObject(ctx context.Context, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	if key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "object key is empty")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read object body", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, errs.New(errs.ErrKindInvalidInput, "object body size does not match declared size")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "failed to put object", err)
	}

	info := filestore.ObjectInfo{
		Key:            key,
		Size:           int64(len(data)),
		ContentType:    opts.ContentType,
		ETag:           filestore.ContentETag(data),
		LastModified:   s.now().UTC(),
		CustomMetadata: filestore.CloneMetadata(opts.CustomMetadata),
	}

	s.mu.Lock()
	s.objects[key] = &entry{info: info, data: data}
	s.mu.Unlock()

	out := cloneInfo(info)
	return &out, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "failed to delete object", err)
	}

	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func cloneInfo(in filestore.ObjectInfo) filestore.ObjectInfo {
	in.CustomMetadata = filestore.CloneMetadata(in.CustomMetadata)
	return in
}

var _ filestore.Store = (*Store)(nil)
