package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a single object stored in the bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "notes/1.json").
	Key string

	// Size is the byte size of the object.
	Size int64

	// ContentType is the MIME type (e.g. "application/json").
	ContentType string

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time

	// CustomMetadata holds user-defined key/value pairs stored with the
	// object. Preserved across rename.
	CustomMetadata map[string]string
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// PutOptions carries the metadata written alongside an object.
type PutOptions struct {
	ContentType    string
	CustomMetadata map[string]string
}

// ListOptions controls how ListObjects filters results.
type ListOptions struct {
	// Prefix restricts results to objects whose key starts with this string.
	// Use "" to list everything in the bucket.
	Prefix string

	// Limit caps the number of results returned. 0 means no cap.
	Limit int
}

// ListResult is one page of a listing.
type ListResult struct {
	Objects []ObjectInfo

	// Truncated is true when more keys match the prefix than Limit allowed.
	Truncated bool
}

// NewObject wraps rc and info into an Object.
func NewObject(rc io.ReadCloser, info *ObjectInfo) Object {
	return &object{ReadCloser: rc, info: info}
}

type object struct {
	io.ReadCloser
	info *ObjectInfo
}

func (o *object) Info() *ObjectInfo {
	return o.info
}

// CloneMetadata returns a copy of m, or nil when m is empty.
func CloneMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
