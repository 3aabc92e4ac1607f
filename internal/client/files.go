package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/blobgate/internal/errs"
)

// FileInfo is one object as reported by the proxy.
type FileInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
}

// ListResult is the answer to List.
type ListResult struct {
	Files []FileInfo

	// Truncated is set when the proxy had more matches than it returns in
	// one response.
	Truncated bool
}

type wireFile struct {
	Key          string `json:"Key"`
	Size         int64  `json:"Size"`
	LastModified string `json:"LastModified"`
	ETag         string `json:"ETag"`
}

// List returns the objects whose key starts with prefix.
func (c *Client) List(ctx context.Context, prefix string) (*ListResult, error) {
	var resp struct {
		Files     []wireFile `json:"files"`
		Truncated bool       `json:"truncated"`
	}
	if err := c.postAction(ctx, "list", map[string]string{"prefix": prefix}, &resp); err != nil {
		return nil, err
	}

	out := &ListResult{Files: make([]FileInfo, 0, len(resp.Files)), Truncated: resp.Truncated}
	for _, f := range resp.Files {
		// A timestamp the proxy could not format is shown as zero.
		modified, _ := time.Parse(time.RFC3339, f.LastModified)
		out.Files = append(out.Files, FileInfo{
			Key:          f.Key,
			Size:         f.Size,
			LastModified: modified,
			ETag:         f.ETag,
		})
	}
	return out, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errs.New(errs.ErrKindInvalidInput, "key is required")
	}
	return c.postAction(ctx, "delete", map[string]string{"key": key}, nil)
}

// Rename moves oldKey to newKey. It refuses to overwrite an existing
// newKey; the proxy enforces the same rule, so a target created between the
// local check and the request still comes back as a conflict. Renaming a
// key to itself does nothing.
func (c *Client) Rename(ctx context.Context, oldKey, newKey string) error {
	if err := c.check(); err != nil {
		return err
	}
	if oldKey == "" || newKey == "" {
		return errs.New(errs.ErrKindInvalidInput, "oldKey and newKey are required")
	}
	if oldKey == newKey {
		return nil
	}

	_, err := c.Stat(ctx, newKey)
	switch {
	case err == nil:
		return errs.New(errs.ErrKindConflict, "Target file already exists")
	case !errs.IsNotFound(err):
		return err
	}

	return c.postAction(ctx, "rename", map[string]string{"oldKey": oldKey, "newKey": newKey}, nil)
}

// Stat fetches the metadata of key without its content.
func (c *Client) Stat(ctx context.Context, key string) (*FileInfo, error) {
	resp, err := c.fileRequest(ctx, http.MethodHead, key)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return infoFromHeaders(key, resp), nil
}

// Download opens the content of key. The caller closes the reader.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error) {
	resp, err := c.fileRequest(ctx, http.MethodGet, key)
	if err != nil {
		return nil, nil, err
	}
	return resp.Body, infoFromHeaders(key, resp), nil
}

func infoFromHeaders(key string, resp *http.Response) *FileInfo {
	info := &FileInfo{
		Key:         key,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
	}
	// HEAD answers leave ContentLength at -1 in some transports.
	if info.Size < 0 {
		if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
			info.Size = n
		}
	}
	if t, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		info.LastModified = t
	}
	return info
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
