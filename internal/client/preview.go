package client

import (
	"context"
	"io"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/policy"
)

// MaxPreviewBytes is the largest text file Preview will fetch.
const MaxPreviewBytes int64 = 5 << 20

var (
	// ErrPreviewTooLarge is returned when a text file exceeds MaxPreviewBytes.
	ErrPreviewTooLarge = errs.New(errs.ErrKindTooLarge, "file is too large to preview")

	// ErrNotPreviewable is returned for keys that are neither image nor text.
	ErrNotPreviewable = errs.New(errs.ErrKindInvalidInput, "file type cannot be previewed")
)

// PreviewKind says how a preview should be rendered.
type PreviewKind int

const (
	PreviewImage PreviewKind = iota + 1
	PreviewText
)

// Preview is the renderable form of one file.
type Preview struct {
	Kind PreviewKind
	Key  string

	// URL is the direct-read URL. Always set.
	URL string

	// Data holds image bytes when the proxy needs a token to serve them, or
	// the text content for PreviewText.
	Data []byte

	Size int64
}

// Text returns the preview content as a string.
func (p *Preview) Text() string {
	return string(p.Data)
}

// Preview prepares key for display. Images are returned by URL, plus their
// bytes when a token is configured. Text is probed with HEAD and only
// fetched when it is at most MaxPreviewBytes.
func (c *Client) Preview(ctx context.Context, key string) (*Preview, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	switch {
	case policy.IsImage(key):
		p := &Preview{Kind: PreviewImage, Key: key, URL: c.FileURL(key)}
		if c.cfg.APIToken == "" {
			return p, nil
		}
		data, size, err := c.fetch(ctx, key, -1)
		if err != nil {
			return nil, err
		}
		p.Data, p.Size = data, size
		return p, nil

	case policy.IsText(key):
		info, err := c.Stat(ctx, key)
		if err != nil {
			return nil, err
		}
		if info.Size > MaxPreviewBytes {
			return nil, errs.Wrap(errs.ErrKindTooLarge,
				"preview limit is "+humanize.IBytes(uint64(MaxPreviewBytes))+", file is "+humanize.IBytes(uint64(info.Size)),
				ErrPreviewTooLarge)
		}
		data, size, err := c.fetch(ctx, key, MaxPreviewBytes)
		if err != nil {
			return nil, err
		}
		return &Preview{Kind: PreviewText, Key: key, URL: c.FileURL(key), Data: data, Size: size}, nil

	default:
		return nil, ErrNotPreviewable
	}
}

// fetch downloads key. A positive limit guards against files that grew
// after the probe.
func (c *Client) fetch(ctx context.Context, key string, limit int64) ([]byte, int64, error) {
	body, _, err := c.Download(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	var r io.Reader = body
	if limit > 0 {
		r = io.LimitReader(body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrKindConnectionFailed, "read file", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, 0, ErrPreviewTooLarge
	}
	return data, int64(len(data)), nil
}

// FormatSize renders n bytes with IEC units, e.g. "1.5 KiB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// SortByNewest orders files by LastModified, newest first. Ties keep their
// key order.
func SortByNewest(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].LastModified.After(files[j].LastModified)
	})
}
