package client

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/policy"
)

const (
	// MarkdownPrefix holds the documents of the markdown viewer.
	MarkdownPrefix = "markdown_file/"

	// AssetsPrefix holds images pasted into notes and documents.
	AssetsPrefix = "assets/"
)

var errNotMarkdown = errs.New(errs.ErrKindInvalidInput, "file name must end in .md or .markdown")

// ListMarkdown returns the markdown documents, newest first.
func (c *Client) ListMarkdown(ctx context.Context) ([]FileInfo, error) {
	res, err := c.List(ctx, MarkdownPrefix)
	if err != nil {
		return nil, err
	}

	docs := make([]FileInfo, 0, len(res.Files))
	for _, f := range res.Files {
		if strings.HasPrefix(f.Key, MarkdownPrefix) && policy.IsMarkdown(f.Key) {
			docs = append(docs, f)
		}
	}
	SortByNewest(docs)
	return docs, nil
}

// UploadMarkdown stores a document named name under MarkdownPrefix.
func (c *Client) UploadMarkdown(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (*UploadResult, error) {
	name = path.Base(name)
	if !policy.IsMarkdown(name) {
		return nil, errNotMarkdown
	}
	return c.Upload(ctx, MarkdownPrefix+name, r, size, policy.ContentTypeFor(name), progress)
}

// RenameMarkdown renames the document at key to newName, keeping it under
// MarkdownPrefix. It returns the new key.
func (c *Client) RenameMarkdown(ctx context.Context, key, newName string) (string, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" || strings.ContainsAny(newName, `/\`) {
		return "", errs.New(errs.ErrKindInvalidInput, "new name must be a plain file name")
	}
	if !policy.IsMarkdown(newName) {
		return "", errNotMarkdown
	}

	newKey := MarkdownPrefix + newName
	if err := c.Rename(ctx, key, newKey); err != nil {
		return "", err
	}
	return newKey, nil
}

// UploadAsset stores an image under AssetsPrefix with a timestamp prefix so
// repeated names never collide, and returns its direct URL.
func (c *Client) UploadAsset(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	key := AssetsPrefix + strconv.FormatInt(c.now().UnixMilli(), 10) + "-" + path.Base(name)
	if _, err := c.Upload(ctx, key, r, size, "", progress); err != nil {
		return "", err
	}
	return c.FileURL(key), nil
}
