package client

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/policy"
)

// ProgressFunc receives the number of content bytes sent so far and the
// declared total. total is -1 when the size is unknown.
type ProgressFunc func(sent, total int64)

// UploadResult is the proxy's acknowledgement of an upload.
type UploadResult struct {
	Key     string `json:"key"`
	Size    int64  `json:"size"`
	Message string `json:"message"`
}

// Upload stores r under key. The body is streamed as multipart/form-data
// while progress, when non-nil, is told how much content has gone out.
// Cancelling ctx aborts the transfer.
func (c *Client) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, progress ProgressFunc) (*UploadResult, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "key is required")
	}
	if contentType == "" {
		contentType = policy.ContentTypeFor(key)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pw.CloseWithError(writeFilePart(mw, key, contentType, &progressReader{r: r, total: size, fn: progress}))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.actionURL("upload", true), pr)
	if err != nil {
		pr.Close()
		wg.Wait()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(req)
	// The transport closes the pipe's read side on every path, which also
	// unblocks the writer goroutine.
	pr.Close()
	wg.Wait()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out UploadResult
	if err := decodeJSONBody(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func writeFilePart(mw *multipart.Writer, key, contentType string, r io.Reader) error {
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(key)+`"`)
	hdr.Set("Content-Type", contentType)

	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
