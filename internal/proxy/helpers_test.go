package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/filestore/memory"
	"github.com/koustreak/blobgate/internal/logger"
)

const testToken = "s3cret"

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*memory.Store
	pingErr     error
	putErr      error
	deleteErr   error
	panicOnList bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.New()}
}

func (f *faultyStore) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	return f.Store.Ping(ctx)
}

func (f *faultyStore) ListObjects(ctx context.Context, opts filestore.ListOptions) (*filestore.ListResult, error) {
	if f.panicOnList {
		panic("list exploded")
	}
	return f.Store.ListObjects(ctx, opts)
}

func (f *faultyStore) PutObject(ctx context.Context, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	return f.Store.PutObject(ctx, key, r, size, opts)
}

func (f *faultyStore) DeleteObject(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.DeleteObject(ctx, key)
}

var errBackend = errors.New("backend unavailable")

func newTestHandler(store filestore.Store, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return New(store, opts).Routes()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postAction(t *testing.T, h http.Handler, action string, payload interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(http.MethodPost, "/?action="+action, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(h, req)
}

func uploadFile(t *testing.T, h http.Handler, key, contentType string, data []byte, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+key+`"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/?action=upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(h, req)
}

func getFile(h http.Handler, method, escapedKey, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/file/"+escapedKey, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(h, req)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func listKeys(t *testing.T, h http.Handler, prefix, token string) []string {
	t.Helper()
	rec := postAction(t, h, ActionList, map[string]string{"prefix": prefix}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	keys := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		keys = append(keys, f.Key)
	}
	return keys
}

func putDirect(t *testing.T, s filestore.Store, key, contentType, content string) {
	t.Helper()
	_, err := s.PutObject(context.Background(), key, strings.NewReader(content), int64(len(content)), filestore.PutOptions{
		ContentType: contentType,
	})
	require.NoError(t, err)
}
