package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blobgate/internal/filestore/memory"
)

func TestUploadThenList(t *testing.T) {
	store := memory.New()
	h := newTestHandler(store, Options{APIToken: testToken})

	rec := uploadFile(t, h, "markdown_file/readme.md", "text/markdown", []byte("# hi\n"), testToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "markdown_file/readme.md", body["key"])
	assert.Equal(t, float64(5), body["size"])

	rec = postAction(t, h, ActionList, map[string]string{"prefix": "markdown_file/"}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var res listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Files, 1)
	assert.Equal(t, "markdown_file/readme.md", res.Files[0].Key)
	assert.Equal(t, int64(5), res.Files[0].Size)
	assert.NotEmpty(t, res.Files[0].ETag)
	assert.Regexp(t, `^\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d\.\d{3}Z$`, res.Files[0].LastModified)
	assert.False(t, res.Truncated)
	assert.NotContains(t, rec.Body.String(), "truncated")

	info, err := store.HeadObject(context.Background(), "markdown_file/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", info.ContentType)
}

func TestUpload_ContentTypeFromExtension(t *testing.T) {
	store := memory.New()
	h := newTestHandler(store, Options{})

	rec := uploadFile(t, h, "notes/1.json", "", []byte(`{"a":1}`), "")
	require.Equal(t, http.StatusOK, rec.Code)

	info, err := store.HeadObject(context.Background(), "notes/1.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType)
}

func TestUpload_Errors(t *testing.T) {
	t.Run("no file part", func(t *testing.T) {
		h := newTestHandler(memory.New(), Options{})
		req := httptest.NewRequest(http.MethodPost, "/?action=upload", strings.NewReader("key=value"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rec := serve(h, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file provided", decodeBody(t, rec)["error"])
	})

	t.Run("too large", func(t *testing.T) {
		store := memory.New()
		h := newTestHandler(store, Options{MaxUploadBytes: 8})

		rec := uploadFile(t, h, "big.bin", "", []byte("0123456789"), "")
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "File too large", decodeBody(t, rec)["error"])
		assert.Zero(t, store.Len())
	})

	t.Run("store failure", func(t *testing.T) {
		store := newFaultyStore()
		store.putErr = errBackend
		h := newTestHandler(store, Options{})

		rec := uploadFile(t, h, "a.txt", "", []byte("a"), "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Internal server error", body["error"])
		assert.Contains(t, body["message"], "backend unavailable")
	})
}

func TestList_EmptyAndTruncated(t *testing.T) {
	store := memory.New()
	h := newTestHandler(store, Options{ListLimit: 2})

	rec := postAction(t, h, ActionList, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())

	for _, k := range []string{"a/1", "a/2", "a/3", "b/1"} {
		putDirect(t, store, k, "text/plain", k)
	}

	rec = postAction(t, h, ActionList, map[string]string{"prefix": "a/"}, "")
	var res listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Files, 2)
	assert.True(t, res.Truncated)

	assert.Equal(t, []string{"b/1"}, listKeys(t, h, "b/", ""))
}

func TestList_NonJSONBodyListsEverything(t *testing.T) {
	store := memory.New()
	putDirect(t, store, "x.txt", "text/plain", "x")
	h := newTestHandler(store, Options{})

	req := httptest.NewRequest(http.MethodPost, "/?action=list", strings.NewReader("not json"))
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"x.txt"`)
}

func TestDelete(t *testing.T) {
	store := memory.New()
	h := newTestHandler(store, Options{})

	t.Run("missing key succeeds", func(t *testing.T) {
		rec := postAction(t, h, ActionDelete, map[string]string{"key": "never/existed"}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "File deleted successfully", body["message"])
	})

	t.Run("existing key", func(t *testing.T) {
		putDirect(t, store, "gone.txt", "text/plain", "bye")
		rec := postAction(t, h, ActionDelete, map[string]string{"key": "gone.txt"}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, store.Len())
	})

	t.Run("empty key", func(t *testing.T) {
		rec := postAction(t, h, ActionDelete, map[string]string{}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "key is required", decodeBody(t, rec)["error"])
	})

	t.Run("store failure", func(t *testing.T) {
		faulty := newFaultyStore()
		faulty.deleteErr = errBackend
		rec := postAction(t, newTestHandler(faulty, Options{}), ActionDelete, map[string]string{"key": "k"}, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
