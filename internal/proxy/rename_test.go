package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/filestore/memory"
)

func readAll(t *testing.T, s filestore.Store, key string) (string, *filestore.ObjectInfo) {
	t.Helper()
	obj, err := s.GetObject(context.Background(), key)
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	return string(data), obj.Info()
}

func TestRename_Success(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := store.PutObject(ctx, "a.txt", strings.NewReader("alpha"), 5, filestore.PutOptions{
		ContentType:    "text/plain",
		CustomMetadata: map[string]string{"owner": "notes"},
	})
	require.NoError(t, err)
	h := newTestHandler(store, Options{APIToken: testToken})

	rec := postAction(t, h, ActionRename, renameRequest{OldKey: "a.txt", NewKey: "b.txt"}, testToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "a.txt", body["oldKey"])
	assert.Equal(t, "b.txt", body["newKey"])

	assert.Equal(t, http.StatusNotFound, getFile(h, http.MethodGet, "a.txt", testToken).Code)

	content, info := readAll(t, store, "b.txt")
	assert.Equal(t, "alpha", content)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.Equal(t, map[string]string{"owner": "notes"}, info.CustomMetadata)

	direct := getFile(h, http.MethodGet, "b.txt", testToken)
	assert.Equal(t, "alpha", direct.Body.String())
	assert.Equal(t, "text/plain", direct.Header().Get("Content-Type"))
}

func TestRename_TargetExists(t *testing.T) {
	store := memory.New()
	putDirect(t, store, "a.txt", "text/plain", "alpha")
	putDirect(t, store, "b.txt", "text/plain", "beta")
	h := newTestHandler(store, Options{})

	rec := postAction(t, h, ActionRename, renameRequest{OldKey: "a.txt", NewKey: "b.txt"}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Target file already exists", decodeBody(t, rec)["error"])
	a, _ := readAll(t, store, "a.txt")
	b, _ := readAll(t, store, "b.txt")
	assert.Equal(t, "alpha", a)
	assert.Equal(t, "beta", b)
}

func TestRename_SourceMissing(t *testing.T) {
	store := memory.New()
	putDirect(t, store, "other.txt", "text/plain", "o")
	h := newTestHandler(store, Options{})

	rec := postAction(t, h, ActionRename, renameRequest{OldKey: "a.txt", NewKey: "b.txt"}, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Source file not found", decodeBody(t, rec)["error"])
	assert.Equal(t, 1, store.Len())
}

func TestRename_BadRequests(t *testing.T) {
	h := newTestHandler(memory.New(), Options{})

	tests := []struct {
		name string
		req  renameRequest
		want string
	}{
		{"empty old key", renameRequest{OldKey: "", NewKey: "x"}, "oldKey and newKey are required"},
		{"empty new key", renameRequest{OldKey: "x", NewKey: ""}, "oldKey and newKey are required"},
		{"same key", renameRequest{OldKey: "x", NewKey: "x"}, "oldKey and newKey must differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAction(t, h, ActionRename, tt.req, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeBody(t, rec)["error"])
		})
	}
}

func TestRename_DeleteFailureKeepsBoth(t *testing.T) {
	store := newFaultyStore()
	putDirect(t, store, "a.txt", "text/plain", "alpha")
	store.deleteErr = errBackend
	h := newTestHandler(store, Options{})

	rec := postAction(t, h, ActionRename, renameRequest{OldKey: "a.txt", NewKey: "b.txt"}, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Contains(t, body["message"], "a.txt")

	a, _ := readAll(t, store, "a.txt")
	b, _ := readAll(t, store, "b.txt")
	assert.Equal(t, "alpha", a)
	assert.Equal(t, "alpha", b)
}

func TestRename_Phases(t *testing.T) {
	ctx := context.Background()

	t.Run("conflict stops at target check", func(t *testing.T) {
		store := memory.New()
		putDirect(t, store, "a", "", "1")
		putDirect(t, store, "b", "", "2")

		err := Rename(ctx, store, "a", "b")
		var rerr *RenameError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, PhaseCheckingTarget, rerr.Phase)
		assert.True(t, errs.IsConflict(err))
		assert.False(t, rerr.Orphaned())
	})

	t.Run("missing source stops at fetch", func(t *testing.T) {
		err := Rename(ctx, memory.New(), "a", "b")
		var rerr *RenameError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, PhaseFetching, rerr.Phase)
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("put failure stops at copy", func(t *testing.T) {
		store := newFaultyStore()
		putDirect(t, store, "a", "", "1")
		store.putErr = errBackend

		err := Rename(ctx, store, "a", "b")
		var rerr *RenameError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, PhaseCopying, rerr.Phase)
		assert.ErrorIs(t, err, errBackend)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("delete failure is orphaned", func(t *testing.T) {
		store := newFaultyStore()
		putDirect(t, store, "a", "", "1")
		store.deleteErr = errBackend

		err := Rename(ctx, store, "a", "b")
		var rerr *RenameError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, PhaseDeleting, rerr.Phase)
		assert.True(t, rerr.Orphaned())
		assert.Equal(t, "deleting", rerr.Phase.String())
	})

	t.Run("success", func(t *testing.T) {
		store := memory.New()
		putDirect(t, store, "a", "", "1")
		require.NoError(t, Rename(ctx, store, "a", "b"))
		exists, err := filestore.Exists(ctx, store, "a")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
