package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blobgate/internal/filestore/memory"
)

func TestOptions_AlwaysNoContent(t *testing.T) {
	h := newTestHandler(memory.New(), Options{APIToken: testToken})

	for _, target := range []string{"/", "/?action=list", "/file/private.txt", "/nowhere/at/all"} {
		t.Run(target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, target, nil)
			req.Header.Set("Authorization", "Bearer wrong")
			rec := serve(h, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Empty(t, rec.Body.String())
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, HEAD, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
		})
	}
}

func TestCORSHeaderOnEveryResponse(t *testing.T) {
	h := newTestHandler(memory.New(), Options{APIToken: testToken})

	unauthorized := postAction(t, h, ActionList, nil, "")
	invalid := postAction(t, h, "explode", nil, testToken)
	ok := postAction(t, h, ActionList, nil, testToken)
	missing := getFile(h, http.MethodGet, "nope.png", "")

	for _, rec := range []*httptest.ResponseRecorder{unauthorized, invalid, ok, missing} {
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), "status %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		setup  func(*http.Request)
		status int
	}{
		{"no token configured", "", func(*http.Request) {}, http.StatusOK},
		{"missing token", testToken, func(*http.Request) {}, http.StatusUnauthorized},
		{"wrong bearer", testToken, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", testToken, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+testToken) }, http.StatusOK},
		{"raw header", testToken, func(r *http.Request) { r.Header.Set("Authorization", testToken) }, http.StatusOK},
		{"query fallback", testToken, func(r *http.Request) {
			q := r.URL.Query()
			q.Set("authorization", testToken)
			r.URL.RawQuery = q.Encode()
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(memory.New(), Options{APIToken: tt.token})
			req := httptest.NewRequest(http.MethodPost, "/?action=list", nil)
			tt.setup(req)

			rec := serve(h, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Unauthorized", decodeBody(t, rec)["error"])
			}
		})
	}
}

func TestInvalidAction(t *testing.T) {
	h := newTestHandler(memory.New(), Options{})

	for _, target := range []string{"/", "/?action=copy"} {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		rec := serve(h, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Invalid action", body["error"])
		assert.ElementsMatch(t, []interface{}{"list", "upload", "delete", "rename"}, body["availableActions"])
		assert.Contains(t, body["imageExtensions"], "png")
		assert.NotEmpty(t, body["note"])
	}

	// mutating actions need POST
	req := httptest.NewRequest(http.MethodGet, "/?action=delete", nil)
	assert.Equal(t, http.StatusBadRequest, serve(h, req).Code)
}

func TestHealthz(t *testing.T) {
	store := newFaultyStore()
	h := newTestHandler(store, Options{APIToken: testToken})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	store.pingErr = errBackend
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPanicBecomesJSON500(t *testing.T) {
	store := newFaultyStore()
	store.panicOnList = true
	h := newTestHandler(store, Options{})

	rec := postAction(t, h, ActionList, nil, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "list exploded", body["message"])
}
