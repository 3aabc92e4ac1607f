package proxy

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/blobgate/internal/logger"
)

const exposedHeaders = "Content-Type, Content-Length, Content-Disposition, ETag, Last-Modified"

// cors marks every response as readable from any origin and answers all
// preflights with 204 before auth or routing runs.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog attaches a request-scoped logger to the context and logs each
// request once it has been served.
func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chiMiddleware.GetReqID(r.Context())

		l := h.log.With().Str("request_id", reqID).Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.log.Access(r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), reqID)
	})
}

// recoverer turns a panic into the same 500 body as any other fault.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if rv == http.ErrAbortHandler {
				panic(rv)
			}
			logger.FromContext(r.Context()).ErrorWith("panic while serving request", fmt.Errorf("%v", rv), map[string]interface{}{
				"path": r.URL.Path,
			})
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Internal server error",
				Message: fmt.Sprint(rv),
			})
		}()
		next.ServeHTTP(w, r)
	})
}

// requireToken rejects requests that do not present the configured token.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorized accepts the token from "Authorization: Bearer <token>" or from
// the "authorization" query parameter. An empty APIToken accepts everything.
func (h *Handler) authorized(r *http.Request) bool {
	if h.opts.APIToken == "" {
		return true
	}
	if header := r.Header.Get("Authorization"); header != "" {
		if tokenEqual(strings.TrimPrefix(header, "Bearer "), h.opts.APIToken) {
			return true
		}
	}
	return tokenEqual(r.URL.Query().Get("authorization"), h.opts.APIToken)
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
