// Package proxy is the HTTP front of a filestore.Store.
//
// Every request except OPTIONS, /healthz and public image reads under /file/
// must carry the shared token when one is configured. The remaining requests
// are dispatched on the "action" query parameter:
//
//	POST /?action=list     {"prefix":"notes/"}
//	POST /?action=upload   multipart, field "file"
//	POST /?action=delete   {"key":"notes/1.json"}
//	POST /?action=rename   {"oldKey":"a.txt","newKey":"b.txt"}
//	GET  /file/{key}
package proxy

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/logger"
	"github.com/koustreak/blobgate/internal/policy"
)

// Action names accepted in the "action" query parameter.
const (
	ActionList   = "list"
	ActionUpload = "upload"
	ActionDelete = "delete"
	ActionRename = "rename"
)

// DefaultMaxUploadBytes caps a single upload when Options leaves it unset.
const DefaultMaxUploadBytes int64 = 100 << 20

// maxJSONBody bounds the small JSON payloads of list, delete and rename.
const maxJSONBody = 1 << 20

// Options configures a Handler.
type Options struct {
	// APIToken is the shared secret. Empty disables the check.
	APIToken string

	// ListLimit caps entries per list response. 0 means no cap.
	ListLimit int

	// MaxUploadBytes caps one uploaded file. 0 means DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// Logger receives access and error logs. Nil means the global logger.
	Logger *logger.Logger
}

// Handler serves the proxy protocol on top of a store.
type Handler struct {
	store filestore.Store
	opts  Options
	log   *logger.Logger
}

// New returns a Handler backed by store.
func New(store filestore.Store, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(context.Background())
	}
	return &Handler{store: store, opts: opts, log: log}
}

// Routes builds the chi router for h.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(h.accessLog)
	r.Use(cors)
	r.Use(h.recoverer)

	r.Get("/healthz", h.health)

	// Direct reads decide on auth per key, so they sit outside the gate.
	r.HandleFunc("/file/*", h.serveFile)

	r.Group(func(r chi.Router) {
		r.Use(h.requireToken)
		r.HandleFunc("/*", h.dispatch)
	})
	return r
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	post := r.Method == http.MethodPost

	switch {
	case action == ActionList:
		h.list(w, r)
	case action == ActionUpload && post:
		h.upload(w, r)
	case action == ActionDelete && post:
		h.delete(w, r)
	case action == ActionRename && post:
		h.rename(w, r)
	default:
		writeJSON(w, http.StatusBadRequest, invalidActionResponse{
			Error:            "Invalid action",
			AvailableActions: []string{ActionList, ActionUpload, ActionDelete, ActionRename},
			Note:             "Read files directly at /file/{key} with the token in the Authorization header. Public images need no token.",
			ImageExtensions:  policy.PublicImageExtensions(),
		})
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		logger.FromContext(r.Context()).WarnWith("store ping failed", err, nil)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
