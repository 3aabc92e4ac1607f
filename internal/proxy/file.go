package proxy

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/logger"
	"github.com/koustreak/blobgate/internal/policy"
)

const filePrefix = "/file/"

// serveFile streams one object. Public images skip the token check.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), filePrefix))
	if err != nil {
		writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "Invalid file path", err))
		return
	}

	if !policy.IsPublicImage(key) && !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}

	if key == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found", Key: key})
		return
	}

	if r.Method == http.MethodHead {
		info, err := h.store.HeadObject(r.Context(), key)
		if err != nil {
			h.fileError(w, r, key, err)
			return
		}
		setFileHeaders(w, key, info)
		w.WriteHeader(http.StatusOK)
		return
	}

	obj, err := h.store.GetObject(r.Context(), key)
	if err != nil {
		h.fileError(w, r, key, err)
		return
	}
	defer obj.Close()

	setFileHeaders(w, key, obj.Info())
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		logger.FromContext(r.Context()).WarnWith("file stream interrupted", err, map[string]interface{}{
			"key": key,
		})
	}
}

func (h *Handler) fileError(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errs.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found", Key: key})
		return
	}
	writeError(w, r, storeFault("read object", err))
}

func setFileHeaders(w http.ResponseWriter, key string, info *filestore.ObjectInfo) {
	hdr := w.Header()

	ct := info.ContentType
	if ct == "" {
		ct = policy.ContentTypeFor(key)
	}
	hdr.Set("Content-Type", ct)
	hdr.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if info.ETag != "" {
		hdr.Set("ETag", `"`+info.ETag+`"`)
	}
	if !info.LastModified.IsZero() {
		hdr.Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	hdr.Set("Cache-Control", "public, max-age=31536000")
	hdr.Set("Content-Disposition", policy.ContentDisposition(key))
	hdr.Set("Access-Control-Expose-Headers", exposedHeaders)
}
