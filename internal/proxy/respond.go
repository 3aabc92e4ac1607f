package proxy

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/logger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Key     string `json:"key,omitempty"`
}

type invalidActionResponse struct {
	Error            string   `json:"error"`
	AvailableActions []string `json:"availableActions"`
	Note             string   `json:"note"`
	ImageExtensions  []string `json:"imageExtensions"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError answers with the status errs.HTTPStatus picks for err. Client
// errors expose their message verbatim; everything else becomes the generic
// 500 body with the error text as "message".
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)

	var e *errs.Error
	if status < http.StatusInternalServerError && errors.As(err, &e) {
		writeJSON(w, status, errorResponse{Error: e.Message})
		return
	}

	logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]interface{}{
		"path":   r.URL.Path,
		"action": r.URL.Query().Get("action"),
	})
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

// storeFault marks err as a backend failure so that it is always reported as
// a 500, whatever kind the driver gave it.
func storeFault(msg string, err error) error {
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// decodeJSON reads a small JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "Invalid JSON body", err)
	}
	return nil
}
