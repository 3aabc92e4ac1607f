package proxy

import (
	"net/http"

	"github.com/koustreak/blobgate/internal/errs"
)

type deleteRequest struct {
	Key string `json:"key"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// delete removes one object. Deleting a missing key succeeds.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Key == "" {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "key is required"))
		return
	}

	if err := h.store.DeleteObject(r.Context(), req.Key); err != nil {
		writeError(w, r, storeFault("delete object", err))
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "File deleted successfully",
	})
}
