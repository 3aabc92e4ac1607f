package proxy

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/koustreak/blobgate/internal/filestore"
)

// isoMillis is the layout of JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

type listRequest struct {
	Prefix string `json:"prefix"`
}

type fileEntry struct {
	Key          string `json:"Key"`
	Size         int64  `json:"Size"`
	LastModified string `json:"LastModified"`
	ETag         string `json:"ETag"`
}

type listResponse struct {
	Files     []fileEntry `json:"files"`
	Truncated bool        `json:"truncated,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	// The body is optional. Anything that is not a JSON object lists all.
	var req listRequest
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req)

	res, err := h.store.ListObjects(r.Context(), filestore.ListOptions{
		Prefix: req.Prefix,
		Limit:  h.opts.ListLimit,
	})
	if err != nil {
		writeError(w, r, storeFault("list objects", err))
		return
	}

	out := listResponse{
		Files:     make([]fileEntry, 0, len(res.Objects)),
		Truncated: res.Truncated,
	}
	for _, obj := range res.Objects {
		out.Files = append(out.Files, fileEntry{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: formatTime(obj.LastModified),
			ETag:         obj.ETag,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
