package proxy

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/logger"
	"github.com/koustreak/blobgate/internal/policy"
)

// multipartOverhead is the slack allowed on top of MaxUploadBytes for
// boundaries, part headers and small extra fields.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
	Size    int64  `json:"size"`
	Message string `json:"message"`
}

var (
	errNoFile   = errs.New(errs.ErrKindInvalidInput, "No file provided")
	errTooLarge = errs.New(errs.ErrKindTooLarge, "File too large")
)

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+multipartOverhead)

	key, contentType, data, err := h.readFilePart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.store.PutObject(r.Context(), key, bytes.NewReader(data), int64(len(data)), filestore.PutOptions{
		ContentType: contentType,
	})
	if err != nil {
		writeError(w, r, storeFault("put object", err))
		return
	}

	logger.FromContext(r.Context()).With().
		Str("key", key).
		Str("size", humanize.IBytes(uint64(info.Size))).
		Logger().Debug("object uploaded")

	writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Key:     key,
		Size:    info.Size,
		Message: "File uploaded successfully",
	})
}

// readFilePart finds the "file" part and buffers it. The object key is the
// part's filename exactly as sent, prefixes included.
func (h *Handler) readFilePart(r *http.Request) (key, contentType string, data []byte, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", "", nil, errNoFile
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", "", nil, errNoFile
		}
		if err != nil {
			return "", "", nil, bodyError(err)
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		key = rawFileName(part)
		if key == "" {
			_ = part.Close()
			return "", "", nil, errNoFile
		}

		data, err = io.ReadAll(io.LimitReader(part, h.opts.MaxUploadBytes+1))
		_ = part.Close()
		if err != nil {
			return "", "", nil, bodyError(err)
		}
		if int64(len(data)) > h.opts.MaxUploadBytes {
			return "", "", nil, errTooLarge
		}

		contentType = part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = policy.ContentTypeFor(key)
		}
		return key, contentType, data, nil
	}
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errTooLarge
	}
	return errs.Wrap(errs.ErrKindInvalidInput, "Malformed multipart body", err)
}

// rawFileName returns the filename parameter without the path stripping
// that multipart.Part.FileName applies.
func rawFileName(p *multipart.Part) string {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}
