package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/filestore"
	"github.com/koustreak/blobgate/internal/logger"
)

// RenamePhase is the step a rename was in when it stopped.
type RenamePhase int

const (
	PhaseCheckingTarget RenamePhase = iota
	PhaseFetching
	PhaseCopying
	PhaseDeleting
	PhaseDone
)

func (p RenamePhase) String() string {
	switch p {
	case PhaseCheckingTarget:
		return "checking_target"
	case PhaseFetching:
		return "fetching"
	case PhaseCopying:
		return "copying"
	case PhaseDeleting:
		return "deleting"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// RenameError reports the phase a rename failed in. A failure before
// PhaseDeleting leaves the source untouched. A failure in PhaseDeleting
// leaves both keys holding the same content.
type RenameError struct {
	Phase  RenamePhase
	OldKey string
	NewKey string
	Err    error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("rename %q -> %q failed while %s: %v", e.OldKey, e.NewKey, e.Phase, e.Err)
}

func (e *RenameError) Unwrap() error {
	return e.Err
}

// Orphaned reports whether the source survived next to a complete copy.
func (e *RenameError) Orphaned() bool {
	return e.Phase == PhaseDeleting
}

// Rename moves oldKey to newKey as copy then delete. It never overwrites:
// an existing newKey stops it before any write. Content type and custom
// metadata travel with the content.
func Rename(ctx context.Context, store filestore.Store, oldKey, newKey string) error {
	fail := func(phase RenamePhase, err error) error {
		return &RenameError{Phase: phase, OldKey: oldKey, NewKey: newKey, Err: err}
	}

	exists, err := filestore.Exists(ctx, store, newKey)
	if err != nil {
		return fail(PhaseCheckingTarget, storeFault("check target", err))
	}
	if exists {
		return fail(PhaseCheckingTarget, errs.New(errs.ErrKindConflict, "Target file already exists"))
	}

	obj, err := store.GetObject(ctx, oldKey)
	if err != nil {
		if errs.IsNotFound(err) {
			return fail(PhaseFetching, errs.New(errs.ErrKindNotFound, "Source file not found"))
		}
		return fail(PhaseFetching, storeFault("get source", err))
	}
	info := obj.Info()
	data, err := io.ReadAll(obj)
	_ = obj.Close()
	if err != nil {
		return fail(PhaseFetching, storeFault("read source", err))
	}

	_, err = store.PutObject(ctx, newKey, bytes.NewReader(data), int64(len(data)), filestore.PutOptions{
		ContentType:    info.ContentType,
		CustomMetadata: info.CustomMetadata,
	})
	if err != nil {
		return fail(PhaseCopying, storeFault("write target", err))
	}

	if err := store.DeleteObject(ctx, oldKey); err != nil {
		return fail(PhaseDeleting, storeFault("delete source", err))
	}
	return nil
}

type renameRequest struct {
	OldKey string `json:"oldKey"`
	NewKey string `json:"newKey"`
}

type renameResponse struct {
	Success bool   `json:"success"`
	OldKey  string `json:"oldKey"`
	NewKey  string `json:"newKey"`
	Message string `json:"message"`
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.OldKey == "" || req.NewKey == "" {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "oldKey and newKey are required"))
		return
	}
	if req.OldKey == req.NewKey {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "oldKey and newKey must differ"))
		return
	}

	err := Rename(r.Context(), h.store, req.OldKey, req.NewKey)
	var rerr *RenameError
	if errors.As(err, &rerr) && rerr.Orphaned() {
		logger.FromContext(r.Context()).ErrorWith("rename left source behind", rerr.Err, map[string]interface{}{
			"old_key": req.OldKey,
			"new_key": req.NewKey,
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Message: fmt.Sprintf("copied to %s but could not delete %s", req.NewKey, req.OldKey),
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, renameResponse{
		Success: true,
		OldKey:  req.OldKey,
		NewKey:  req.NewKey,
		Message: "File renamed successfully",
	})
}
