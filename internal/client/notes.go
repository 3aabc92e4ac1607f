package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/blobgate/internal/errs"
)

// NotesPrefix is where notes live in the bucket.
const NotesPrefix = "notes/"

// Note is one JSON document under NotesPrefix.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteKey returns the object key of the note with id.
func NoteKey(id string) string {
	return NotesPrefix + id + ".json"
}

// NewNote returns an unsaved note whose id is the current time in
// milliseconds.
func (c *Client) NewNote(title, content string) *Note {
	now := c.now().UTC()
	return &Note{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ListNotes loads every note, most recently updated first. Objects that are
// not valid note documents are skipped.
func (c *Client) ListNotes(ctx context.Context) ([]Note, error) {
	res, err := c.List(ctx, NotesPrefix)
	if err != nil {
		return nil, err
	}

	notes := make([]Note, 0, len(res.Files))
	for _, f := range res.Files {
		if !strings.HasSuffix(strings.ToLower(f.Key), ".json") {
			continue
		}
		n, err := c.loadNote(ctx, f.Key)
		if err != nil {
			if errs.IsNotFound(err) {
				continue
			}
			if errs.IsInvalidInput(err) {
				c.log.WarnWith("skipping unreadable note", err, map[string]interface{}{"key": f.Key})
				continue
			}
			return nil, err
		}
		notes = append(notes, *n)
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

func (c *Client) loadNote(ctx context.Context, key string) (*Note, error) {
	body, _, err := c.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "read note", err)
	}
	var n Note
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode note "+key, err)
	}
	n.ID = strings.TrimSuffix(strings.TrimPrefix(key, NotesPrefix), ".json")
	return &n, nil
}

// SaveNote writes n, creating or replacing it. UpdatedAt is refreshed and
// CreatedAt is filled in for new notes.
func (c *Client) SaveNote(ctx context.Context, n *Note) error {
	if n.ID == "" {
		return errs.New(errs.ErrKindInvalidInput, "note id is required")
	}
	now := c.now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	raw, err := json.Marshal(n)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode note", err)
	}
	_, err = c.Upload(ctx, NoteKey(n.ID), bytes.NewReader(raw), int64(len(raw)), "application/json", nil)
	return err
}

// DeleteNote removes the note with id.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return errs.New(errs.ErrKindInvalidInput, "note id is required")
	}
	return c.Delete(ctx, NoteKey(id))
}
