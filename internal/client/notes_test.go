package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blobgate/internal/errs"
)

func TestNotes(t *testing.T) {
	tp := newTestProxy(t, testToken, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := tp.client(testToken, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	first := c.NewNote("groceries", "milk")
	assert.Equal(t, "1714564800000", first.ID)
	require.NoError(t, c.SaveNote(ctx, first))

	now = now.Add(time.Minute)
	second := c.NewNote("todo", "ship it")
	require.NoError(t, c.SaveNote(ctx, second))

	// a stray non-note file and a broken note are ignored
	tp.put(t, "notes/readme.txt", "text/plain", "not a note")
	tp.put(t, "notes/broken.json", "application/json", "{")

	notes, err := c.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "todo", notes[0].Title)
	assert.Equal(t, "groceries", notes[1].Title)
	assert.Equal(t, first.ID, notes[1].ID)
	assert.True(t, notes[1].CreatedAt.Equal(first.CreatedAt))

	// editing bumps UpdatedAt and keeps CreatedAt
	now = now.Add(time.Minute)
	first.Content = "milk, eggs"
	require.NoError(t, c.SaveNote(ctx, first))

	notes, err = c.ListNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "groceries", notes[0].Title)
	assert.Equal(t, "milk, eggs", notes[0].Content)
	assert.True(t, notes[0].CreatedAt.Before(notes[0].UpdatedAt))

	require.NoError(t, c.DeleteNote(ctx, first.ID))
	notes, err = c.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, second.ID, notes[0].ID)

	info, err := c.Stat(ctx, NoteKey(second.ID))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.ContentType, "application/json"))
}

func TestNotes_Validation(t *testing.T) {
	c := New(Config{EndpointURL: "http://unused"})
	assert.True(t, errs.IsInvalidInput(c.SaveNote(context.Background(), &Note{})))
	assert.True(t, errs.IsInvalidInput(c.DeleteNote(context.Background(), "")))
}
