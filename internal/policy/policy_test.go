package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExt(t *testing.T) {
	tests := map[string]string{
		"notes/1.json":         "json",
		"assets/Photo.PNG":     "png",
		"archive.tar.gz":       "gz",
		"markdown_file/README": "",
		"dir.d/file":           "",
		".env":                 "env",
		"trailing.":            "",
	}
	for key, want := range tests {
		assert.Equal(t, want, Ext(key), key)
	}
}

func TestIsPublicImage(t *testing.T) {
	for _, key := range []string{"a.png", "b.JPG", "c/d.jpeg", "e.gif", "f.webp", "g.svg", "h.bmp", "i.ico"} {
		assert.True(t, IsPublicImage(key), key)
	}
	for _, key := range []string{"a.txt", "b.avif", "png", "c.png.txt", "d.tiff"} {
		assert.False(t, IsPublicImage(key), key)
	}
}

func TestPreviewClassification(t *testing.T) {
	assert.True(t, IsImage("x.avif"))
	assert.True(t, IsText("notes/1.json"))
	assert.True(t, IsText("scripts/run.sh"))
	assert.False(t, IsText("video.mp4"))
	assert.True(t, IsMarkdown("markdown_file/a.markdown"))
	assert.False(t, IsMarkdown("a.txt"))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `inline; filename="assets%2Fcat.png"`, ContentDisposition("assets/cat.png"))
	assert.Equal(t, `attachment; filename="notes%2Fmy%20note.txt"`, ContentDisposition("notes/my note.txt"))
}

func TestEncodeURIComponent(t *testing.T) {
	assert.Equal(t, "a%20b%2Fc!'()*-_.~", EncodeURIComponent("a b/c!'()*-_.~"))
	assert.Equal(t, "%E4%B8%AD%E6%96%87.md", EncodeURIComponent("中文.md"))
	assert.Equal(t, "a%2Bb%3Dc%26d", EncodeURIComponent("a+b=c&d"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/json", ContentTypeFor("notes/1.json"))
	assert.Equal(t, "text/markdown; charset=utf-8", ContentTypeFor("README.md"))
	assert.Equal(t, "image/png", ContentTypeFor("a.png"))
	assert.Equal(t, DefaultContentType, ContentTypeFor("blob"))
	assert.Equal(t, DefaultContentType, ContentTypeFor("x.unknownext"))
}
