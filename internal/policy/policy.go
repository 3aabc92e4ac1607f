// Package policy holds the extension-keyed lookup tables that drive auth
// bypass, preview classification and response headers. Everything here is
// a pure function of the object key.
package policy

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// publicImages may be read through /file/ without a token.
var publicImages = set("jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "ico")

// previewImages are rendered as images by the client.
var previewImages = set("jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "ico", "avif", "tiff", "tif")

var textFiles = set(
	"txt", "json", "js", "ts", "jsx", "tsx", "html", "htm", "css", "scss", "less",
	"md", "markdown", "xml", "yaml", "yml", "toml", "ini", "conf", "config",
	"sh", "bash", "zsh", "fish", "py", "rb", "php", "java", "c", "cpp", "h", "hpp",
	"go", "rs", "swift", "kt", "scala", "groovy", "lua", "r", "sql", "graphql",
	"vue", "svelte", "webc", "astro", "htaccess", "env", "gitignore", "dockerignore",
)

var markdownFiles = set("md", "markdown")

// fallback types for extensions the platform mime table may not know
var contentTypes = map[string]string{
	"md":       "text/markdown; charset=utf-8",
	"markdown": "text/markdown; charset=utf-8",
	"json":     "application/json",
	"svg":      "image/svg+xml",
	"webp":     "image/webp",
	"ico":      "image/x-icon",
	"avif":     "image/avif",
	"yaml":     "application/yaml",
	"yml":      "application/yaml",
	"toml":     "application/toml",
}

// DefaultContentType is used when nothing better is known.
const DefaultContentType = "application/octet-stream"

// Ext returns the lowercase extension of key without the dot. Keys whose
// final segment has no dot yield "". Dotfiles such as ".env" yield "env".
func Ext(key string) string {
	base := path.Base(key)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// IsPublicImage reports whether key may be served without a token.
func IsPublicImage(key string) bool {
	return publicImages[Ext(key)]
}

// IsImage reports whether the client previews key as an image.
func IsImage(key string) bool {
	return previewImages[Ext(key)]
}

// IsText reports whether the client previews key as text.
func IsText(key string) bool {
	return textFiles[Ext(key)]
}

// IsMarkdown reports whether key is a markdown document.
func IsMarkdown(key string) bool {
	return markdownFiles[Ext(key)]
}

// PublicImageExtensions lists the auth-bypass extensions, sorted as
// declared.
func PublicImageExtensions() []string {
	return []string{"jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "ico"}
}

// ContentDisposition returns the header value for a direct read of key:
// inline for public images, attachment otherwise.
func ContentDisposition(key string) string {
	kind := "attachment"
	if IsPublicImage(key) {
		kind = "inline"
	}
	return kind + `; filename="` + EncodeURIComponent(key) + `"`
}

// ContentTypeFor guesses the MIME type of key from its extension.
func ContentTypeFor(key string) string {
	ext := Ext(key)
	if ext == "" {
		return DefaultContentType
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return DefaultContentType
}

// EncodeURIComponent escapes s the way browsers' encodeURIComponent does:
// everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is percent-encoded.
func EncodeURIComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}

var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
