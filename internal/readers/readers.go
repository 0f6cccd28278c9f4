// Package readers extracts plain text from uploaded files before
// ingestion. The core pipeline only ever sees extracted text; binary
// and markup formats are converted here.
package readers

import (
	"path/filepath"
	"strings"
)

// Reader converts one file format to plain text.
type Reader interface {
	// Extensions returns the lowercase file extensions this reader
	// handles, including the leading dot.
	Extensions() []string

	// Extract converts raw file bytes to plain text.
	Extract(data []byte) (string, error)
}

// Registry selects a reader by file extension, falling back to a
// default reader for unknown formats.
type Registry struct {
	byExt    map[string]Reader
	fallback Reader
}

// NewRegistry creates a registry with the given fallback reader.
func NewRegistry(fallback Reader) *Registry {
	return &Registry{
		byExt:    make(map[string]Reader),
		fallback: fallback,
	}
}

// Register adds a reader for its declared extensions. Later
// registrations win on conflict.
func (r *Registry) Register(reader Reader) {
	for _, ext := range reader.Extensions() {
		r.byExt[ext] = reader
	}
}

// ForFile returns the reader for the given filename.
func (r *Registry) ForFile(name string) Reader {
	ext := strings.ToLower(filepath.Ext(name))
	if reader, ok := r.byExt[ext]; ok {
		return reader
	}
	return r.fallback
}
