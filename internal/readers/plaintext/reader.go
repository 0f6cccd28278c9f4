// Package plaintext passes file content through unchanged. It is the
// fallback for extensions no other reader claims.
package plaintext

import "unicode/utf8"

// Reader handles plain text files.
type Reader struct{}

// New creates a plain text reader.
func New() *Reader {
	return &Reader{}
}

// Extensions returns the file extensions this reader handles.
func (r *Reader) Extensions() []string {
	return []string{".txt", ".log", ".csv", ".json", ".yaml", ".yml", ".toml"}
}

// Extract returns the content as a string. Invalid UTF-8 sequences are
// replaced so downstream rune-offset chunking stays well defined.
func (r *Reader) Extract(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	return string([]rune(string(data))), nil
}
