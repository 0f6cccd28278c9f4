package domain

import "time"

// Status tracks a document through the ingestion pipeline.
type Status string

// Document lifecycle states.
//
// The state machine is pending -> chunked -> indexed, with any
// non-terminal state able to fail. Indexed and failed are terminal:
// a failed document is re-submitted as a new Document record so the
// audit trail of what was attempted survives.
const (
	StatusPending Status = "pending"
	StatusChunked Status = "chunked"
	StatusIndexed Status = "indexed"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusChunked, StatusIndexed, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

// CanTransition reports whether the lifecycle permits moving to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusChunked || next == StatusFailed
	case StatusChunked:
		return next == StatusIndexed || next == StatusFailed
	default:
		return false
	}
}

// Document represents one ingested document.
// It is created on upload and is immutable once indexed; re-uploading
// the same filename creates a new version rather than mutating in place.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the source file name as supplied by the uploader.
	Filename string

	// Collection groups documents owned by one logical corpus.
	Collection string

	// Version distinguishes re-uploads of the same filename.
	// The first upload is version 1.
	Version int

	// Status is the current pipeline state.
	Status Status

	// FailReason holds a human-readable reason when Status is failed.
	FailReason string

	// CreatedAt is when the document record was created.
	CreatedAt time.Time

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Chunk represents a retrieval unit cut from a document's normalized text.
//
// Chunks from one document cover the full text with configurable overlap.
// Offsets are rune positions into the normalized text so boundaries never
// split a multibyte character.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Ordinal is the position within the document, starting at 0.
	Ordinal int

	// Content is the text content of this chunk.
	Content string

	// Start is the rune offset of the chunk's first character.
	Start int

	// End is the rune offset one past the chunk's last character.
	End int

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// VectorEntry is a chunk vector handed to the vector index.
// Vectors are L2-normalized at insertion time so inner product can
// stand in for cosine similarity.
type VectorEntry struct {
	// ChunkID identifies the chunk the vector belongs to.
	ChunkID string

	// DocumentID identifies the owning document, used for cascade removal.
	DocumentID string

	// Vector is the d-dimensional embedding.
	Vector []float32
}
