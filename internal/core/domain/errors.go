package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidChunking indicates a chunker configuration that cannot
	// make progress, such as an overlap equal to or larger than the
	// chunk size. This is a configuration error and fails fast.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrEmptyDocument indicates ingestion received no extractable text.
	// The document is marked failed and is not retried automatically.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrDimensionMismatch indicates a vector whose dimensionality does
	// not match the index. The entry is rejected, never silently padded.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidTransition indicates a document status change that the
	// lifecycle state machine does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrIndexCorrupted indicates the vector index is unusable and the
	// collection must be rebuilt from stored chunk text.
	ErrIndexCorrupted = errors.New("vector index corrupted")

	// ErrAllBackendsFailed indicates every configured LLM backend was
	// tried and none produced a response. The wrapped error preserves
	// the per-backend reasons for diagnostics.
	ErrAllBackendsFailed = errors.New("all backends failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Ingestion and retrieval cannot run without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
