package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentStore persists documents and chunks.
//
// It is the single source of truth mapping a document to its chunk ids.
// Backed by SQLite for durable metadata storage, or memory for tests.
type DocumentStore interface {
	// SaveDocument stores a new document record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SetStatus advances a document through the ingestion lifecycle.
	// Transitions the state machine forbids return
	// domain.ErrInvalidTransition. reason is recorded for failed.
	SetStatus(ctx context.Context, id string, status domain.Status, reason string) error

	// SaveChunks stores the chunks for a document, replacing any prior set.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document in ordinal order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListDocuments returns documents in a collection, newest first.
	ListDocuments(ctx context.Context, collection string) ([]domain.Document, error)

	// NextVersion returns the version number a fresh upload of filename
	// should carry: one past the highest existing version, or 1.
	NextVersion(ctx context.Context, collection, filename string) (int, error)

	// DeleteDocument removes a document and its chunks. Removing the
	// document's vectors from the index is the caller's responsibility.
	DeleteDocument(ctx context.Context, id string) error
}
