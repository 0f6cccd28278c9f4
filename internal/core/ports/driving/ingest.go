package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// UploadText is one document handed to the ingestion pipeline: plain
// text already extracted by the document-conversion front end. The core
// never parses binary formats itself.
type UploadText struct {
	// Filename is the source file name, used for versioning.
	Filename string

	// Text is the extracted, normalized document text.
	Text string
}

// IngestService runs the chunk -> embed -> index pipeline.
type IngestService interface {
	// Ingest runs the full pipeline for one document and returns its
	// record. A pipeline failure marks the document failed and returns
	// the error; other documents are unaffected.
	Ingest(ctx context.Context, collection string, upload UploadText) (*domain.Document, error)

	// IngestBatch ingests several documents, running up to the
	// configured number concurrently. Cancelling ctx stops the batch
	// between documents; a document already past registration finishes
	// or fails on its own. Per-document errors are recorded on the
	// document records; the returned error aggregates them.
	IngestBatch(ctx context.Context, collection string, uploads []UploadText) ([]*domain.Document, error)

	// Delete removes a document, cascading to its vectors.
	Delete(ctx context.Context, documentID string) error

	// Rebuild re-embeds and re-indexes every indexed document in the
	// collection from stored chunk text. Used after index corruption.
	Rebuild(ctx context.Context, collection string) error

	// List returns the documents in a collection with their statuses.
	List(ctx context.Context, collection string) ([]domain.Document, error)
}
