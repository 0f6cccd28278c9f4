package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// VectorIndex stores chunk vectors and answers nearest-neighbour queries.
//
// Vectors are L2-normalized at insertion time so similarity search uses
// inner product as a proxy for cosine similarity. The index exclusively
// owns vector storage; chunk metadata lives in the DocumentStore.
//
// Exact brute-force search is acceptable at single-user collection scale
// (tens of thousands of chunks). A partitioned or quantized implementation
// must preserve this same contract.
type VectorIndex interface {
	// Upsert inserts or replaces vectors, one result per entry in input
	// order (nil on success). Inserting an existing chunk id replaces
	// the prior vector but keeps its original insertion order for
	// tie-breaking. The whole batch is applied under one exclusive
	// section so a concurrent Search never observes a half-indexed
	// document. Entries whose dimensionality does not match the index
	// fail with domain.ErrDimensionMismatch.
	Upsert(ctx context.Context, entries []domain.VectorEntry) []error

	// Search finds the k nearest neighbours to the query vector.
	// It returns at most k hits in non-increasing score order; ties are
	// broken by insertion order (earliest first) so results stay
	// deterministic. Fewer than k stored vectors returns all of them;
	// an empty index returns no hits and no error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// RemoveDocument removes all vectors belonging to a document.
	// The removal is atomic with respect to concurrent Search calls:
	// a search sees the old state fully or the new state fully.
	RemoveDocument(ctx context.Context, documentID string) error

	// Len returns the number of stored vectors.
	Len(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the chunk's owning document.
	DocumentID string

	// Score is the inner-product similarity against the normalized query.
	Score float64
}
