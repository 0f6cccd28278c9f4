package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.Retriever = (*RetrieverService)(nil)

// RetrieverService embeds queries and finds the most relevant chunks.
type RetrieverService struct {
	embeddingService driven.EmbeddingService
	vectorIndex      driven.VectorIndex
	docStore         driven.DocumentStore
}

// NewRetrieverService creates a new retriever.
func NewRetrieverService(
	embeddingService driven.EmbeddingService,
	vectorIndex driven.VectorIndex,
	docStore driven.DocumentStore,
) *RetrieverService {
	return &RetrieverService{
		embeddingService: embeddingService,
		vectorIndex:      vectorIndex,
		docStore:         docStore,
	}
}

// Retrieve embeds the query and returns the top-k most relevant chunks,
// hydrated with their stored text. An empty index yields an empty
// result with Grounded false, never an error.
func (s *RetrieverService) Retrieve(ctx context.Context, query string, k int, documentIDs []string) (domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, k: %d", query, k)

	query = strings.TrimSpace(query)
	if query == "" {
		return domain.RetrievalResult{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = 5
	}

	queryVec, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embedding query: %w", err)
	}

	allowed := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = true
	}

	// Over-fetch when a document filter is active so enough hits survive
	// post-filtering. If the over-fetch still comes up short the search
	// widens until k in-scope chunks are found or the index is exhausted,
	// so a small scoped collection inside a large corpus is never missed.
	searchK := k
	if len(allowed) > 0 {
		searchK = k * 4
		logger.Debug("Document filter: %v", documentIDs)
	}

	var scored []domain.ScoredChunk
	for {
		hits, err := s.vectorIndex.Search(ctx, queryVec, searchK)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("searching index: %w", err)
		}
		logger.Debug("Index returned %d hits", len(hits))

		scored = scored[:0]
		for _, hit := range hits {
			if len(allowed) > 0 && !allowed[hit.DocumentID] {
				continue
			}

			chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
			if err != nil {
				// An index entry whose chunk row is gone is stale, skip it.
				logger.Warn("Chunk %s in index but not in store", hit.ChunkID)
				continue
			}

			scored = append(scored, domain.ScoredChunk{Chunk: *chunk, Score: hit.Score})
			if len(scored) == k {
				break
			}
		}

		// Fewer hits than requested means the index has nothing more.
		if len(scored) == k || len(allowed) == 0 || len(hits) < searchK {
			break
		}
		searchK *= 2
	}

	logger.Info("Retrieved %d chunks", len(scored))
	return domain.RetrievalResult{
		Chunks:   scored,
		Grounded: len(scored) > 0,
	}, nil
}
