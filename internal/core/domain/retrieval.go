package domain

// ScoredChunk pairs a chunk with its similarity score.
type ScoredChunk struct {
	// Chunk is the matched chunk, hydrated with content where available.
	Chunk Chunk

	// Score is the inner-product similarity against the query vector.
	Score float64
}

// RetrievalResult is an ordered sequence of scored chunks, highest score
// first, bounded to the requested top-K. Scores are non-increasing.
type RetrievalResult struct {
	// Chunks holds the hits in descending score order.
	Chunks []ScoredChunk

	// Grounded reports whether any context was retrieved. An answer
	// generated from an empty result is flagged as ungrounded.
	Grounded bool
}

// Citation points a UI at the source of one retrieved chunk.
type Citation struct {
	// DocumentID is the owning document.
	DocumentID string

	// Ordinal is the chunk position within the document.
	Ordinal int

	// Score is the similarity score of the hit.
	Score float64
}

// Citations derives citation records from the retrieval result,
// preserving score order.
func (r RetrievalResult) Citations() []Citation {
	if len(r.Chunks) == 0 {
		return nil
	}
	citations := make([]Citation, len(r.Chunks))
	for i, sc := range r.Chunks {
		citations[i] = Citation{
			DocumentID: sc.Chunk.DocumentID,
			Ordinal:    sc.Chunk.Ordinal,
			Score:      sc.Score,
		}
	}
	return citations
}
