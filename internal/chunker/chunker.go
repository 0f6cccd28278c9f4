// Package chunker splits normalized document text into overlapping
// fixed-size chunks for retrieval indexing.
//
// Chunk boundaries are pure fixed-size rune windows rather than sentence
// or paragraph breaks; fixed windows with overlap are deterministic and
// keep the no-content-loss invariant trivial to verify.
package chunker

import (
	"fmt"
	"strconv"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 200

// Chunker produces overlapping fixed-size chunks. Size and overlap are
// measured in runes so a boundary never splits a multibyte character.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. overlap >= size cannot make progress and is a
// configuration error, not something to clamp silently.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be positive", domain.ErrInvalidChunking, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", domain.ErrInvalidChunking, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", domain.ErrInvalidChunking, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into chunks for the given document. The span layout is
// deterministic for the same input and configuration: successive windows
// advance by size-overlap runes, the trailing remainder is always
// emitted, and text shorter than one window yields exactly one chunk.
// Empty text yields no chunks.
func (c *Chunker) Split(documentID, text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	step := c.size - c.overlap

	chunks := make([]domain.Chunk, 0, total/step+1)
	ordinal := 0

	for start := 0; start < total; start += step {
		end := start + c.size
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(documentID, ordinal),
			DocumentID: documentID,
			Ordinal:    ordinal,
			Content:    string(runes[start:end]),
			Start:      start,
			End:        end,
		})
		ordinal++

		if end == total {
			break
		}
	}

	return chunks
}

// chunkID derives a stable chunk identifier from the document and
// ordinal, so re-indexing the same document replaces rather than
// duplicates index entries.
func chunkID(documentID string, ordinal int) string {
	return documentID + ":" + strconv.Itoa(ordinal)
}
