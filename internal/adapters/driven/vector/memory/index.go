// Package memory provides a flat in-memory vector index using
// brute-force inner-product search over L2-normalized vectors.
//
// Exact search is acceptable at single-user collection scale; the
// driven.VectorIndex contract leaves room for a partitioned index
// behind the same interface when corpora outgrow it.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one stored vector. Slice position encodes insertion order,
// which breaks score ties deterministically.
type entry struct {
	chunkID    string
	documentID string
	vector     []float32
}

// Index is an in-memory implementation of driven.VectorIndex.
//
// Writers (Upsert, RemoveDocument) take the exclusive lock; Search takes
// the shared lock, so searches never block each other but always see a
// fully applied batch.
type Index struct {
	mu      sync.RWMutex
	dims    int
	entries []entry
	slots   map[string]int // chunk id -> position in entries
}

// NewIndex creates an index for vectors of the given dimensionality.
func NewIndex(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", domain.ErrInvalidInput, dims)
	}
	return &Index{
		dims:  dims,
		slots: make(map[string]int),
	}, nil
}

// Upsert inserts or replaces vectors as one atomic batch.
func (x *Index) Upsert(_ context.Context, entries []domain.VectorEntry) []error {
	results := make([]error, len(entries))

	x.mu.Lock()
	defer x.mu.Unlock()

	for i, e := range entries {
		if len(e.Vector) != x.dims {
			results[i] = fmt.Errorf("%w: got %d, index holds %d", domain.ErrDimensionMismatch, len(e.Vector), x.dims)
			continue
		}
		normalized := normalize(e.Vector)
		if slot, ok := x.slots[e.ChunkID]; ok {
			// Replacement keeps the original slot so insertion-order
			// tie-breaking stays stable.
			x.entries[slot].documentID = e.DocumentID
			x.entries[slot].vector = normalized
			continue
		}
		x.slots[e.ChunkID] = len(x.entries)
		x.entries = append(x.entries, entry{
			chunkID:    e.ChunkID,
			documentID: e.DocumentID,
			vector:     normalized,
		})
	}

	return results
}

// Search returns the k best hits by inner product, ties broken by
// insertion order.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(query) != x.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index holds %d", domain.ErrDimensionMismatch, len(query), x.dims)
	}

	q := normalize(query)

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) == 0 {
		return nil, nil
	}

	order := make([]int, len(x.entries))
	scores := make([]float64, len(x.entries))
	for i := range x.entries {
		order[i] = i
		scores[i] = dot(x.entries[i].vector, q)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		slot := order[i]
		hits[i] = driven.VectorHit{
			ChunkID:    x.entries[slot].chunkID,
			DocumentID: x.entries[slot].documentID,
			Score:      scores[slot],
		}
	}
	return hits, nil
}

// RemoveDocument removes every vector belonging to a document in one
// exclusive section, so concurrent searches see all of them or none.
func (x *Index) RemoveDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	kept := x.entries[:0]
	for _, e := range x.entries {
		if e.documentID == documentID {
			delete(x.slots, e.chunkID)
			continue
		}
		kept = append(kept, e)
	}
	x.entries = kept
	for i, e := range x.entries {
		x.slots[e.chunkID] = i
	}
	return nil
}

// Len returns the number of stored vectors.
func (x *Index) Len(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// normalize returns an L2-normalized copy. A zero vector is returned
// unchanged; it scores zero against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
