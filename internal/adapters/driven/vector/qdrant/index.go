// Package qdrant provides a vector index adapter backed by a remote
// Qdrant instance over its REST API.
//
// It is the upgrade path from the flat in-memory index for corpora that
// outgrow brute-force search, behind the same driven.VectorIndex
// contract. One caveat: equal-score ties follow the server's internal
// order rather than insertion order.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// pointNamespace derives stable Qdrant point UUIDs from chunk ids, so
// re-upserting a chunk replaces its point.
var pointNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Config holds configuration for the Qdrant index.
type Config struct {
	// BaseURL is the Qdrant REST endpoint (default: http://localhost:6333).
	BaseURL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Collection is the Qdrant collection name (required).
	Collection string

	// Dimensions is the vector size (required).
	Dimensions int

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Index is a Qdrant-backed implementation of driven.VectorIndex.
type Index struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dims       int
}

// NewIndex creates a Qdrant index client.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Index{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dims:       cfg.Dimensions,
	}, nil
}

// Init creates the collection if it does not exist. Vectors are stored
// with Dot distance; the adapter normalizes locally so inner product
// equals cosine similarity.
func (x *Index) Init(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     x.dims,
			"distance": "Dot",
		},
	}
	return x.putJSON(ctx, fmt.Sprintf("/collections/%s", x.collection), body, nil)
}

// Upsert inserts or replaces vectors. Qdrant applies the batch
// atomically with wait=true; entries failing local dimension validation
// are rejected before anything is sent.
func (x *Index) Upsert(ctx context.Context, entries []domain.VectorEntry) []error {
	results := make([]error, len(entries))

	points := make([]map[string]any, 0, len(entries))
	accepted := make([]int, 0, len(entries))
	for i, e := range entries {
		if len(e.Vector) != x.dims {
			results[i] = fmt.Errorf("%w: got %d, index holds %d", domain.ErrDimensionMismatch, len(e.Vector), x.dims)
			continue
		}
		points = append(points, map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(e.ChunkID)).String(),
			"vector": normalize(e.Vector),
			"payload": map[string]any{
				"chunk_id":    e.ChunkID,
				"document_id": e.DocumentID,
			},
		})
		accepted = append(accepted, i)
	}
	if len(points) == 0 {
		return results
	}

	err := x.putJSON(ctx, fmt.Sprintf("/collections/%s/points?wait=true", x.collection), map[string]any{"points": points}, nil)
	if err != nil {
		for _, i := range accepted {
			results[i] = err
		}
	}
	return results
}

// Search returns the k best hits by inner product.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(query) != x.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index holds %d", domain.ErrDimensionMismatch, len(query), x.dims)
	}

	req := map[string]any{
		"vector":       normalize(query),
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := x.postJSON(ctx, fmt.Sprintf("/collections/%s/points/search", x.collection), req, &resp); err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := driven.VectorHit{Score: r.Score}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			hit.ChunkID = v
		}
		if v, ok := r.Payload["document_id"].(string); ok {
			hit.DocumentID = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// RemoveDocument deletes all points whose payload references the document.
func (x *Index) RemoveDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	return x.postJSON(ctx, fmt.Sprintf("/collections/%s/points/delete?wait=true", x.collection), body, nil)
}

// Len returns the exact number of stored vectors.
func (x *Index) Len(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := x.postJSON(ctx, fmt.Sprintf("/collections/%s/points/count", x.collection), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

func (x *Index) putJSON(ctx context.Context, path string, body, out any) error {
	return x.doJSON(ctx, http.MethodPut, path, body, out)
}

func (x *Index) postJSON(ctx context.Context, path string, body, out any) error {
	return x.doJSON(ctx, http.MethodPost, path, body, out)
}

func (x *Index) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s: %s", method, path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// normalize returns an L2-normalized copy as float64 for JSON encoding.
func normalize(v []float32) []float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float64, len(v))
	if sum == 0 {
		for i, f := range v {
			out[i] = float64(f)
		}
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, f := range v {
		out[i] = float64(f) * inv
	}
	return out
}
