package services

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error
	dims      int
	calls     int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	hits       []driven.VectorHit
	searchErr  error
	upsertErr  error
	removeErr  error
	upserted   []domain.VectorEntry
	removedIDs []string
	searchKs   []int
}

func (m *mockVectorIndex) Upsert(_ context.Context, entries []domain.VectorEntry) []error {
	m.upserted = append(m.upserted, entries...)
	results := make([]error, len(entries))
	if m.upsertErr != nil {
		for i := range results {
			results[i] = m.upsertErr
		}
	}
	return results
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	m.searchKs = append(m.searchKs, k)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) RemoveDocument(_ context.Context, documentID string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removedIDs = append(m.removedIDs, documentID)
	return nil
}

func (m *mockVectorIndex) Len(_ context.Context) (int, error) {
	return len(m.upserted), nil
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	name        string
	response    string
	generateErr error
	streamErr   error
	streamParts []string
	streamFail  error // emitted as EventError after streamParts
	calls       int
	lastPrompt  []driven.ChatMessage
}

func (m *mockLLMService) Generate(_ context.Context, messages []driven.ChatMessage, _ driven.GenerateOptions) (string, error) {
	m.calls++
	m.lastPrompt = messages
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.response, nil
}

func (m *mockLLMService) GenerateStream(_ context.Context, messages []driven.ChatMessage, _ driven.GenerateOptions) (<-chan driven.StreamEvent, error) {
	m.calls++
	m.lastPrompt = messages
	if m.streamErr != nil {
		return nil, m.streamErr
	}

	events := make(chan driven.StreamEvent)
	go func() {
		defer close(events)
		for _, part := range m.streamParts {
			events <- driven.StreamEvent{Kind: driven.EventDelta, Delta: part}
		}
		if m.streamFail != nil {
			events <- driven.StreamEvent{Kind: driven.EventError, Err: m.streamFail}
			return
		}
		events <- driven.StreamEvent{Kind: driven.EventDone}
	}()
	return events, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}
