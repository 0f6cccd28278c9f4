package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// AskOptions configures one chat request.
type AskOptions struct {
	// Collection scopes retrieval to one document collection.
	Collection string

	// DocumentIDs optionally narrows retrieval to specific documents.
	DocumentIDs []string

	// Lang is the language tag of the user message.
	Lang string

	// ModelPreference names the backend to try first. Empty means the
	// configured priority order.
	ModelPreference string
}

// Answer is a complete, non-streamed chat response.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Citations point at the retrieved chunks grounding the answer,
	// highest score first.
	Citations []domain.Citation

	// Grounded is false when retrieval returned no context and the
	// answer relies on the model's general knowledge.
	Grounded bool

	// Backend names the backend that produced the answer.
	Backend string
}

// ChatService answers user queries grounded in ingested documents.
//
// Requests for the same session are serialized; concurrent requests
// from different sessions proceed independently.
type ChatService interface {
	// Ask answers a query and records the exchange in the session.
	// On failure nothing is appended to the session, so the unanswered
	// message can be retried without retyping.
	Ask(ctx context.Context, sessionID, query string, opts AskOptions) (*Answer, error)

	// AskStream answers a query, streaming fragments as they are
	// generated. Citations are resolved before generation starts. The
	// event channel terminates with EventDone or EventError; cancelling
	// ctx stops emission within one fragment's latency.
	AskStream(ctx context.Context, sessionID, query string, opts AskOptions) (*StreamHandle, error)

	// History returns the session's retained turns, oldest first.
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Clear removes all turns for a session, immediately and totally.
	Clear(ctx context.Context, sessionID string) error
}

// StreamHandle carries a streamed answer and its pre-resolved context.
type StreamHandle struct {
	// Citations point at the retrieved chunks grounding the answer.
	Citations []domain.Citation

	// Grounded is false when retrieval returned no context.
	Grounded bool

	// Backend names the backend serving the stream.
	Backend string

	// Events delivers fragments and exactly one terminal marker. The
	// channel is unbuffered and the session stays locked until it is
	// closed: consumers must either drain Events or cancel the ctx
	// passed to AskStream. Walking away without doing either wedges
	// the session.
	Events <-chan driven.StreamEvent
}

// Retriever exposes similarity retrieval to external actors.
type Retriever interface {
	// Retrieve embeds the query and returns the top-k most relevant
	// chunks, optionally scoped to specific documents. An empty index
	// yields an empty result, never an error.
	Retrieve(ctx context.Context, query string, k int, documentIDs []string) (domain.RetrievalResult, error)
}
