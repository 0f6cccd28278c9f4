package driven

import (
	"context"
	"errors"
	"fmt"
)

// LLMService is one language-model backend capable of answering a
// grounded prompt. Several backends are configured at startup and the
// core routes between them in priority order; each implementation only
// talks to its own service.
//
// Implementations may include:
//   - OpenAI (chat completions)
//   - Anthropic (messages)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a complete text response for the conversation.
	Generate(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (string, error)

	// GenerateStream produces the response incrementally. Events arrive
	// in generation order and the channel is closed after a terminal
	// event (EventDone or EventError) so a consumer never confuses
	// "done" with "failed mid-stream". Cancelling ctx halts emission
	// and releases the backend connection.
	GenerateStream(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (<-chan StreamEvent, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// EventKind discriminates stream events.
type EventKind int

// Stream event kinds. Exactly one terminal event (EventDone or
// EventError) ends every stream.
const (
	// EventDelta carries one fragment of generated text.
	EventDelta EventKind = iota

	// EventDone marks successful end of stream.
	EventDone

	// EventError marks a mid-stream failure. Err carries the reason.
	EventError
)

// StreamEvent is one item in a generation stream.
type StreamEvent struct {
	// Kind says whether this is a fragment or a terminal marker.
	Kind EventKind

	// Delta is the fragment text for EventDelta events.
	Delta string

	// Err is set for EventError events.
	Err error
}

// FailureKind classifies a backend failure for fallback decisions.
type FailureKind int

// Backend failure classes. Connection, auth, rate-limit and timeout
// failures trigger fallback to the next configured backend; an invalid
// request would fail everywhere, so it does not.
const (
	FailureConnection FailureKind = iota
	FailureAuth
	FailureRateLimit
	FailureTimeout
	FailureInvalidRequest
	FailureInternal
)

// String returns a stable reason code for diagnostics.
func (k FailureKind) String() string {
	switch k {
	case FailureConnection:
		return "connection"
	case FailureAuth:
		return "auth"
	case FailureRateLimit:
		return "rate_limit"
	case FailureTimeout:
		return "timeout"
	case FailureInvalidRequest:
		return "invalid_request"
	default:
		return "internal"
	}
}

// ProviderError wraps a backend failure with its classification so the
// router can decide whether to fall back.
type ProviderError struct {
	// Backend names the backend that failed.
	Backend string

	// Kind classifies the failure.
	Kind FailureKind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure should trigger fallback to the
// next backend rather than aborting the whole request.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case FailureConnection, FailureAuth, FailureRateLimit, FailureTimeout:
		return true
	}
	return false
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
