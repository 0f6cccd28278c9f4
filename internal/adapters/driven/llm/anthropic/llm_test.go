package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*LLMService, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	svc, err := NewLLMService(Config{APIKey: "sk-test", BaseURL: server.URL, Name: "primary"})
	require.NoError(t, err)
	return svc, server.Close
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	svc, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// System messages travel in the dedicated field.
		assert.Equal(t, "be helpful", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "Hello "},
				{"type": "text", "text": "there"},
			},
			"stop_reason": "end_turn",
		})
	})
	defer cleanup()

	got, err := svc.Generate(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hi"},
	}, driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", got)
}

func TestGenerate_ClassifiesStatuses(t *testing.T) {
	tests := []struct {
		status int
		kind   driven.FailureKind
	}{
		{http.StatusUnauthorized, driven.FailureAuth},
		{http.StatusForbidden, driven.FailureAuth},
		{http.StatusTooManyRequests, driven.FailureRateLimit},
		{http.StatusBadRequest, driven.FailureInvalidRequest},
		{http.StatusInternalServerError, driven.FailureInternal},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			svc, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"type": "x", "message": "boom"},
				})
			})
			defer cleanup()

			_, err := svc.Generate(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.GenerateOptions{})
			pe, ok := driven.AsProviderError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, "primary", pe.Backend)
		})
	}
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	svc, err := NewLLMService(Config{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.GenerateOptions{})
	pe, ok := driven.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, driven.FailureConnection, pe.Kind)
	assert.True(t, pe.Retryable())
}

func TestGenerateStream(t *testing.T) {
	svc, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: message_start\n"))
		w.Write([]byte(`data: {"type":"message_start"}` + "\n\n"))
		w.Write([]byte(`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}` + "\n\n"))
		w.Write([]byte(`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}` + "\n\n"))
		w.Write([]byte(`data: {"type":"message_stop"}` + "\n\n"))
	})
	defer cleanup()

	events, err := svc.GenerateStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.GenerateOptions{})
	require.NoError(t, err)

	var text string
	var sawDone bool
	for ev := range events {
		switch ev.Kind {
		case driven.EventDelta:
			assert.False(t, sawDone, "no events after terminal")
			text += ev.Delta
		case driven.EventDone:
			sawDone = true
		case driven.EventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
	}
	assert.Equal(t, "Hello", text)
	assert.True(t, sawDone)
}

func TestGenerateStream_MidStreamError(t *testing.T) {
	svc, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}` + "\n\n"))
		w.Write([]byte(`data: {"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}` + "\n\n"))
	})
	defer cleanup()

	events, err := svc.GenerateStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.GenerateOptions{})
	require.NoError(t, err)

	var last driven.StreamEvent
	for ev := range events {
		last = ev
	}
	require.Equal(t, driven.EventError, last.Kind)
	assert.Contains(t, last.Err.Error(), "overloaded")
}

func TestGenerateStream_AuthErrorBeforeStream(t *testing.T) {
	svc, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer cleanup()

	_, err := svc.GenerateStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.GenerateOptions{})
	pe, ok := driven.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, driven.FailureAuth, pe.Kind)
}

func TestPing(t *testing.T) {
	svc, cleanup := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	defer cleanup()

	assert.NoError(t, svc.Ping(context.Background()))
}
