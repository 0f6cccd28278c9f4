package ollama

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

func newTestService(handler http.HandlerFunc) (*LLMService, func()) {
	server := httptest.NewServer(handler)
	svc := NewLLMService(Config{BaseURL: server.URL})
	return svc, server.Close
}

func TestGenerate(t *testing.T) {
	svc, cleanup := newTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3.1", req.Model)

		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "local answer"},
			"done":    true,
		})
	})
	defer cleanup()

	got, err := svc.Generate(context.Background(), []driven.ChatMessage{{Role: "user", Content: "q"}}, driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "local answer", got)
}

func TestGenerate_PassesOptions(t *testing.T) {
	svc, cleanup := newTestService(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Options)
		assert.Equal(t, 256, req.Options.NumPredict)
		assert.Equal(t, 0.7, req.Options.Temperature)

		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "ok"}, "done": true,
		})
	})
	defer cleanup()

	_, err := svc.Generate(context.Background(), []driven.ChatMessage{{Role: "user", Content: "q"}},
		driven.GenerateOptions{MaxTokens: 256, Temperature: 0.7})
	require.NoError(t, err)
}

func TestGenerateStream_NDJSON(t *testing.T) {
	svc, cleanup := newTestService(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"lo"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"content":"cal"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"content":""},"done":true}` + "\n"))
	})
	defer cleanup()

	events, err := svc.GenerateStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "q"}}, driven.GenerateOptions{})
	require.NoError(t, err)

	var text string
	var terminal driven.EventKind
	for ev := range events {
		if ev.Kind == driven.EventDelta {
			text += ev.Delta
		} else {
			terminal = ev.Kind
		}
	}
	assert.Equal(t, "local", text)
	assert.Equal(t, driven.EventDone, terminal)
}

func TestGenerateStream_ErrorLine(t *testing.T) {
	svc, cleanup := newTestService(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not loaded"}` + "\n"))
	})
	defer cleanup()

	events, err := svc.GenerateStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "q"}}, driven.GenerateOptions{})
	require.NoError(t, err)

	var last driven.StreamEvent
	for ev := range events {
		last = ev
	}
	require.Equal(t, driven.EventError, last.Kind)
	assert.Contains(t, last.Err.Error(), "model not loaded")
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	svc := NewLLMService(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := svc.Generate(context.Background(), []driven.ChatMessage{{Role: "user", Content: "q"}}, driven.GenerateOptions{})
	pe, ok := driven.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, driven.FailureConnection, pe.Kind)
	assert.Equal(t, "ollama", pe.Backend)
}
