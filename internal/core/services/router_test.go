package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func connectionErr(backendName string) *driven.ProviderError {
	return &driven.ProviderError{
		Backend: backendName,
		Kind:    driven.FailureConnection,
		Err:     errors.New("connection refused"),
	}
}

func userMessage(text string) []driven.ChatMessage {
	return []driven.ChatMessage{{Role: "user", Content: text}}
}

func TestRouter_FirstBackendWins(t *testing.T) {
	primary := &mockLLMService{response: "from primary"}
	fallback := &mockLLMService{response: "from fallback"}

	router := NewRouter()
	router.AddBackend("primary", primary, time.Minute, 0)
	router.AddBackend("fallback", fallback, time.Minute, 0)

	text, name, err := router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	require.NoError(t, err)
	assert.Equal(t, "from primary", text)
	assert.Equal(t, "primary", name)
	assert.Equal(t, 0, fallback.calls)
}

func TestRouter_FallsBackOnRetryableFailure(t *testing.T) {
	primary := &mockLLMService{generateErr: connectionErr("primary")}
	fallback := &mockLLMService{response: "rescued"}

	router := NewRouter()
	router.AddBackend("primary", primary, time.Minute, 0)
	router.AddBackend("fallback", fallback, time.Minute, 0)

	text, name, err := router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	require.NoError(t, err)
	assert.Equal(t, "rescued", text)
	assert.Equal(t, "fallback", name)
}

func TestRouter_InvalidRequestAbortsImmediately(t *testing.T) {
	primary := &mockLLMService{generateErr: &driven.ProviderError{
		Backend: "primary",
		Kind:    driven.FailureInvalidRequest,
		Err:     errors.New("context too long"),
	}}
	fallback := &mockLLMService{response: "should not run"}

	router := NewRouter()
	router.AddBackend("primary", primary, time.Minute, 0)
	router.AddBackend("fallback", fallback, time.Minute, 0)

	_, _, err := router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	require.Error(t, err)
	assert.Equal(t, 0, fallback.calls)

	pe, ok := driven.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, driven.FailureInvalidRequest, pe.Kind)
}

func TestRouter_AllBackendsFailed(t *testing.T) {
	router := NewRouter()
	router.AddBackend("a", &mockLLMService{generateErr: connectionErr("a")}, time.Minute, 0)
	router.AddBackend("b", &mockLLMService{generateErr: connectionErr("b")}, time.Minute, 0)

	_, _, err := router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	assert.ErrorIs(t, err, domain.ErrAllBackendsFailed)
	assert.Contains(t, err.Error(), "a: connection")
	assert.Contains(t, err.Error(), "b: connection")
}

func TestRouter_PreferenceReordersBackends(t *testing.T) {
	first := &mockLLMService{response: "first"}
	second := &mockLLMService{response: "second"}

	router := NewRouter()
	router.AddBackend("first", first, time.Minute, 0)
	router.AddBackend("second", second, time.Minute, 0)

	text, name, err := router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", text)
	assert.Equal(t, "second", name)
	assert.Equal(t, 0, first.calls)
}

func TestRouter_UnknownPreferenceUsesPriorityOrder(t *testing.T) {
	first := &mockLLMService{response: "first"}

	router := NewRouter()
	router.AddBackend("first", first, time.Minute, 0)

	_, name, err := router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "nope")
	require.NoError(t, err)
	assert.Equal(t, "first", name)
}

func TestRouter_LocalRateLimitTriggersFallback(t *testing.T) {
	throttled := &mockLLMService{response: "throttled"}
	fallback := &mockLLMService{response: "rescued"}

	router := NewRouter()
	// 0.001 rps with burst 1: the second call within the window is denied.
	router.AddBackend("throttled", throttled, time.Minute, 0.001)
	router.AddBackend("fallback", fallback, time.Minute, 0)

	_, name, err := router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	require.NoError(t, err)
	assert.Equal(t, "throttled", name)

	_, name, err = router.Generate(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	require.NoError(t, err)
	assert.Equal(t, "fallback", name)
	assert.Equal(t, 1, throttled.calls)
}

func TestRouter_GenerateStream_FallsBackBeforeFirstFragment(t *testing.T) {
	primary := &mockLLMService{streamErr: connectionErr("primary")}
	fallback := &mockLLMService{streamParts: []string{"res", "cued"}}

	router := NewRouter()
	router.AddBackend("primary", primary, time.Minute, 0)
	router.AddBackend("fallback", fallback, time.Minute, 0)

	events, name, err := router.GenerateStream(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	require.NoError(t, err)
	assert.Equal(t, "fallback", name)

	var text string
	for ev := range events {
		if ev.Kind == driven.EventDelta {
			text += ev.Delta
		}
	}
	assert.Equal(t, "rescued", text)
}

func TestRouter_GenerateStream_NoFallbackMidStream(t *testing.T) {
	failure := connectionErr("primary")
	primary := &mockLLMService{streamParts: []string{"partial"}, streamFail: failure}
	fallback := &mockLLMService{streamParts: []string{"never"}}

	router := NewRouter()
	router.AddBackend("primary", primary, time.Minute, 0)
	router.AddBackend("fallback", fallback, time.Minute, 0)

	events, name, err := router.GenerateStream(context.Background(), userMessage("q"), driven.GenerateOptions{}, "")
	require.NoError(t, err)
	assert.Equal(t, "primary", name)

	var last driven.StreamEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, driven.EventError, last.Kind)
	assert.Equal(t, 0, fallback.calls)
}

func TestRouter_CancelledContext(t *testing.T) {
	router := NewRouter()
	router.AddBackend("a", &mockLLMService{response: "x"}, time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := router.Generate(ctx, userMessage("q"), driven.GenerateOptions{}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouter_Backends(t *testing.T) {
	router := NewRouter()
	router.AddBackend("a", &mockLLMService{}, 0, 0)
	router.AddBackend("b", &mockLLMService{}, 0, 0)
	assert.Equal(t, []string{"a", "b"}, router.Backends())
}
