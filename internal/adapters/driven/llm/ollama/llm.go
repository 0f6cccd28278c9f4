// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama LLM service.
type Config struct {
	// Name identifies this backend in errors (default: "ollama").
	Name string

	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.1).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using a local Ollama server.
type LLMService struct {
	client  *http.Client
	name    string
	baseURL string
	model   string
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

// chatMessage is the Ollama message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatOptions tunes generation.
type chatOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// chatResponse is one line of the Ollama /api/chat response. With
// stream enabled each line is a JSON object; the final one has Done set.
type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg Config) *LLMService {
	if cfg.Name == "" {
		cfg.Name = "ollama"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Generate produces a complete text response for the conversation.
func (s *LLMService) Generate(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (string, error) {
	resp, err := s.send(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", s.providerErr(driven.FailureConnection, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(body)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", s.providerErr(driven.FailureInternal, fmt.Errorf("decode response: %w", err))
	}
	if chatResp.Error != "" {
		return "", s.providerErr(driven.FailureInternal, errors.New(chatResp.Error))
	}

	return chatResp.Message.Content, nil
}

// GenerateStream produces the response incrementally. Ollama streams
// newline-delimited JSON objects rather than SSE. The returned channel
// is closed after a terminal event.
func (s *LLMService) GenerateStream(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (<-chan driven.StreamEvent, error) {
	resp, err := s.send(ctx, messages, opts, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(body)))
	}

	events := make(chan driven.StreamEvent)
	go func() {
		defer resp.Body.Close()
		defer close(events)

		emit := func(ev driven.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}

			if chunk.Error != "" {
				emit(driven.StreamEvent{Kind: driven.EventError, Err: s.providerErr(driven.FailureInternal, errors.New(chunk.Error))})
				return
			}
			if chunk.Message.Content != "" {
				if !emit(driven.StreamEvent{Kind: driven.EventDelta, Delta: chunk.Message.Content}) {
					return
				}
			}
			if chunk.Done {
				emit(driven.StreamEvent{Kind: driven.EventDone})
				return
			}
		}

		if err := scanner.Err(); err != nil {
			emit(driven.StreamEvent{Kind: driven.EventError, Err: s.providerErr(s.classifyTransport(ctx, err), err)})
			return
		}
		// Stream ended without a done marker; treat EOF as completion.
		emit(driven.StreamEvent{Kind: driven.EventDone})
	}()

	return events, nil
}

// send issues the /api/chat request shared by both generation modes.
func (s *LLMService) send(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions, stream bool) (*http.Response, error) {
	apiMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		apiMessages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	reqBody := chatRequest{
		Model:    s.model,
		Messages: apiMessages,
		Stream:   stream,
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		reqBody.Options = &chatOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, s.providerErr(driven.FailureInvalidRequest, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, s.providerErr(driven.FailureInvalidRequest, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.providerErr(s.classifyTransport(ctx, err), err)
	}
	return resp, nil
}

// providerErr wraps err with this backend's name and a failure class.
func (s *LLMService) providerErr(kind driven.FailureKind, err error) *driven.ProviderError {
	return &driven.ProviderError{Backend: s.name, Kind: kind, Err: err}
}

// classifyTransport maps a transport-level failure to a failure class.
func (s *LLMService) classifyTransport(ctx context.Context, err error) driven.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return driven.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return driven.FailureTimeout
	}
	return driven.FailureConnection
}

// classifyStatus maps an HTTP status to a failure class. Ollama has no
// auth or rate limits; client errors mean the request itself was bad.
func classifyStatus(status int) driven.FailureKind {
	if status >= 400 && status < 500 {
		return driven.FailureInvalidRequest
	}
	return driven.FailureInternal
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return s.providerErr(s.classifyTransport(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("ollama: API returned status %d", resp.StatusCode))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
