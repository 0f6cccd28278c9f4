// Package openai provides an LLM service adapter using OpenAI API.
package openai

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
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI LLM service.
type Config struct {
	// Name identifies this backend in errors (default: "openai").
	Name string

	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using OpenAI API.
type LLMService struct {
	client  *http.Client
	name    string
	baseURL string
	apiKey  string
	model   string
}

// chatRequest is the OpenAI chat completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// chatMessage is the OpenAI message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI chat completions response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// chatStreamChunk is one SSE chunk in the streaming response.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
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
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
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

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", s.providerErr(driven.FailureInternal, fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if chatResp.Error != nil {
			msg = chatResp.Error.Message
		}
		return "", s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("openai status %d: %s", resp.StatusCode, msg))
	}

	if len(chatResp.Choices) == 0 {
		return "", s.providerErr(driven.FailureInternal, errors.New("openai: no choices returned"))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// GenerateStream produces the response incrementally via server-sent
// events. The returned channel is closed after a terminal event.
func (s *LLMService) GenerateStream(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (<-chan driven.StreamEvent, error) {
	resp, err := s.send(ctx, messages, opts, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("openai status %d: %s", resp.StatusCode, string(body)))
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
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			line = strings.TrimPrefix(line, "data: ")

			if line == "[DONE]" {
				emit(driven.StreamEvent{Kind: driven.EventDone})
				return
			}

			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				if !emit(driven.StreamEvent{Kind: driven.EventDelta, Delta: delta}) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			emit(driven.StreamEvent{Kind: driven.EventError, Err: s.providerErr(s.classifyTransport(ctx, err), err)})
			return
		}
		// Stream ended without [DONE]; treat EOF as completion.
		emit(driven.StreamEvent{Kind: driven.EventDone})
	}()

	return events, nil
}

// send issues the chat completions request shared by both generation modes.
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
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}
	if len(opts.StopWords) > 0 {
		reqBody.Stop = opts.StopWords
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, s.providerErr(driven.FailureInvalidRequest, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, s.providerErr(driven.FailureInvalidRequest, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

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

// classifyStatus maps an HTTP status to a failure class.
func classifyStatus(status int) driven.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return driven.FailureAuth
	case status == http.StatusTooManyRequests:
		return driven.FailureRateLimit
	case status >= 400 && status < 500:
		return driven.FailureInvalidRequest
	default:
		return driven.FailureInternal
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.providerErr(s.classifyTransport(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("openai: API returned status %d", resp.StatusCode))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
