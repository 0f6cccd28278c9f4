// Package anthropic provides an LLM service adapter using Anthropic API.
package anthropic

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
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-5"
	DefaultTimeout = 120 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// Name identifies this backend in errors (default: "anthropic").
	Name string

	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-sonnet-4-5).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Anthropic API.
type LLMService struct {
	client  *http.Client
	name    string
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// streamEvent is one SSE event in the Anthropic streaming format.
type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Name == "" {
		cfg.Name = "anthropic"
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

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", s.providerErr(driven.FailureInternal, fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if msgResp.Error != nil {
			msg = msgResp.Error.Message
		}
		return "", s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("anthropic status %d: %s", resp.StatusCode, msg))
	}

	if len(msgResp.Content) == 0 {
		return "", s.providerErr(driven.FailureInternal, errors.New("anthropic: no response content returned"))
	}

	// Concatenate all text content blocks
	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}

	return result.String(), nil
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
		return nil, s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(body)))
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

			var event streamEvent
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Text != "" {
					if !emit(driven.StreamEvent{Kind: driven.EventDelta, Delta: event.Delta.Text}) {
						return
					}
				}
			case "message_stop":
				emit(driven.StreamEvent{Kind: driven.EventDone})
				return
			case "error":
				msg := "stream error"
				if event.Error != nil {
					msg = event.Error.Message
				}
				emit(driven.StreamEvent{Kind: driven.EventError, Err: s.providerErr(driven.FailureInternal, errors.New(msg))})
				return
			}
		}

		if err := scanner.Err(); err != nil {
			emit(driven.StreamEvent{Kind: driven.EventError, Err: s.providerErr(s.classifyTransport(ctx, err), err)})
			return
		}
		// Stream ended without message_stop; treat EOF as completion.
		emit(driven.StreamEvent{Kind: driven.EventDone})
	}()

	return events, nil
}

// send issues the /v1/messages request shared by both generation modes.
func (s *LLMService) send(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions, stream bool) (*http.Response, error) {
	// The system prompt travels in its own field, not the message list.
	var systemPrompt string
	apiMessages := make([]messagesMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			systemPrompt = msg.Content
			continue
		}
		apiMessages = append(apiMessages, messagesMessage{Role: msg.Role, Content: msg.Content})
	}

	// Anthropic requires max_tokens to be set
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	reqBody := messagesRequest{
		Model:     s.model,
		Messages:  apiMessages,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Stream:    stream,
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}
	if len(opts.StopWords) > 0 {
		reqBody.StopSeqs = opts.StopWords
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, s.providerErr(driven.FailureInvalidRequest, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, s.providerErr(driven.FailureInvalidRequest, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

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

// Ping validates the service is reachable by checking the /v1/models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.providerErr(s.classifyTransport(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.providerErr(classifyStatus(resp.StatusCode), fmt.Errorf("anthropic: API returned status %d", resp.StatusCode))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
