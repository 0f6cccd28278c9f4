// Package ai builds provider adapters from configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/openai"
	memoryvec "github.com/custodia-labs/docchat/internal/adapters/driven/vector/memory"
	qdrantvec "github.com/custodia-labs/docchat/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/docchat/internal/config"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// NewEmbeddingService creates the embedding adapter named by the
// configuration.
func NewEmbeddingService(cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout(),
		}), nil

	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.ResolveAPIKey(),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout(),
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// NewLLMService creates the LLM adapter for one configured backend.
func NewLLMService(cfg config.BackendConfig) (driven.LLMService, error) {
	switch cfg.Provider {
	case "ollama":
		return ollamallm.NewLLMService(ollamallm.Config{
			Name:    cfg.Name,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		}), nil

	case "openai":
		return openaillm.NewLLMService(openaillm.Config{
			Name:    cfg.Name,
			APIKey:  cfg.ResolveAPIKey(),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		})

	case "anthropic":
		return anthropicllm.NewLLMService(anthropicllm.Config{
			Name:    cfg.Name,
			APIKey:  cfg.ResolveAPIKey(),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		})

	default:
		return nil, fmt.Errorf("unsupported provider %q for backend %q", cfg.Provider, cfg.Name)
	}
}

// NewVectorIndex creates the vector index named by the configuration.
// dims must match the embedding model's output size.
func NewVectorIndex(cfg config.VectorConfig, dims int) (driven.VectorIndex, error) {
	switch cfg.Driver {
	case "memory":
		return memoryvec.NewIndex(dims)

	case "qdrant":
		return qdrantvec.NewIndex(qdrantvec.Config{
			BaseURL:    cfg.Qdrant.BaseURL,
			APIKey:     cfg.Qdrant.ResolveAPIKey(),
			Collection: cfg.Collection,
			Dimensions: dims,
		})

	default:
		return nil, fmt.Errorf("unsupported vector driver: %s", cfg.Driver)
	}
}

// ValidateEmbedding creates the configured embedding adapter and pings
// it. Used by 'config set-key' to catch bad credentials at entry time.
func ValidateEmbedding(cfg config.EmbeddingConfig) error {
	svc, err := NewEmbeddingService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateBackend creates one configured LLM adapter and pings it.
func ValidateBackend(cfg config.BackendConfig) error {
	svc, err := NewLLMService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
