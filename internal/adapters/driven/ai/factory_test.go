package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/config"
)

func TestNewEmbeddingService(t *testing.T) {
	svc, err := NewEmbeddingService(config.EmbeddingConfig{
		Provider:   "ollama",
		Model:      "nomic-embed-text",
		Dimensions: 768,
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, 768, svc.Dimensions())
	assert.Equal(t, "nomic-embed-text", svc.ModelName())
	svc.Close()
}

func TestNewEmbeddingService_OpenAIRequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(config.EmbeddingConfig{
		Provider: "openai",
		Model:    "text-embedding-3-small",
	})
	assert.Error(t, err)
}

func TestNewEmbeddingService_UnknownProvider(t *testing.T) {
	_, err := NewEmbeddingService(config.EmbeddingConfig{Provider: "cohere"})
	assert.ErrorContains(t, err, "unsupported embedding provider")
}

func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BackendConfig
		wantErr bool
	}{
		{
			name: "ollama needs no key",
			cfg:  config.BackendConfig{Name: "local", Provider: "ollama", Model: "llama3.1"},
		},
		{
			name: "openai with key",
			cfg:  config.BackendConfig{Name: "oa", Provider: "openai", Model: "gpt-4o", APIKey: "sk-test"},
		},
		{
			name:    "openai without key",
			cfg:     config.BackendConfig{Name: "oa", Provider: "openai", Model: "gpt-4o"},
			wantErr: true,
		},
		{
			name: "anthropic with key",
			cfg:  config.BackendConfig{Name: "an", Provider: "anthropic", Model: "claude-sonnet-4-5", APIKey: "sk-test"},
		},
		{
			name:    "unknown provider",
			cfg:     config.BackendConfig{Name: "x", Provider: "bedrock", Model: "m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewLLMService(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			svc.Close()
		})
	}
}

func TestNewLLMService_KeyFromEnvironment(t *testing.T) {
	t.Setenv("DOCCHAT_FACTORY_KEY", "sk-env")

	svc, err := NewLLMService(config.BackendConfig{
		Name:      "an",
		Provider:  "anthropic",
		Model:     "claude-sonnet-4-5",
		APIKeyEnv: "DOCCHAT_FACTORY_KEY",
	})
	require.NoError(t, err)
	svc.Close()
}

func TestNewVectorIndex(t *testing.T) {
	idx, err := NewVectorIndex(config.VectorConfig{Driver: "memory"}, 3)
	require.NoError(t, err)
	require.NotNil(t, idx)
	idx.Close()

	idx, err = NewVectorIndex(config.VectorConfig{
		Driver:     "qdrant",
		Collection: "docchat",
	}, 3)
	require.NoError(t, err)
	require.NotNil(t, idx)
	idx.Close()

	_, err = NewVectorIndex(config.VectorConfig{Driver: "faiss"}, 3)
	assert.ErrorContains(t, err, "unsupported vector driver")
}

func TestValidateBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	err := ValidateBackend(config.BackendConfig{
		Name:     "local",
		Provider: "ollama",
		Model:    "llama3.1",
		BaseURL:  server.URL,
	})
	assert.NoError(t, err)
}

func TestValidateBackend_Unreachable(t *testing.T) {
	err := ValidateBackend(config.BackendConfig{
		Name:        "local",
		Provider:    "ollama",
		Model:       "llama3.1",
		BaseURL:     "http://127.0.0.1:1",
		TimeoutSecs: 1,
	})
	assert.Error(t, err)
}
