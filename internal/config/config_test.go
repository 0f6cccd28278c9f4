package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.NotEmpty(t, cfg.Backends)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[chunking]
size = 500
overlap = 50

[retrieval]
top_k = 3

[[backends]]
name = "primary"
provider = "anthropic"
model = "claude-sonnet-4-5"
api_key_env = "ANTHROPIC_API_KEY"
rps = 2.0

[[backends]]
name = "fallback"
provider = "ollama"
model = "llama3.1"
base_url = "http://localhost:11434"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)

	// Untouched sections keep their defaults.
	assert.Equal(t, "ollama", cfg.Embedding.Provider)

	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, "primary", cfg.Backends[0].Name)
	assert.Equal(t, "anthropic", cfg.Backends[0].Provider)
	assert.Equal(t, 2.0, cfg.Backends[0].RPS)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }},
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "mystery" }},
		{"missing embedding model", func(c *Config) { c.Embedding.Model = "" }},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"zero max_turns", func(c *Config) { c.Session.MaxTurns = 0 }},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"unknown vector driver", func(c *Config) { c.Vector.Driver = "faiss" }},
		{"no backends", func(c *Config) { c.Backends = nil }},
		{"unnamed backend", func(c *Config) { c.Backends[0].Name = "" }},
		{"unknown backend provider", func(c *Config) { c.Backends[0].Provider = "mystery" }},
		{"backend without model", func(c *Config) { c.Backends[0].Model = "" }},
		{"negative rps", func(c *Config) { c.Backends[0].RPS = -1 }},
		{"duplicate backend names", func(c *Config) {
			c.Backends = append(c.Backends, c.Backends[0])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Retrieval.TopK = 7
	cfg.Backends[0].Name = "renamed"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
	assert.Equal(t, "renamed", loaded.Backends[0].Name)
}

func TestBackendConfig_Timeout(t *testing.T) {
	b := BackendConfig{TimeoutSecs: 10}
	assert.Equal(t, "10s", b.Timeout().String())

	// Unset timeouts fall back to a sane default.
	assert.Equal(t, "1m0s", BackendConfig{}.Timeout().String())
}

func TestBackendConfig_ResolveAPIKey(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_KEY", "sk-from-env")

	b := BackendConfig{APIKeyEnv: "DOCCHAT_TEST_KEY"}
	assert.Equal(t, "sk-from-env", b.ResolveAPIKey())

	// A key stored in the file wins over the environment.
	b.APIKey = "sk-stored"
	assert.Equal(t, "sk-stored", b.ResolveAPIKey())

	assert.Empty(t, BackendConfig{}.ResolveAPIKey())
}
