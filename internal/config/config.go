// Package config loads and validates the TOML configuration file that
// drives chunking, embedding, retrieval, session handling, storage and
// the answering backend chain.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docchat/internal/chunker"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Config is the full application configuration.
type Config struct {
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Session   SessionConfig   `toml:"session"`
	Storage   StorageConfig   `toml:"storage"`
	Vector    VectorConfig    `toml:"vector"`
	Backends  []BackendConfig `toml:"backends"`
}

// ChunkingConfig controls how documents are split before embedding.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider    string `toml:"provider"`
	Model       string `toml:"model"`
	BaseURL     string `toml:"base_url"`
	APIKey      string `toml:"api_key,omitempty"`
	APIKeyEnv   string `toml:"api_key_env"`
	Dimensions  int    `toml:"dimensions"`
	BatchSize   int    `toml:"batch_size"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

// RetrievalConfig controls search depth and prompt assembly.
type RetrievalConfig struct {
	TopK               int `toml:"top_k"`
	ContextTokenBudget int `toml:"context_token_budget"`
}

// SessionConfig bounds conversation memory.
type SessionConfig struct {
	MaxTurns        int `toml:"max_turns"`
	MaxTokens       int `toml:"max_tokens"`
	IdleTimeoutMins int `toml:"idle_timeout_mins"`
}

// StorageConfig selects the document metadata store.
type StorageConfig struct {
	Driver  string `toml:"driver"`
	DataDir string `toml:"data_dir"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	Driver     string       `toml:"driver"`
	Qdrant     QdrantConfig `toml:"qdrant"`
	Collection string       `toml:"collection"`
}

// QdrantConfig holds connection details for a remote qdrant index.
type QdrantConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key,omitempty"`
	APIKeyEnv string `toml:"api_key_env"`
}

// ResolveAPIKey returns the qdrant API key, preferring the stored key
// over the environment variable.
func (q QdrantConfig) ResolveAPIKey() string {
	if q.APIKey != "" {
		return q.APIKey
	}
	if q.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(q.APIKeyEnv)
}

// BackendConfig describes one answering backend. Backends are tried in
// the order they appear in the file.
type BackendConfig struct {
	Name        string  `toml:"name"`
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key,omitempty"`
	APIKeyEnv   string  `toml:"api_key_env"`
	TimeoutSecs int     `toml:"timeout_secs"`
	RPS         float64 `toml:"rps"`
}

// ResolveAPIKey returns the backend's API key. A key stored directly in
// the config file (via 'docchat config set-key') wins over the
// environment variable.
func (b BackendConfig) ResolveAPIKey() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	if b.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(b.APIKeyEnv)
}

// Timeout returns the per-request timeout for this backend.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(b.TimeoutSecs) * time.Second
}

// ResolveAPIKey returns the embedding provider's API key, preferring
// the stored key over the environment variable.
func (e EmbeddingConfig) ResolveAPIKey() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// Timeout returns the embedding request timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	if e.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutSecs) * time.Second
}

// IdleTimeout returns how long a session may sit untouched before the
// idle sweep removes it.
func (s SessionConfig) IdleTimeout() time.Duration {
	if s.IdleTimeoutMins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.IdleTimeoutMins) * time.Minute
}

// Default returns a configuration with sensible local-first defaults.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:    "ollama",
			Model:       "nomic-embed-text",
			BaseURL:     "http://localhost:11434",
			Dimensions:  768,
			BatchSize:   32,
			TimeoutSecs: 30,
		},
		Retrieval: RetrievalConfig{
			TopK:               5,
			ContextTokenBudget: 4000,
		},
		Session: SessionConfig{
			MaxTurns:        20,
			MaxTokens:       8000,
			IdleTimeoutMins: 30,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Vector: VectorConfig{
			Driver:     "memory",
			Collection: "default",
			Qdrant: QdrantConfig{
				BaseURL: "http://localhost:6333",
			},
		},
		Backends: []BackendConfig{
			{
				Name:        "local",
				Provider:    "ollama",
				Model:       "llama3.1",
				BaseURL:     "http://localhost:11434",
				TimeoutSecs: 120,
			},
		},
	}
}

// DefaultPath returns the standard config file location,
// ~/.docchat/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".docchat", "config.toml"), nil
}

// Load reads the config file at path, layering it over defaults. A
// missing file yields the defaults unchanged. The result is validated
// before being returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating the directory if
// needed. File permissions are restricted because the file may hold
// API keys.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks the configuration for values that would fail later
// in confusing ways. It fails fast with a description of the bad field.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", domain.ErrInvalidInput)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", domain.ErrInvalidInput)
	}

	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding.model is required", domain.ErrInvalidInput)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", domain.ErrInvalidInput)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", domain.ErrInvalidInput)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidInput)
	}
	if c.Retrieval.ContextTokenBudget <= 0 {
		return fmt.Errorf("%w: retrieval.context_token_budget must be positive", domain.ErrInvalidInput)
	}

	if c.Session.MaxTurns <= 0 {
		return fmt.Errorf("%w: session.max_turns must be positive", domain.ErrInvalidInput)
	}
	if c.Session.MaxTokens <= 0 {
		return fmt.Errorf("%w: session.max_tokens must be positive", domain.ErrInvalidInput)
	}

	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", domain.ErrInvalidInput, c.Storage.Driver)
	}

	switch c.Vector.Driver {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("%w: unknown vector.driver %q", domain.ErrInvalidInput, c.Vector.Driver)
	}
	if c.Vector.Collection == "" {
		return fmt.Errorf("%w: vector.collection is required", domain.ErrInvalidInput)
	}

	if len(c.Backends) == 0 {
		return fmt.Errorf("%w: at least one backend is required", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("%w: backends[%d].name is required", domain.ErrInvalidInput, i)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate backend name %q", domain.ErrInvalidInput, b.Name)
		}
		seen[b.Name] = true

		switch b.Provider {
		case "openai", "anthropic", "ollama":
		default:
			return fmt.Errorf("%w: unknown provider %q for backend %q", domain.ErrInvalidInput, b.Provider, b.Name)
		}
		if b.Model == "" {
			return fmt.Errorf("%w: backend %q has no model", domain.ErrInvalidInput, b.Name)
		}
		if b.RPS < 0 {
			return fmt.Errorf("%w: backend %q has negative rps", domain.ErrInvalidInput, b.Name)
		}
	}

	return nil
}
