package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	memorystore "github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/chunker"
	"github.com/custodia-labs/docchat/internal/config"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Services wired by ensureServices. Tests inject mocks directly.
var (
	ingestService driving.IngestService
	chatService   driving.ChatService
	appConfig     *config.Config

	serviceClosers []io.Closer
)

// configPath returns the config file location, honouring --config.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// loadConfig loads the active configuration once per invocation.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// ensureServices wires adapters and services from the configuration.
// It is a no-op when services are already present.
func ensureServices() error {
	if ingestService != nil && chatService != nil {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := ai.NewEmbeddingService(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}
	serviceClosers = append(serviceClosers, embedder)

	index, err := ai.NewVectorIndex(cfg.Vector, embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("creating vector index: %w", err)
	}
	serviceClosers = append(serviceClosers, index)

	var docStore driven.DocumentStore
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening document store: %w", err)
		}
		serviceClosers = append(serviceClosers, store)
		docStore = store.DocumentStore()
	default:
		docStore = memorystore.NewDocumentStore()
	}

	chk, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	router := services.NewRouter()
	for _, b := range cfg.Backends {
		svc, err := ai.NewLLMService(b)
		if err != nil {
			return fmt.Errorf("creating backend %q: %w", b.Name, err)
		}
		router.AddBackend(b.Name, svc, b.Timeout(), b.RPS)
	}
	serviceClosers = append(serviceClosers, router)

	sessions := services.NewSessionManager(
		memorystore.NewSessionStore(),
		cfg.Session.MaxTurns,
		cfg.Session.MaxTokens,
		cfg.Session.IdleTimeout(),
	)
	sessions.StartSweeper(context.Background(), 0)

	retriever := services.NewRetrieverService(embedder, index, docStore)
	prompts := services.NewPromptBuilder(cfg.Retrieval.ContextTokenBudget)
	if store, err := file.NewPromptStore(""); err == nil {
		prompts.SetPromptStore(store)
	} else {
		logger.Warn("Prompt store unavailable, using built-in prompts: %v", err)
	}

	ingestService = services.NewIngestService(
		chk, embedder, index, docStore,
		cfg.Embedding.BatchSize,
		services.DefaultIngestConcurrency,
	)
	chatService = services.NewChatService(
		retriever, router, sessions, prompts, docStore,
		cfg.Retrieval.TopK,
	)
	return nil
}

// closeServices releases everything ensureServices opened.
func closeServices() {
	for i := len(serviceClosers) - 1; i >= 0; i-- {
		serviceClosers[i].Close()
	}
	serviceClosers = nil
}
