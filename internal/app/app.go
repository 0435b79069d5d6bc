// Package app builds the provider handles, stores and services selected by
// the configuration. Everything is constructed once and closed together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding/cohere"
	googleembed "github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding/google"
	openaiembed "github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding/openai"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/llm"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex/memory"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex/pgvector"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex/qdrant"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
	"github.com/Habibullahdevv/ai-native-book/internal/repository"
	"github.com/Habibullahdevv/ai-native-book/internal/service"
	"github.com/Habibullahdevv/ai-native-book/policy"
)

// App holds every long-lived dependency of the server.
type App struct {
	Config    *config.Config
	Store     repository.Store
	Embedder  embedding.Embedder
	Index     vectorindex.Index
	Generator llm.Generator
	Retriever *rag.IndexRetriever
	Composer  *rag.Composer
	Policy    *policy.Engine

	closers []io.Closer
}

// New builds the application from cfg. On error everything built so far is
// closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Store, err = repository.Open(cfg); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store)

	if a.Embedder, err = NewEmbedder(ctx, cfg); err != nil {
		return nil, err
	}
	if c, ok := a.Embedder.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	if a.Index, err = NewIndex(cfg); err != nil {
		return nil, err
	}
	if c, ok := a.Index.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	if a.Generator, err = llm.NewGenerator(ctx, cfg); err != nil {
		return nil, err
	}
	if c, ok := a.Generator.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	templates, err := rag.LoadTemplates(cfg.PromptFile)
	if err != nil {
		return nil, err
	}
	a.Composer = rag.NewComposer(templates, cfg.MaxPromptChars)
	a.Retriever = rag.NewRetriever(a.Embedder, a.Index)

	if a.Policy, err = policy.NewEngineFromFile(ctx, cfg.PolicyFile); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "application built",
		"store", storeKind(cfg),
		"embedding", a.Embedder.Name(),
		"vector_index", a.Index.Name(),
		"generation", a.Generator.Name(),
	)
	return a, nil
}

// Service returns the response orchestrator with health checks for every
// dependency.
func (a *App) Service() *service.Service {
	svc := service.New(a.Store, a.Retriever, a.Composer, a.Generator, a.Config, a.Policy)
	svc.AddHealthCheck("database", a.Store.Ping)
	svc.AddHealthCheck("vector_index", a.Index.Ping)
	// Providers are only probed by real traffic; a built client counts as up.
	svc.AddHealthCheck("embedding", func(context.Context) error { return nil })
	svc.AddHealthCheck("generation", func(context.Context) error { return nil })
	return svc
}

// Close releases every handle in reverse order of construction.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewEmbedder creates the embedder selected by cfg.EmbeddingProvider.
func NewEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	opts := []embedding.Option{
		embedding.WithModel(cfg.EmbeddingModel),
		embedding.WithDimension(cfg.EmbeddingDimension),
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderMock:
		return embedding.NewMockEmbedder(cfg.EmbeddingDimension), nil
	case config.ProviderCohere:
		return cohere.NewClient(append(opts,
			embedding.WithAPIKey(cfg.CohereAPIKey),
			embedding.WithBaseURL(cfg.CohereBaseURL),
		)...), nil
	case config.ProviderOpenAI:
		return openaiembed.NewEmbedder(append(opts,
			embedding.WithAPIKey(cfg.OpenAIAPIKey),
			embedding.WithBaseURL(cfg.OpenAIBaseURL),
		)...), nil
	case config.ProviderGoogle:
		e, err := googleembed.NewEmbedder(ctx, append(opts, embedding.WithAPIKey(cfg.GoogleAPIKey))...)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)
	}
}

// NewIndex creates the vector index selected by cfg.VectorIndex.
func NewIndex(cfg *config.Config) (vectorindex.Index, error) {
	switch cfg.VectorIndex {
	case config.IndexMemory:
		return memory.NewIndex(), nil
	case config.IndexQdrant:
		index, err := qdrant.NewIndex(qdrant.Options{
			Location:   cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		})
		if err != nil {
			return nil, err
		}
		return index, nil
	case config.IndexPgvector:
		index, err := pgvector.NewIndex(cfg.PgvectorURL, cfg.PgvectorTable)
		if err != nil {
			return nil, err
		}
		return index, nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_INDEX %q", cfg.VectorIndex)
	}
}

func storeKind(cfg *config.Config) string {
	if cfg.UsesPostgres() {
		return "postgres"
	}
	return "sqlite"
}
