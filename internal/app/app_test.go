package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/domain")

func mockConfig() *config.Config {
	return &config.Config{
		DatabaseURL:          ":memory:",
		DBMaxConns:           1,
		EmbeddingProvider:    config.ProviderMock,
		EmbeddingDimension:   8,
		VectorIndex:          config.IndexMemory,
		LLMProvider:          config.ProviderMock,
		RetrievalTopK:        3,
		RetrievalTimeout:     5 * time.Second,
		GenerationTimeout:    5 * time.Second,
		MaxPromptChars:       4000,
		MaxMessageChars:      1000,
		MaxSelectedTextChars: 500,
	}
}

func TestNewWiresMockStack(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, mockConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, "mock", a.Embedder.Name())
	assert.Equal(t, "memory", a.Index.Name())
	assert.Equal(t, "mock", a.Generator.Name())

	require.NoError(t, a.Index.EnsureCollection(ctx, 8, false))
	vec, err := a.Embedder.Embed(ctx, "Robots perceive with sensors.", domain.EmbeddingModeDocument)
	require.NoError(t, err)
	require.NoError(t, a.Index.Upsert(ctx, "p1", vec, map[string]any{
		"url":  "https://book.example/ch1",
		"text": "Robots perceive with sensors.",
	}))

	svc := a.Service()
	session, err := svc.CreateSession(ctx, nil)
	require.NoError(t, err)

	rsp, err := svc.Respond(ctx, domain.ChatRequest{SessionID: session.ID, Message: "How do robots perceive?"})
	require.NoError(t, err)
	assert.Contains(t, rsp.Response, "How do robots perceive?")
	assert.Equal(t, []string{"https://book.example/ch1"}, rsp.Metadata.Sources)

	health := svc.Health(ctx)
	assert.Equal(t, "healthy", health.Status)
	for _, name := range []string{"database", "vector_index", "embedding", "generation"} {
		assert.Equal(t, "healthy", health.Dependencies[name], name)
	}
}

func TestNewRejectsUnknownIndex(t *testing.T) {
	cfg := mockConfig()
	cfg.VectorIndex = "faiss"

	a, err := New(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, a)
}
