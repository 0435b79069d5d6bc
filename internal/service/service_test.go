package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/llm"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
	"github.com/Habibullahdevv/ai-native-book/internal/repository"
	"github.com/Habibullahdevv/ai-native-book/policy"
	"github.com/Habibullahdevv/ai-native-book/tests/helpers"
)

type fakeRetriever struct {
	mu       sync.Mutex
	passages []domain.Passage
	err      error
	calls    int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.passages) {
		return f.passages[:k], nil
	}
	return f.passages, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	tokens  []string
	err     error
	failAt  int // stream fails before token failAt when err is set
	calls   int
	prompts []string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.tokens, ""), nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt string, cb llm.StreamCallback) error {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	for i, tok := range f.tokens {
		if f.err != nil && i == f.failAt {
			return f.err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cb(tok); err != nil {
			return err
		}
	}
	return f.err
}

func testConfig() *config.Config {
	return &config.Config{
		RetrievalTopK:        5,
		RetrievalTimeout:     time.Second,
		GenerationTimeout:    time.Second,
		MaxPromptChars:       24000,
		MaxMessageChars:      10000,
		MaxSelectedTextChars: 5000,
	}
}

type fixture struct {
	svc       *Service
	store     repository.Store
	retriever *fakeRetriever
	generator *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	store := helpers.NewTestSQLiteStore(t)
	retriever := &fakeRetriever{passages: []domain.Passage{
		{ID: "1", Text: "Physical AI is AI embodied in robots.", SourceURL: "https://book/intro", Score: 0.9},
		{ID: "2", Text: "Humanoids use ROS 2.", SourceURL: "https://book/ros2", Score: 0.6},
	}}
	generator := &fakeGenerator{tokens: []string{"Physical AI ", "is embodied ", "intelligence."}}
	composer := rag.NewComposer(rag.DefaultTemplates(), 24000)

	return &fixture{
		svc:       New(store, retriever, composer, generator, testConfig(), engine),
		store:     store,
		retriever: retriever,
		generator: generator,
	}
}

func (f *fixture) newSession(t *testing.T) string {
	t.Helper()
	session, err := f.svc.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	return session.ID
}

func (f *fixture) messages(t *testing.T, sessionID string) []domain.Message {
	t.Helper()
	msgs, err := f.store.GetMessages(context.Background(), sessionID, 0)
	require.NoError(t, err)
	return msgs
}

func strPtr(s string) *string { return &s }

func TestHealthReportsDegradedDependency(t *testing.T) {
	f := newFixture(t)
	f.svc.AddHealthCheck("database", f.store.Ping)
	f.svc.AddHealthCheck("vector_index", func(context.Context) error { return errors.New("connection refused") })
	f.svc.SetConnectionCounter(func() int { return 3 })

	resp := f.svc.Health(context.Background())
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, map[string]string{"database": "healthy", "vector_index": "unhealthy"}, resp.Dependencies)
	assert.Equal(t, 3, resp.Connections)
	_, err := time.Parse(time.RFC3339, resp.Timestamp)
	assert.NoError(t, err)
}

func TestHealthAllHealthy(t *testing.T) {
	f := newFixture(t)
	f.svc.AddHealthCheck("database", f.store.Ping)

	resp := f.svc.Health(context.Background())
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 0, resp.Connections)
}
