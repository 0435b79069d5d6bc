package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Habibullahdevv/ai-native-book/internal/app"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	httptransport "github.com/Habibullahdevv/ai-native-book/internal/transport/http"
	"github.com/Habibullahdevv/ai-native-book/internal/transport/ws"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		CORSOrigins:          []string{"*"},
		RateLimitPerMinute:   1000,
		DatabaseURL:          ":memory:",
		DBMaxConns:           1,
		EmbeddingProvider:    config.ProviderMock,
		EmbeddingDimension:   16,
		VectorIndex:          config.IndexMemory,
		LLMProvider:          config.ProviderMock,
		RetrievalTopK:        3,
		RetrievalTimeout:     5 * time.Second,
		GenerationTimeout:    5 * time.Second,
		MaxPromptChars:       4000,
		MaxMessageChars:      1000,
		MaxSelectedTextChars: 500,
	}
	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	svc := a.Service()
	hub := ws.NewHub()
	go hub.Run(ctx)
	e := httptransport.NewExternalServer(svc, cfg, ws.NewServer(ws.DefaultOptions(cfg.CORSOrigins), hub, svc))

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 10*time.Second)
}

func TestSessionLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	rsp, err := client.Chat(ctx, domain.ChatRequest{SessionID: session.ID, Message: "What is ROS 2?"})
	require.NoError(t, err)
	assert.Contains(t, rsp.Response, "What is ROS 2?")

	result, err := client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, domain.RoleUser, result.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, result.Messages[1].Role)
	assert.Contains(t, renderSession(result), "What is ROS 2?")

	require.NoError(t, client.DeleteSession(ctx, session.ID))

	_, err = client.GetSession(ctx, session.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Status)
	assert.False(t, apiErr.Body.Retry)
}

func TestChatSelectionUsesSelectionEndpoint(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	selected := "A node is a process that performs computation."
	rsp, err := client.Chat(ctx, domain.ChatRequest{SessionID: session.ID, Message: "Explain this", SelectedText: &selected})
	require.NoError(t, err)
	assert.True(t, rsp.Metadata.SelectedTextUsed)
}

func TestChatValidationError(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Chat(context.Background(), domain.ChatRequest{SessionID: "not-a-uuid", Message: "hi"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Body.Error, "Invalid session_id")
}

func TestStreamCollectsTokensThenDone(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	var text string
	var done *domain.StreamEvent
	err = client.Stream(ctx, domain.ChatRequest{SessionID: session.ID, Message: "What is a topic?"}, func(event domain.StreamEvent) error {
		switch event.Type {
		case domain.StreamEventToken:
			text += event.Content
		case domain.StreamEventDone:
			done = &event
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.NotEmpty(t, done.MessageID)
	assert.Contains(t, text, "What is a topic?")
}

func TestDialChatAsk(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	conn, err := client.DialChat(ctx)
	require.NoError(t, err)
	defer conn.Close()

	var text string
	done, err := conn.Ask(ctx, domain.ChatRequest{SessionID: session.ID, Message: "What is a service?"}, func(token string) {
		text += token
	})
	require.NoError(t, err)
	assert.NotEmpty(t, done.MessageID)
	assert.Contains(t, text, "What is a service?")

	_, err = conn.Ask(ctx, domain.ChatRequest{SessionID: session.ID, Message: ""}, func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Message cannot be empty")
}

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/api/chat/ws", NewClient("http://localhost:8000/", 0).wsURL())
	assert.Equal(t, "wss://book.example/api/chat/ws", NewClient("https://book.example", 0).wsURL())
}
