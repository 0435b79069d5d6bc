package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/llm"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex/memory"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
	"github.com/Habibullahdevv/ai-native-book/internal/service"
	"github.com/Habibullahdevv/ai-native-book/policy"
	"github.com/Habibullahdevv/ai-native-book/tests/helpers"
)

type testServer struct {
	url string
	svc *service.Service
	hub *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	cfg := &config.Config{
		RetrievalTopK:        3,
		RetrievalTimeout:     time.Second,
		GenerationTimeout:    time.Second,
		MaxPromptChars:       10000,
		MaxMessageChars:      10000,
		MaxSelectedTextChars: 5000,
	}
	svc := service.New(
		helpers.NewTestSQLiteStore(t),
		rag.NewRetriever(embedding.NewMockEmbedder(16), memory.NewIndex()),
		rag.NewComposer(rag.DefaultTemplates(), cfg.MaxPromptChars),
		llm.NewMockClient(),
		cfg,
		engine,
	)

	hub := NewHub()
	go hub.Run(ctx)
	svc.SetConnectionCounter(hub.Count)

	e := echo.New()
	NewServer(DefaultOptions([]string{"http://localhost:3000"}), hub, svc).RegisterRoutes(e.Group("/api"))
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &testServer{
		url: "ws" + strings.TrimPrefix(server.URL, "http") + "/api/chat/ws",
		svc: svc,
		hub: hub,
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event map[string]interface{}
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestChatStreamsTokensThenDone(t *testing.T) {
	ts := newTestServer(t)
	session, err := ts.svc.CreateSession(context.Background(), nil)
	require.NoError(t, err)

	conn := dial(t, ts.url)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "chat",
		"request_id": "r1",
		"session_id": session.ID,
		"message":    "What is Physical AI?",
	}))

	var content strings.Builder
	for {
		event := readEvent(t, conn)
		assert.Equal(t, "r1", event["request_id"])
		if event["type"] == string(domain.StreamEventToken) {
			content.WriteString(event["content"].(string))
			continue
		}
		require.Equal(t, string(domain.StreamEventDone), event["type"], "unexpected event %v", event)
		assert.NotEmpty(t, event["message_id"])
		break
	}

	history, err := ts.svc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, content.String(), history.Messages[1].Content)
}

func TestChatRejectedRequestGetsErrorWithCode(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "chat",
		"request_id": "r2",
		"session_id": "6f1c2b1e-3f55-4f0a-9d7e-2f4f0c1d2a3b",
		"message":    "hello",
	}))

	event := readEvent(t, conn)
	assert.Equal(t, TypeError, event["type"])
	assert.Equal(t, "r2", event["request_id"])
	assert.Equal(t, string(domain.KindSessionNotFound), event["code"])
	assert.Equal(t, domain.MsgSessionNotFound, event["error"])
}

func TestUnknownMessageType(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts.url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`)))
	event := readEvent(t, conn)
	assert.Equal(t, ErrorCodeInvalidMessage, event["code"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	event = readEvent(t, conn)
	assert.Equal(t, "invalid JSON message", event["error"])
}

func TestHubCountsConnections(t *testing.T) {
	ts := newTestServer(t)
	dial(t, ts.url)
	second := dial(t, ts.url)

	assert.Eventually(t, func() bool { return ts.hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, ts.svc.Health(context.Background()).Connections)

	second.Close()
	assert.Eventually(t, func() bool { return ts.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	s := NewServer(DefaultOptions([]string{"http://localhost:3000"}), NewHub(), nil)

	req := httptest.NewRequest("GET", "/api/chat/ws", nil)
	assert.True(t, s.checkOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, s.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, s.checkOrigin(req))
}
