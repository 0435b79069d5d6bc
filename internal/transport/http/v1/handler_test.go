package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/llm"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex/memory"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
	"github.com/Habibullahdevv/ai-native-book/internal/repository"
	"github.com/Habibullahdevv/ai-native-book/internal/service"
	"github.com/Habibullahdevv/ai-native-book/policy"
	"github.com/Habibullahdevv/ai-native-book/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, repository.Store) {
	ctx := context.Background()
	cfg := &config.Config{
		RetrievalTopK:        5,
		RetrievalTimeout:     time.Second,
		GenerationTimeout:    time.Second,
		MaxPromptChars:       24000,
		MaxMessageChars:      10000,
		MaxSelectedTextChars: 5000,
	}
	db := helpers.NewTestSQLiteStore(t)

	embedder := embedding.NewMockEmbedder(32)
	index := memory.NewIndex()
	text := "Physical AI is artificial intelligence embodied in machines that act in the physical world."
	vec, err := embedder.Embed(ctx, text, domain.EmbeddingModeDocument)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if err := index.Upsert(ctx, "p1", vec, map[string]any{
		vectorindex.PayloadURL:  "https://book/docs/intro",
		vectorindex.PayloadText: text,
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(db, rag.NewRetriever(embedder, index), rag.NewComposer(rag.DefaultTemplates(), cfg.MaxPromptChars),
		llm.NewMockClient(), cfg, policyEngine)
	svc.AddHealthCheck("database", db.Ping)
	svc.AddHealthCheck("vector_index", index.Ping)
	return NewHandler(svc), db
}

func createSession(t *testing.T, db repository.Store) string {
	t.Helper()
	id := "0b8f5a8e-6a3c-4b8e-9f1a-2f7d9c0e1a11"
	now := time.Now()
	if err := db.CreateSession(context.Background(), &domain.Session{ID: id, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return id
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestCreateSessionWithoutBody(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var session domain.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if session.ID == "" || session.Metadata == nil {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestCreateSessionWithMetadata(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)

	req, rec := jsonRequest(http.MethodPost, "/api/sessions", `{"metadata":{"page":"/docs/ros2"}}`)
	c := e.NewContext(req, rec)

	if err := h.CreateSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var session domain.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	stored, err := db.GetSession(context.Background(), session.ID)
	if err != nil || stored == nil {
		t.Fatalf("session not stored: %v", err)
	}
	if stored.Metadata["page"] != "/docs/ros2" {
		t.Fatalf("unexpected metadata: %v", stored.Metadata)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/6f1c2b1e-3f55-4f0a-9d7e-2f4f0c1d2a3b", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("6f1c2b1e-3f55-4f0a-9d7e-2f4f0c1d2a3b")

	if err := h.GetSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != domain.MsgSessionNotFound || resp.Retry {
		t.Fatalf("unexpected error body: %+v", resp)
	}
}

func TestDeleteSession(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	id := createSession(t, db)

	for _, want := range []int{http.StatusNoContent, http.StatusNotFound} {
		req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("session_id")
		c.SetParamValues(id)

		if err := h.DeleteSession(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != want {
			t.Fatalf("expected %d, got %d", want, rec.Code)
		}
	}
}

func TestChatEndToEnd(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	id := createSession(t, db)

	req, rec := jsonRequest(http.MethodPost, "/api/chat", `{"session_id":"`+id+`","message":"What is Physical AI?"}`)
	c := e.NewContext(req, rec)

	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response == "" || resp.MessageID == "" || resp.Metadata.LatencyMs < 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Metadata.SelectedTextUsed {
		t.Fatalf("selected_text_used should be false")
	}
	if len(resp.Metadata.Sources) != 1 || resp.Metadata.Sources[0] != "https://book/docs/intro" {
		t.Fatalf("unexpected sources: %v", resp.Metadata.Sources)
	}

	msgs, err := db.GetMessages(context.Background(), id, 0)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestChatValidation(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	id := createSession(t, db)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty message", `{"session_id":"` + id + `","message":""}`, http.StatusBadRequest},
		{"too long", `{"session_id":"` + id + `","message":"` + strings.Repeat("a", 10001) + `"}`, http.StatusBadRequest},
		{"bad session id", `{"session_id":"abc","message":"hi"}`, http.StatusBadRequest},
		{"malformed json", `{"session_id":`, http.StatusBadRequest},
		{"unknown session", `{"session_id":"6f1c2b1e-3f55-4f0a-9d7e-2f4f0c1d2a3b","message":"hi"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := jsonRequest(http.MethodPost, "/api/chat", tt.body)
			c := e.NewContext(req, rec)
			if err := h.Chat(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Error == "" || resp.Retry {
				t.Fatalf("unexpected error body: %+v", resp)
			}
		})
	}
}

func TestChatSelectionRequiresSelectedText(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	id := createSession(t, db)

	req, rec := jsonRequest(http.MethodPost, "/api/chat/selection", `{"session_id":"`+id+`","message":"Explain"}`)
	c := e.NewContext(req, rec)
	if err := h.ChatSelection(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "selected_text is required for this endpoint" {
		t.Fatalf("unexpected error: %+v", resp)
	}

	req, rec = jsonRequest(http.MethodPost, "/api/chat/selection", `{"session_id":"`+id+`","message":"Explain","selected_text":"Bipedal gait"}`)
	c = e.NewContext(req, rec)
	if err := h.ChatSelection(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Metadata.SelectedTextUsed {
		t.Fatalf("selected_text_used should be true")
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Health(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.Dependencies["database"] != "healthy" || resp.Dependencies["vector_index"] != "healthy" {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestErrorBodyHidesInternalDetail(t *testing.T) {
	err := domain.NewGenerationError(context.DeadlineExceeded)
	if got := StatusOf(err); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", got)
	}
	body := ErrorBody(err)
	if body.Error != domain.MsgServiceUnavailable || !body.Retry || body.Detail != "" {
		t.Fatalf("unexpected body: %+v", body)
	}

	if got := StatusOf(context.Canceled); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}
