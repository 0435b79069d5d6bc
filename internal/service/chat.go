package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
)

// Respond answers a chat request in one piece.
func (s *Service) Respond(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	start := time.Now()
	t := newTracker(req.SessionID, false)

	resp, err := s.respond(ctx, t, &req, start)
	if err != nil {
		t.fail(ctx, err)
		return nil, err
	}
	return resp, nil
}

func (s *Service) respond(ctx context.Context, t *tracker, req *domain.ChatRequest, start time.Time) (*domain.ChatResponse, error) {
	if err := s.admit(ctx, t, req, start); err != nil {
		return nil, err
	}

	if err := t.to(ctx, domain.StateRetrieving); err != nil {
		return nil, err
	}
	passages, err := s.retrieve(ctx, req.Message)
	if err != nil {
		return nil, err
	}

	if err := t.to(ctx, domain.StateComposing); err != nil {
		return nil, err
	}
	prompt, passages := s.composer.Compose(req.Message, passages, req.SelectedText)

	if err := t.to(ctx, domain.StateGenerating); err != nil {
		return nil, err
	}
	genCtx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	answer, err := s.generator.Generate(genCtx, prompt)
	cancel()
	if err != nil {
		return nil, domain.NewGenerationError(err)
	}
	if strings.TrimSpace(answer) == "" {
		answer = rag.FallbackAnswer
	}

	if err := t.to(ctx, domain.StatePersisting); err != nil {
		return nil, err
	}
	latency := time.Since(start).Milliseconds()
	sources := rag.Sources(passages)
	assistant := &domain.Message{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		Role:      domain.RoleAssistant,
		Content:   answer,
		Metadata: map[string]interface{}{
			"latency_ms": latency,
			"sources":    sources,
		},
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateMessage(ctx, assistant); err != nil {
		return nil, persistErr("save assistant message", err)
	}

	if err := t.to(ctx, domain.StateCompleted); err != nil {
		return nil, err
	}

	return &domain.ChatResponse{
		MessageID: assistant.ID,
		Response:  answer,
		Metadata: domain.ChatMetadata{
			LatencyMs:        latency,
			SelectedTextUsed: req.HasSelection(),
			Sources:          sources,
			Passages:         len(passages),
		},
	}, nil
}

// admit validates the request, verifies the session and saves the user
// message timestamped at start.
func (s *Service) admit(ctx context.Context, t *tracker, req *domain.ChatRequest, start time.Time) error {
	if err := t.to(ctx, domain.StateValidating); err != nil {
		return err
	}
	if err := s.validate(ctx, req); err != nil {
		return err
	}
	if err := s.verifySession(ctx, req.SessionID); err != nil {
		return err
	}
	if err := t.to(ctx, domain.StateSessionVerified); err != nil {
		return err
	}

	user := &domain.Message{
		ID:           uuid.New().String(),
		SessionID:    req.SessionID,
		Role:         domain.RoleUser,
		Content:      req.Message,
		SelectedText: req.SelectedText,
		CreatedAt:    start,
	}
	if err := s.store.CreateMessage(ctx, user); err != nil {
		return persistErr("save user message", err)
	}
	return nil
}

func (s *Service) retrieve(ctx context.Context, query string) ([]domain.Passage, error) {
	retrieveCtx, cancel := context.WithTimeout(ctx, s.config.RetrievalTimeout)
	defer cancel()

	passages, err := s.retriever.Retrieve(retrieveCtx, query, s.config.RetrievalTopK)
	if err != nil {
		if domain.IsKind(err, domain.KindRetrievalUnavailable) {
			return nil, err
		}
		return nil, domain.NewRetrievalError(err)
	}
	return passages, nil
}

// persistErr keeps ErrSessionNotFound from the store and wraps anything else.
func persistErr(op string, err error) error {
	if domain.IsKind(err, domain.KindSessionNotFound) {
		return err
	}
	return domain.NewPersistenceError(op, err)
}
