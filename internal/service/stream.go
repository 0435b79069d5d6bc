package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
)

// EmitFunc delivers one stream event to the client. An error means the
// client is gone.
type EmitFunc func(event domain.StreamEvent) error

// RespondStreamed answers a chat request as a stream of token events
// followed by exactly one done or error event.
//
// Validation and missing-session errors are returned before anything is
// emitted. Later failures are reported with a single error event and a nil
// return. If ctx is cancelled or emit fails, streaming stops, nothing more is
// emitted or persisted, and that error is returned.
func (s *Service) RespondStreamed(ctx context.Context, req domain.ChatRequest, emit EmitFunc) error {
	start := time.Now()
	t := newTracker(req.SessionID, true)

	if err := s.admit(ctx, t, &req, start); err != nil {
		t.fail(ctx, err)
		if domain.IsKind(err, domain.KindValidation) || domain.IsKind(err, domain.KindSessionNotFound) {
			return err
		}
		return emit(domain.ErrorEvent(domain.MsgStreamFailed))
	}

	err := s.stream(ctx, t, &req, start, emit)
	if err == nil {
		return nil
	}

	t.fail(ctx, err)
	var gone *clientGone
	if errors.As(err, &gone) {
		return gone.err
	}
	return emit(domain.ErrorEvent(domain.MsgStreamFailed))
}

// clientGone marks a failure to deliver to the client, as opposed to a
// failure of the pipeline.
type clientGone struct{ err error }

func (e *clientGone) Error() string { return "client gone: " + e.err.Error() }
func (e *clientGone) Unwrap() error { return e.err }

func (s *Service) stream(ctx context.Context, t *tracker, req *domain.ChatRequest, start time.Time, emit EmitFunc) error {
	if err := t.to(ctx, domain.StateRetrieving); err != nil {
		return err
	}
	passages, err := s.retrieve(ctx, req.Message)
	if err != nil {
		if ctx.Err() != nil {
			return &clientGone{err: ctx.Err()}
		}
		return err
	}

	if err := t.to(ctx, domain.StateComposing); err != nil {
		return err
	}
	prompt, passages := s.composer.Compose(req.Message, passages, req.SelectedText)

	if err := t.to(ctx, domain.StateGenerating); err != nil {
		return err
	}

	var answer strings.Builder
	var emitErr error
	genCtx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	err = s.generator.GenerateStream(genCtx, prompt, func(token string) error {
		if token == "" {
			return nil
		}
		if err := emit(domain.TokenEvent(token)); err != nil {
			emitErr = err
			return err
		}
		answer.WriteString(token)
		return nil
	})
	cancel()

	switch {
	case emitErr != nil:
		return &clientGone{err: emitErr}
	case ctx.Err() != nil:
		return &clientGone{err: ctx.Err()}
	case err != nil:
		return domain.NewGenerationError(err)
	}

	if strings.TrimSpace(answer.String()) == "" {
		if err := emit(domain.TokenEvent(rag.FallbackAnswer)); err != nil {
			return &clientGone{err: err}
		}
		answer.WriteString(rag.FallbackAnswer)
	}

	if err := t.to(ctx, domain.StatePersisting); err != nil {
		return err
	}
	latency := time.Since(start).Milliseconds()
	assistant := &domain.Message{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		Role:      domain.RoleAssistant,
		Content:   answer.String(),
		Metadata: map[string]interface{}{
			"latency_ms": latency,
			"streaming":  true,
			"sources":    rag.Sources(passages),
		},
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateMessage(ctx, assistant); err != nil {
		if ctx.Err() != nil {
			return &clientGone{err: ctx.Err()}
		}
		return persistErr("save assistant message", err)
	}

	if err := t.to(ctx, domain.StateCompleted); err != nil {
		return err
	}
	if err := emit(domain.DoneEvent(assistant.ID, latency)); err != nil {
		return &clientGone{err: err}
	}
	return nil
}
