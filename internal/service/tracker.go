package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// tracker follows one request through the request state machine.
type tracker struct {
	id        string
	sessionID string
	streaming bool
	state     domain.RequestState
}

func newTracker(sessionID string, streaming bool) *tracker {
	return &tracker{
		id:        uuid.New().String(),
		sessionID: sessionID,
		streaming: streaming,
		state:     domain.StateCreated,
	}
}

// to moves the request to next. An illegal move is a programming error and
// is reported as an internal error.
func (t *tracker) to(ctx context.Context, next domain.RequestState) error {
	state, err := t.state.Transition(next)
	if err != nil {
		return &domain.Error{Kind: domain.KindInternal, Message: "request state", Err: err}
	}
	slog.DebugContext(ctx, "request state", "request_id", t.id, "session_id", t.sessionID, "from", t.state, "to", state)
	t.state = state
	return nil
}

// fail marks the request failed and logs the cause in full.
func (t *tracker) fail(ctx context.Context, err error) {
	from := t.state
	if !from.Terminal() {
		t.state = domain.StateFailed
	}
	level := slog.LevelError
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindSessionNotFound:
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "chat request failed",
		"request_id", t.id,
		"session_id", t.sessionID,
		"streaming", t.streaming,
		"state", from,
		"kind", domain.KindOf(err),
		"error", err,
	)
}
