package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// CreateSession creates a new empty session.
func (s *Service) CreateSession(ctx context.Context, metadata map[string]interface{}) (*domain.Session, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		slog.ErrorContext(ctx, "failed to create session", "error", err)
		return nil, domain.NewPersistenceError("create session", err)
	}
	slog.InfoContext(ctx, "session created", "session_id", session.ID)
	return session, nil
}

// GetSession returns a session with its full message history in creation
// order. Ids that are not UUIDs cannot exist and are reported as not found.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.SessionWithMessages, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get session", "session_id", sessionID, "error", err)
		return nil, domain.NewPersistenceError("get session", err)
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}

	messages, err := s.store.GetMessages(ctx, sessionID, 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get messages", "session_id", sessionID, "error", err)
		return nil, domain.NewPersistenceError("get messages", err)
	}
	return &domain.SessionWithMessages{Session: session, Messages: messages}, nil
}

// DeleteSession deletes a session and its messages.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.ErrSessionNotFound
	}

	deleted, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete session", "session_id", sessionID, "error", err)
		return domain.NewPersistenceError("delete session", err)
	}
	if !deleted {
		return domain.ErrSessionNotFound
	}
	slog.InfoContext(ctx, "session deleted", "session_id", sessionID)
	return nil
}
