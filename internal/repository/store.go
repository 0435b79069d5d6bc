// Package repository defines the session store interface and its
// SQLite and Postgres implementations.
package repository

import (
	"context"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// Store defines the interface for session and message persistence.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	// GetSession returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// DeleteSession removes a session and its messages. It reports whether
	// a session was deleted.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// Message operations
	// CreateMessage appends a message and touches the session's updated_at.
	// It returns domain.ErrSessionNotFound if the session does not exist.
	CreateMessage(ctx context.Context, message *domain.Message) error
	// GetMessages returns messages ordered by creation time, ties broken by
	// insertion order. A limit of 0 returns every message.
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	Ping(ctx context.Context) error
	Close() error
}
