package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// PostgresOptions bounds the connection pool of a PostgresStore.
type PostgresOptions struct {
	MaxConns       int32
	MinConns       int32
	AcquireTimeout time.Duration
}

// PostgresStore implements Store on Postgres (Neon) through a pgx pool.
// The pool is created on first use and shared by all requests. Both pool
// creation and acquiring a busy connection wait at most AcquireTimeout; a
// failed creation is retried by the next caller.
type PostgresStore struct {
	connString string
	opts       PostgresOptions

	// initLock is a one-slot semaphore serialising pool creation.
	initLock chan struct{}

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements Store interface.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore validates the connection string without connecting.
func NewPostgresStore(connString string, opts PostgresOptions) (*PostgresStore, error) {
	if _, err := pgxpool.ParseConfig(connString); err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 10
	}
	if opts.MinConns < 0 || opts.MinConns > opts.MaxConns {
		opts.MinConns = 1
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 10 * time.Second
	}
	return &PostgresStore{connString: connString, opts: opts, initLock: make(chan struct{}, 1)}, nil
}

func (s *PostgresStore) currentPool() *pgxpool.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

func (s *PostgresStore) getPool(ctx context.Context) (*pgxpool.Pool, error) {
	if pool := s.currentPool(); pool != nil {
		return pool, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, s.opts.AcquireTimeout)
	defer cancel()
	select {
	case s.initLock <- struct{}{}:
	case <-initCtx.Done():
		return nil, fmt.Errorf("failed to acquire connection: %w", initCtx.Err())
	}
	defer func() { <-s.initLock }()

	if pool := s.currentPool(); pool != nil {
		return pool, nil
	}

	config, err := pgxpool.ParseConfig(s.connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MaxConns = s.opts.MaxConns
	config.MinConns = s.opts.MinConns
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(initCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := migratePostgres(initCtx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.InfoContext(ctx, "postgres pool created", "max_conns", config.MaxConns, "min_conns", config.MinConns)
	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
	return pool, nil
}

// withConn acquires a pooled connection, waiting at most AcquireTimeout, and
// runs fn with the caller's context.
func (s *PostgresStore) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	pool, err := s.getPool(ctx)
	if err != nil {
		return err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, s.opts.AcquireTimeout)
	defer cancel()
	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(conn)
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			metadata JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
			content TEXT NOT NULL,
			selected_text TEXT,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`ALTER TABLE chat_messages ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at, seq)`,
	}
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the pool if it was ever created.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// Ping checks that a connection can be acquired and used.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.Ping(ctx)
	})
}

// CreateSession creates a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, session *domain.Session) error {
	metadata, err := encodeMetadata(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode session metadata: %w", err)
	}
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx,
			`INSERT INTO chat_sessions (id, created_at, updated_at, metadata) VALUES ($1, $2, $3, $4::jsonb)`,
			session.ID, session.CreatedAt, session.UpdatedAt, string(metadata))
		return err
	})
}

// GetSession retrieves a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		var got domain.Session
		var metadata []byte
		err := conn.QueryRow(ctx,
			`SELECT id::text, created_at, updated_at, metadata FROM chat_sessions WHERE id = $1`,
			sessionID).Scan(&got.ID, &got.CreatedAt, &got.UpdatedAt, &metadata)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		got.Metadata = decodeMetadata(metadata)
		session = &got
		return nil
	})
	return session, err
}

// DeleteSession deletes a session; messages go with it through the cascade.
func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	var deleted bool
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, sessionID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

// CreateMessage appends a message and touches the owning session in one
// transaction.
func (s *PostgresStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	metadata, err := encodeMetadata(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode message metadata: %w", err)
	}
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx, `UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, message.SessionID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSessionNotFound
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_messages (id, session_id, role, content, selected_text, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
			message.ID, message.SessionID, string(message.Role), message.Content,
			message.SelectedText, string(metadata), message.CreatedAt); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// GetMessages retrieves messages for a session in creation order.
func (s *PostgresStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT id::text, session_id::text, role, content, selected_text, metadata, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC, seq ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	messages := []domain.Message{}
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var msg domain.Message
			var role string
			var metadata []byte
			if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.SelectedText, &metadata, &msg.CreatedAt); err != nil {
				return err
			}
			msg.Role = domain.Role(role)
			msg.Metadata = decodeMetadata(metadata)
			messages = append(messages, msg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
