package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

var sqliteDriver string

func init() {
	driver, err := otelsql.Register(
		"sqlite3",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemSqlite),
	)
	if err != nil {
		detail := "failed to register sqlite driver with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}
	sqliteDriver = driver
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriver, withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := otelsql.RecordStats(db); err != nil {
		slog.Warn("failed to record sqlite stats", "error", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// withForeignKeys makes every pooled connection enforce foreign keys, not
// only the one that ran the PRAGMA.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if dsn == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
			content TEXT NOT NULL,
			selected_text TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	metadata, err := encodeMetadata(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode session metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, created_at, updated_at, metadata) VALUES (?, ?, ?, ?)`,
		session.ID, session.CreatedAt.UTC(), session.UpdatedAt.UTC(), string(metadata))
	return err
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var metadata sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, metadata FROM chat_sessions WHERE id = ?`,
		sessionID).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt, &metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.Metadata = decodeMetadata([]byte(metadata.String))
	return &session, nil
}

// DeleteSession deletes a session and, through the cascade, its messages.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateMessage appends a message and touches the owning session.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	metadata, err := encodeMetadata(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode message metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), message.SessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrSessionNotFound
	}

	var selected sql.NullString
	if message.SelectedText != nil {
		selected = sql.NullString{String: *message.SelectedText, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, selected_text, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.ID, message.SessionID, string(message.Role), message.Content, selected, string(metadata), message.CreatedAt.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMessages retrieves messages for a session in creation order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT id, session_id, role, content, selected_text, metadata, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var role string
		var selected, metadata sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &selected, &metadata, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)
		if selected.Valid {
			text := selected.String
			msg.SelectedText = &text
		}
		msg.Metadata = decodeMetadata([]byte(metadata.String))
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
