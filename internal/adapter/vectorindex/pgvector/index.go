// Package pgvector is a vector index stored in Postgres with the pgvector
// extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex"
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"postgres",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		detail := "failed to register pgvector driver with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

// Index stores passages in one table: id, payload and embedding.
type Index struct {
	conn  *sql.DB
	table string
}

// Ensure Index implements vectorindex.Index interface.
var _ vectorindex.Index = (*Index)(nil)

// NewIndex opens the database lazily; the first query connects.
func NewIndex(location, table string) (*Index, error) {
	conn, err := sql.Open(DRIVER, location)
	if err != nil {
		return nil, fmt.Errorf("failed to open pgvector database: %w", err)
	}

	if err := otelsql.RecordStats(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize postgres instrumentation: %w", err)
	}

	if table == "" {
		table = "passages"
	}
	return &Index{conn: conn, table: pq.QuoteIdentifier(table)}, nil
}

func (p *Index) Name() string { return "pgvector" }

func (p *Index) Close() error {
	return p.conn.Close()
}

func (p *Index) Ping(ctx context.Context) error {
	return p.conn.PingContext(ctx)
}

func (p *Index) EnsureCollection(ctx context.Context, dimension int, recreate bool) error {
	stmts := []string{`CREATE EXTENSION IF NOT EXISTS vector`}
	if recreate {
		stmts = append(stmts, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, p.table))
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		payload JSONB NOT NULL DEFAULT '{}',
		embedding vector(%d) NOT NULL
	)`, p.table, dimension))

	for _, stmt := range stmts {
		if _, err := p.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector migration failed: %w", err)
		}
	}
	return nil
}

func (p *Index) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, payload, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, embedding = EXCLUDED.embedding
	`, p.table)

	_, err = p.conn.ExecContext(ctx, query, id, data, pgvector.NewVector(vector))
	return err
}

func (p *Index) Query(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	if k < 1 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT
			id,
			payload,
			1 - (embedding <=> $1) as score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, p.table)

	rows, err := p.conn.QueryContext(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []vectorindex.Hit
	for rows.Next() {
		var hit vectorindex.Hit
		var payload []byte
		if err := rows.Scan(&hit.ID, &payload, &hit.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &hit.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", hit.ID, err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
