// Package vectorindex stores passage embeddings and answers nearest-neighbour
// queries over them.
package vectorindex

import (
	"context"
	"fmt"
)

// Payload keys written at ingestion and read by the retriever.
const (
	PayloadURL     = "url"
	PayloadText    = "text"
	PayloadChunkID = "chunk_id"
)

// Hit is one nearest-neighbour result, best first.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// String returns payload[key] when it is a string.
func (h Hit) String(key string) string {
	if v, ok := h.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		if v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Index is a named collection of vectors with payloads.
type Index interface {
	// EnsureCollection creates the collection when missing. With recreate it
	// drops any existing collection first.
	EnsureCollection(ctx context.Context, dimension int, recreate bool) error
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error
	// Query returns up to k hits in descending similarity.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Ping(ctx context.Context) error
	Name() string
}
