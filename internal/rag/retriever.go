// Package rag turns a user query into a grounded prompt: it retrieves
// passages from the vector index and composes them with the question.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// Retriever finds the passages most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error)
}

// IndexRetriever embeds the query and searches a vector index.
type IndexRetriever struct {
	embedder embedding.Embedder
	index    vectorindex.Index
}

// Ensure IndexRetriever implements Retriever interface.
var _ Retriever = (*IndexRetriever)(nil)

// NewRetriever creates a retriever over the given embedder and index.
func NewRetriever(embedder embedding.Embedder, index vectorindex.Index) *IndexRetriever {
	return &IndexRetriever{embedder: embedder, index: index}
}

// Retrieve returns up to k passages by descending similarity. Every failure
// is reported as a retrieval_unavailable error.
func (r *IndexRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewValidationError("query cannot be empty")
	}
	if k < 1 {
		return nil, domain.NewValidationError("k must be at least 1")
	}

	vector, err := r.embedder.Embed(ctx, query, domain.EmbeddingModeQuery)
	if err != nil {
		return nil, domain.NewRetrievalError(fmt.Errorf("embed query with %s: %w", r.embedder.Name(), err))
	}

	hits, err := r.index.Query(ctx, vector, k)
	if err != nil {
		return nil, domain.NewRetrievalError(fmt.Errorf("query %s index: %w", r.index.Name(), err))
	}

	passages := make([]domain.Passage, 0, len(hits))
	for _, hit := range hits {
		text := hit.String(vectorindex.PayloadText)
		if text == "" {
			slog.WarnContext(ctx, "skipping hit without text", "id", hit.ID)
			continue
		}
		passages = append(passages, domain.Passage{
			ID:        hit.ID,
			Text:      text,
			SourceURL: hit.String(vectorindex.PayloadURL),
			Score:     hit.Score,
		})
	}

	slog.DebugContext(ctx, "retrieved passages", "count", len(passages), "k", k)
	return passages, nil
}

// Sources returns the source URLs of passages in retrieval order.
func Sources(passages []domain.Passage) []string {
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, p.SourceURL)
	}
	return sources
}
