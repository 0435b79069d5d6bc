package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
)

// Source lists and reads the pages to ingest.
type Source interface {
	SitemapURLs(ctx context.Context, url string) ([]string, error)
	PageText(ctx context.Context, url string) (string, error)
}

// Options control an ingestion run.
type Options struct {
	SitemapURL string
	Dimension  int
	ChunkChars int
	Recreate   bool
}

// Stats summarises an ingestion run.
type Stats struct {
	Pages   int
	Skipped int
	Chunks  int
}

// Pipeline embeds page chunks in document mode and upserts them.
type Pipeline struct {
	source   Source
	embedder embedding.Embedder
	index    vectorindex.Index
}

func NewPipeline(source Source, embedder embedding.Embedder, index vectorindex.Index) *Pipeline {
	return &Pipeline{source: source, embedder: embedder, index: index}
}

// PointID derives a stable point id from the page URL and chunk position,
// so re-running ingestion overwrites instead of duplicating.
func PointID(url string, chunk int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", url, chunk))).String()
}

// Run ingests every page of the sitemap. Pages that cannot be fetched or
// have no text are skipped; embedding and index failures abort the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Stats, error) {
	var stats Stats

	if err := p.index.EnsureCollection(ctx, opts.Dimension, opts.Recreate); err != nil {
		return stats, fmt.Errorf("failed to ensure collection: %w", err)
	}

	urls, err := p.source.SitemapURLs(ctx, opts.SitemapURL)
	if err != nil {
		return stats, err
	}
	slog.InfoContext(ctx, "sitemap loaded", "urls", len(urls))

	for _, url := range urls {
		text, err := p.source.PageText(ctx, url)
		if err != nil {
			slog.WarnContext(ctx, "skipping page", "url", url, "error", err)
			stats.Skipped++
			continue
		}
		if text == "" {
			slog.WarnContext(ctx, "no text extracted", "url", url)
			stats.Skipped++
			continue
		}

		chunks := rag.Chunk(text, opts.ChunkChars)
		for i, chunk := range chunks {
			vector, err := p.embedder.Embed(ctx, chunk, domain.EmbeddingModeDocument)
			if err != nil {
				return stats, fmt.Errorf("failed to embed %s chunk %d: %w", url, i, err)
			}

			id := PointID(url, i)
			payload := map[string]any{
				vectorindex.PayloadURL:     url,
				vectorindex.PayloadText:    chunk,
				vectorindex.PayloadChunkID: id,
			}
			if err := p.index.Upsert(ctx, id, vector, payload); err != nil {
				return stats, fmt.Errorf("failed to upsert %s chunk %d: %w", url, i, err)
			}
			stats.Chunks++
		}

		stats.Pages++
		slog.InfoContext(ctx, "page ingested", "url", url, "chunks", len(chunks))
	}

	return stats, nil
}
