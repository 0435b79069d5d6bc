// Command ingest crawls the textbook sitemap and loads its passages into
// the vector index.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Habibullahdevv/ai-native-book/internal/app"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/ingest"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
)

var cli struct {
	Sitemap     string        `help:"Sitemap URL to crawl (defaults to SITEMAP_URL)"`
	Recreate    bool          `help:"Drop and recreate the collection before ingesting"`
	ChunkChars  int           `help:"Maximum characters per passage" default:"1200"`
	PageTimeout time.Duration `help:"Timeout for each page fetch" default:"30s"`
	Debug       bool          `help:"Enable debug logging"`
}

func main() {
	_ = kong.Parse(&cli,
		kong.Name("ingest"),
		kong.Description("Load textbook pages into the vector index."),
	)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg := config.FromEnv()
	if cli.Sitemap != "" {
		cfg.SitemapURL = cli.Sitemap
	}
	if err := cfg.ValidateIngestion(); err != nil {
		return err
	}

	embedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := embedder.(io.Closer); ok {
		defer c.Close()
	}

	index, err := app.NewIndex(cfg)
	if err != nil {
		return err
	}
	if c, ok := index.(io.Closer); ok {
		defer c.Close()
	}

	chunkChars := cli.ChunkChars
	if chunkChars < 1 {
		chunkChars = rag.DefaultChunkChars
	}

	fetcher := ingest.NewFetcher(&http.Client{
		Timeout:   cli.PageTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	pipeline := ingest.NewPipeline(fetcher, embedder, index)

	slog.Info("starting ingestion",
		"sitemap", cfg.SitemapURL,
		"embedding", embedder.Name(),
		"vector_index", index.Name(),
		"recreate", cli.Recreate,
	)
	start := time.Now()
	stats, err := pipeline.Run(ctx, ingest.Options{
		SitemapURL: cfg.SitemapURL,
		Dimension:  cfg.EmbeddingDimension,
		ChunkChars: chunkChars,
		Recreate:   cli.Recreate,
	})
	if err != nil {
		return err
	}

	slog.Info("ingestion complete",
		"pages", stats.Pages,
		"skipped", stats.Skipped,
		"chunks", stats.Chunks,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
