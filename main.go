package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Habibullahdevv/ai-native-book/internal/app"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	handler "github.com/Habibullahdevv/ai-native-book/internal/transport/http"
	"github.com/Habibullahdevv/ai-native-book/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("starting book chat server",
		"port", cfg.HTTPPort,
		"llm_provider", cfg.LLMProvider,
		"embedding_provider", cfg.EmbeddingProvider,
		"vector_index", cfg.VectorIndex,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	svc := application.Service()

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run(ctx)
	svc.SetConnectionCounter(hub.Count)
	wsServer := ws.NewServer(ws.DefaultOptions(cfg.CORSOrigins), hub, svc)

	server := handler.NewExternalServer(svc, cfg, wsServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			stop()
		}
	}()

	slog.Info("server started", "port", cfg.HTTPPort)

	<-ctx.Done()
	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server gracefully", "error", err)
	}

	slog.Info("server stopped")
}
