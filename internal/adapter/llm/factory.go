package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Habibullahdevv/ai-native-book/internal/config"
)

// NewGenerator creates the Generator selected by cfg.LLMProvider.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	opts := []Option{
		WithAPIKey(cfg.LLMAPIKey),
		WithModel(cfg.LLMModel),
		WithMaxTokens(cfg.LLMMaxTokens),
	}

	switch cfg.LLMProvider {
	case config.ProviderMock:
		slog.InfoContext(ctx, "LLM_PROVIDER=mock, using mock generator")
		return NewMockClient(), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(append(opts, WithBaseURL(cfg.LLMBaseURL))...), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(opts...), nil
	case config.ProviderGoogle:
		client, err := NewGoogleClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
