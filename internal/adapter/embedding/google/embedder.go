// Package google embeds text with Gemini embedding models.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

type Embedder struct {
	options embedding.Options
	client  *genai.Client
}

func (e *Embedder) Embed(ctx context.Context, text string, mode domain.EmbeddingMode) ([]float32, error) {
	model := e.client.EmbeddingModel(e.options.Model)
	model.TaskType = genai.TaskTypeRetrievalQuery
	if mode == domain.EmbeddingModeDocument {
		model.TaskType = genai.TaskTypeRetrievalDocument
	}

	rsp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}

	if rsp == nil || rsp.Embedding == nil || len(rsp.Embedding.Values) == 0 {
		return nil, errors.New("no response from Google")
	}

	return rsp.Embedding.Values, nil
}

func (e *Embedder) Name() string { return "google" }

// Close releases the underlying client.
func (e *Embedder) Close() error {
	return e.client.Close()
}

func NewEmbedder(ctx context.Context, opts ...embedding.Option) (*Embedder, error) {
	options := embedding.NewOptions(opts...)
	if options.Model == "" {
		options.Model = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(options.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &Embedder{options: options, client: client}, nil
}
