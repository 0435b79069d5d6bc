// Package openai embeds text through an OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

type openAIEmbedder struct {
	options embedding.Options
	client  *openai.Client
}

// Embed ignores the mode: OpenAI embeddings are symmetric.
func (e *openAIEmbedder) Embed(ctx context.Context, text string, mode domain.EmbeddingMode) ([]float32, error) {
	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.options.Model),
		Dimensions: e.options.Dimension,
	})
	if err != nil {
		return nil, err
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	return rsp.Data[0].Embedding, nil
}

func (e *openAIEmbedder) Name() string { return "openai" }

func NewEmbedder(opts ...embedding.Option) embedding.Embedder {
	options := embedding.NewOptions(opts...)
	if options.Model == "" {
		options.Model = string(openai.SmallEmbedding3)
	}

	e := &openAIEmbedder{
		options: options,
	}

	config := openai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		config.BaseURL = options.BaseURL
	}
	if options.HTTPClient != nil {
		config.HTTPClient = options.HTTPClient
	} else {
		config.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	e.client = openai.NewClientWithConfig(config)

	return e
}
