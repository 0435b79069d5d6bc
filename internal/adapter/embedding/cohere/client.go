// Package cohere is an embedding client for the Cohere embed API.
package cohere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

const (
	defaultModel = "embed-english-v3.0"
	// maxAttempts includes the first call; the SDK backs off between
	// attempts on 429 and 5xx answers.
	maxAttempts = 4
)

// Client embeds text with the Cohere SDK.
type Client struct {
	options embedding.Options
	client  *cohereclient.Client
	limiter *rate.Limiter
}

// Ensure Client implements embedding.Embedder interface.
var _ embedding.Embedder = (*Client)(nil)

// NewClient creates a Cohere embedding client.
func NewClient(opts ...embedding.Option) *Client {
	options := embedding.NewOptions(opts...)
	if options.Model == "" {
		options.Model = defaultModel
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	sdkOpts := []option.RequestOption{
		option.WithToken(options.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxAttempts(maxAttempts),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(strings.TrimRight(options.BaseURL, "/")))
	}

	c := &Client{options: options, client: cohereclient.NewClient(sdkOpts...)}
	if options.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
	}
	return c
}

func (c *Client) Name() string { return "cohere" }

// inputType maps an embedding mode to Cohere's asymmetric input types.
func inputType(mode domain.EmbeddingMode) cohere.EmbedInputType {
	if mode == domain.EmbeddingModeDocument {
		return cohere.EmbedInputTypeSearchDocument
	}
	return cohere.EmbedInputTypeSearchQuery
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string, mode domain.EmbeddingMode) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.client.Embed(ctx, &cohere.EmbedRequest{
		Texts:     []string{text},
		Model:     cohere.String(c.options.Model),
		InputType: inputType(mode).Ptr(),
		Truncate:  cohere.EmbedRequestTruncateEnd.Ptr(),
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed failed: %w", err)
	}

	vec, err := firstEmbedding(resp)
	if err != nil {
		return nil, err
	}
	if c.options.Dimension > 0 && len(vec) != c.options.Dimension {
		return nil, fmt.Errorf("cohere returned %d dimensions, expected %d", len(vec), c.options.Dimension)
	}
	return vec, nil
}

// firstEmbedding extracts the first float vector from either response shape.
func firstEmbedding(resp *cohere.EmbedResponse) ([]float32, error) {
	var rows [][]float64
	switch {
	case resp == nil:
	case resp.EmbeddingsFloats != nil:
		rows = resp.EmbeddingsFloats.Embeddings
	case resp.EmbeddingsByType != nil && resp.EmbeddingsByType.Embeddings != nil:
		rows = resp.EmbeddingsByType.Embeddings.Float
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("no embeddings in cohere response")
	}

	vec := make([]float32, len(rows[0]))
	for i, v := range rows[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}
