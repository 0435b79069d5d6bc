// Package embedding maps text to vectors through a hosted embedding model.
package embedding

import (
	"context"
	"net/http"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// Embedder turns text into a fixed-length vector. Queries and documents are
// embedded in different modes.
type Embedder interface {
	Embed(ctx context.Context, text string, mode domain.EmbeddingMode) ([]float32, error)
	Name() string
}

type Option func(*Options)

type Options struct {
	APIKey            string
	Model             string
	BaseURL           string
	Dimension         int
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

func WithAPIKey(apiKey string) Option {
	return func(o *Options) {
		o.APIKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

func WithDimension(dimension int) Option {
	return func(o *Options) {
		o.Dimension = dimension
	}
}

// WithRateLimit caps outgoing embedding calls per second; 0 disables it.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(o *Options) {
		o.RequestsPerSecond = requestsPerSecond
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
