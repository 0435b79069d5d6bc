// Package llm provides an abstraction over hosted text generation models.
package llm

import (
	"context"
	"net/http"
)

// StreamCallback is called for each chunk of generated text, in order.
// Returning an error stops the stream and is returned by GenerateStream.
type StreamCallback func(token string) error

// Generator defines the interface for text generation.
type Generator interface {
	// Generate returns the complete completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream delivers the completion through callback as the
	// provider yields it.
	GenerateStream(ctx context.Context, prompt string, callback StreamCallback) error

	// Name identifies the provider.
	Name() string
}

type Option func(*Options)

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
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

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxTokens: 1024,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
