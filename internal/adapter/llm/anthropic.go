package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// AnthropicClient generates with Claude models through the Messages API.
type AnthropicClient struct {
	options Options
	client  *anthropic.Client
}

// Ensure AnthropicClient implements Generator interface.
var _ Generator = (*AnthropicClient)(nil)

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(opts ...Option) *AnthropicClient {
	options := NewOptions(opts...)

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.APIKey),
		anthropicopt.WithHTTPClient(httpClient),
	}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)
	return &AnthropicClient{options: options, client: &client}
}

func (g *AnthropicClient) Name() string { return "anthropic" }

func (g *AnthropicClient) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(g.options.Model),
		MaxTokens: int64(g.options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

func (g *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	rsp, err := g.client.Messages.New(ctx, g.params(prompt))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", errors.New("no response from Anthropic")
	}

	return result, nil
}

func (g *AnthropicClient) GenerateStream(ctx context.Context, prompt string, callback StreamCallback) error {
	stream := g.client.Messages.NewStreaming(ctx, g.params(prompt))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
		if !ok || text.Text == "" {
			continue
		}
		if err := callback(text.Text); err != nil {
			return err
		}
	}

	return stream.Err()
}
