package llm

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OpenAIClient talks to any OpenAI-compatible chat completions API,
// including Gemini's compatibility endpoint.
type OpenAIClient struct {
	options Options
	client  *openai.Client
}

// Ensure OpenAIClient implements Generator interface.
var _ Generator = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	options := NewOptions(opts...)

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

	return &OpenAIClient{
		options: options,
		client:  openai.NewClientWithConfig(config),
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) request(prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     c.options.Model,
		MaxTokens: c.options.MaxTokens,
		Stream:    stream,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
}

// Generate sends a non-streaming chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	rsp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, false))
	if err != nil {
		return "", err
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return rsp.Choices[0].Message.Content, nil
}

// GenerateStream sends a streaming chat completion request.
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, callback StreamCallback) error {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(prompt, true))
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		rsp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(rsp.Choices) == 0 {
			continue
		}
		token := rsp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		if err := callback(token); err != nil {
			return err
		}
	}
}
