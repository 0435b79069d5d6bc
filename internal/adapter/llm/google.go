package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	genaiopt "google.golang.org/api/option"
)

// GoogleClient generates with Gemini models through the native API.
type GoogleClient struct {
	options Options
	client  *genai.Client
}

// Ensure GoogleClient implements Generator interface.
var _ Generator = (*GoogleClient)(nil)

// NewGoogleClient creates a new Gemini client.
func NewGoogleClient(ctx context.Context, opts ...Option) (*GoogleClient, error) {
	options := NewOptions(opts...)

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(options.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleClient{options: options, client: client}, nil
}

func (g *GoogleClient) Name() string { return "google" }

// Close releases the underlying client.
func (g *GoogleClient) Close() error {
	return g.client.Close()
}

func (g *GoogleClient) model() *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.options.Model)
	model.SetMaxOutputTokens(int32(g.options.MaxTokens))
	return model
}

func (g *GoogleClient) Generate(ctx context.Context, prompt string) (string, error) {
	rsp, err := g.model().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	parts := candidateParts(rsp)
	if len(parts) == 0 {
		return "", errors.New("no response from Google")
	}

	var b strings.Builder
	for _, text := range parts {
		b.WriteString(text)
	}
	return b.String(), nil
}

func (g *GoogleClient) GenerateStream(ctx context.Context, prompt string, callback StreamCallback) error {
	return streamResponses(g.model().GenerateContentStream(ctx, genai.Text(prompt)), callback)
}

// responseIterator is satisfied by *genai.GenerateContentResponseIterator.
type responseIterator interface {
	Next() (*genai.GenerateContentResponse, error)
}

func streamResponses(iter responseIterator, callback StreamCallback) error {
	for {
		rsp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, text := range candidateParts(rsp) {
			if err := callback(text); err != nil {
				return err
			}
		}
	}
}

// candidateParts returns the non-empty text parts of the first candidate.
func candidateParts(rsp *genai.GenerateContentResponse) []string {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return nil
	}
	var parts []string
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok && text != "" {
			parts = append(parts, string(text))
		}
	}
	return parts
}
