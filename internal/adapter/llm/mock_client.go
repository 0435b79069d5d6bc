package llm

import (
	"context"
	"fmt"
	"strings"
)

// questionMarker is the label the prompt composer puts before the user's
// question. The mock echoes whatever follows the last occurrence.
const questionMarker = "Question:"

// MockClient is a deterministic Generator for tests and local runs without
// provider credentials.
type MockClient struct {
	// Response, when set, is returned verbatim instead of the echo answer.
	Response string
	// ChunkSize controls how many bytes each streamed token carries.
	ChunkSize int
}

// NewMockClient creates a new mock generator.
func NewMockClient() *MockClient {
	return &MockClient{ChunkSize: 10}
}

// Ensure MockClient implements Generator interface.
var _ Generator = (*MockClient)(nil)

func (m *MockClient) Name() string { return "mock" }

// Generate returns a mock answer.
func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.generateMockResponse(prompt), nil
}

// GenerateStream simulates a streaming response.
func (m *MockClient) GenerateStream(ctx context.Context, prompt string, callback StreamCallback) error {
	responseContent := m.generateMockResponse(prompt)

	for _, chunk := range splitIntoChunks(responseContent, m.ChunkSize) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := callback(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockClient) generateMockResponse(prompt string) string {
	if m.Response != "" {
		return m.Response
	}

	question := prompt
	if idx := strings.LastIndex(prompt, questionMarker); idx >= 0 {
		question = prompt[idx+len(questionMarker):]
	}
	question = strings.TrimSpace(question)
	if nl := strings.IndexByte(question, '\n'); nl >= 0 {
		question = strings.TrimSpace(question[:nl])
	}

	if question == "" {
		return "[MOCK] This is a mock response from the generator."
	}

	return fmt.Sprintf("[MOCK] Received your question: %q. This is a mock response.", truncate(question, 100))
}

// splitIntoChunks splits s into pieces of about chunkSize bytes without
// cutting through a UTF-8 sequence.
func splitIntoChunks(s string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = 10
	}
	if len(s) == 0 {
		return nil
	}

	var chunks []string
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if b.Len() >= chunkSize {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
