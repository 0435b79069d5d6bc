package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientEchoesQuestion(t *testing.T) {
	m := NewMockClient()
	prompt := "Context:\n[1] Question: not this one\n\nQuestion: What is ROS 2?\n\nAnswer:"

	got, err := m.Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, `[MOCK] Received your question: "What is ROS 2?". This is a mock response.`, got)
}

func TestMockClientStreamMatchesGenerate(t *testing.T) {
	m := NewMockClient()
	prompt := "Question: Explain sensor fusion in humanoid robots"

	full, err := m.Generate(context.Background(), prompt)
	require.NoError(t, err)

	var tokens []string
	err = m.GenerateStream(context.Background(), prompt, func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)
	assert.Greater(t, len(tokens), 1)
	assert.Equal(t, full, strings.Join(tokens, ""))
}

func TestMockClientStreamStopsOnCallbackError(t *testing.T) {
	m := &MockClient{Response: strings.Repeat("abc ", 20), ChunkSize: 4}
	stop := errors.New("stop")

	calls := 0
	err := m.GenerateStream(context.Background(), "ignored", func(string) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestMockClientStreamHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMockClient().GenerateStream(ctx, "Question: hi", func(string) error {
		t.Fatal("callback must not run after cancel")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitIntoChunksKeepsRunesWhole(t *testing.T) {
	chunks := splitIntoChunks("héllo wörld", 3)
	assert.Equal(t, "héllo wörld", strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.True(t, strings.ToValidUTF8(c, "?") == c, "chunk %q split a rune", c)
	}
}
