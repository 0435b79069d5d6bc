package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// MockEmbedder produces deterministic bag-of-words vectors. Texts sharing
// words land close together, which is enough for local runs and tests.
type MockEmbedder struct {
	dimension int
}

// Ensure MockEmbedder implements Embedder interface.
var _ Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder producing vectors of dimension dims.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &MockEmbedder{dimension: dims}
}

func (m *MockEmbedder) Name() string { return "mock" }

func (m *MockEmbedder) Embed(ctx context.Context, text string, mode domain.EmbeddingMode) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, m.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[int(h.Sum32())%m.dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
