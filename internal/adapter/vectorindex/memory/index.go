// Package memory is an in-process vector index using brute-force cosine
// similarity. It backs local runs and tests.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex"
)

type point struct {
	id      string
	vector  []float32
	payload map[string]any
}

// Index keeps every point in memory.
type Index struct {
	mu        sync.RWMutex
	dimension int
	points    []point
	byID      map[string]int
}

// Ensure Index implements vectorindex.Index interface.
var _ vectorindex.Index = (*Index)(nil)

func NewIndex() *Index {
	return &Index{byID: make(map[string]int)}
}

func (s *Index) Name() string { return "memory" }

func (s *Index) Ping(ctx context.Context) error { return nil }

func (s *Index) EnsureCollection(ctx context.Context, dimension int, recreate bool) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if recreate || s.dimension == 0 {
		s.dimension = dimension
		s.points = nil
		s.byID = make(map[string]int)
	}
	return nil
}

func (s *Index) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(vector)
	}
	if len(vector) != s.dimension {
		return errors.New("vector dimension mismatch")
	}
	p := point{id: id, vector: append([]float32(nil), vector...), payload: payload}
	if i, ok := s.byID[id]; ok {
		s.points[i] = p
		return nil
	}
	s.byID[id] = len(s.points)
	s.points = append(s.points, p)
	return nil
}

func (s *Index) Query(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	if k < 1 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, errors.New("vector dimension mismatch")
	}

	hits := make([]vectorindex.Hit, 0, len(s.points))
	for _, p := range s.points {
		hits = append(hits, vectorindex.Hit{ID: p.id, Score: cosine(p.vector, vector), Payload: p.payload})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
