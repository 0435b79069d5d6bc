package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/embedding"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

func writeFloats(w http.ResponseWriter, vec []float64) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"response_type": "embeddings_floats",
		"id":            "emb-1",
		"texts":         []string{"q"},
		"embeddings":    [][]float64{vec},
	})
}

func TestEmbedSendsInputTypePerMode(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embed", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			Model     string   `json:"model"`
			Texts     []string `json:"texts"`
			InputType string   `json:"input_type"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embed-english-v3.0", req.Model)
		assert.Equal(t, []string{"humanoid balance"}, req.Texts)
		seen = append(seen, req.InputType)

		writeFloats(w, []float64{0.1, 0.2, 0.3})
	}))
	defer server.Close()

	client := NewClient(
		embedding.WithAPIKey("secret"),
		embedding.WithBaseURL(server.URL+"/"),
		embedding.WithDimension(3),
		embedding.WithHTTPClient(server.Client()),
	)

	vec, err := client.Embed(context.Background(), "humanoid balance", domain.EmbeddingModeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	_, err = client.Embed(context.Background(), "humanoid balance", domain.EmbeddingModeDocument)
	require.NoError(t, err)

	assert.Equal(t, []string{"search_query", "search_document"}, seen)
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeFloats(w, []float64{1})
	}))
	defer server.Close()

	client := NewClient(embedding.WithBaseURL(server.URL), embedding.WithHTTPClient(server.Client()))
	vec, err := client.Embed(context.Background(), "q", domain.EmbeddingModeQuery)
	require.NoError(t, err)
	assert.Len(t, vec, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid api token"}`))
	}))
	defer server.Close()

	client := NewClient(embedding.WithBaseURL(server.URL), embedding.WithHTTPClient(server.Client()))
	_, err := client.Embed(context.Background(), "q", domain.EmbeddingModeQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cohere embed failed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFloats(w, []float64{1, 2})
	}))
	defer server.Close()

	client := NewClient(embedding.WithBaseURL(server.URL), embedding.WithDimension(1024), embedding.WithHTTPClient(server.Client()))
	_, err := client.Embed(context.Background(), "q", domain.EmbeddingModeQuery)
	assert.Error(t, err)
}

func TestEmbedAcceptsEmbeddingsByType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response_type":"embeddings_by_type","id":"emb-2","texts":["q"],"embeddings":{"float":[[0.5,0.25]]}}`))
	}))
	defer server.Close()

	client := NewClient(embedding.WithBaseURL(server.URL), embedding.WithHTTPClient(server.Client()))
	vec, err := client.Embed(context.Background(), "q", domain.EmbeddingModeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}
