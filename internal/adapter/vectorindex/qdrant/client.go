// Package qdrant is a vector index backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/vectorindex"
)

// Options configures a Qdrant index.
type Options struct {
	Location   string
	APIKey     string
	Collection string
	Distance   string
	HTTPClient *http.Client
}

// Index talks to one Qdrant collection.
type Index struct {
	options Options
	client  *http.Client
}

// Ensure Index implements vectorindex.Index interface.
var _ vectorindex.Index = (*Index)(nil)

// NewIndex creates a Qdrant index client. No request is made until first use.
func NewIndex(opts Options) (*Index, error) {
	if opts.Location == "" {
		return nil, errors.New("qdrant location is required")
	}
	if opts.Collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	opts.Location = strings.TrimRight(opts.Location, "/")
	if opts.Distance == "" {
		opts.Distance = "Cosine"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Index{options: opts, client: client}, nil
}

func (s *Index) Name() string { return "qdrant" }

func (s *Index) collectionPath() string {
	return "/collections/" + url.PathEscape(s.options.Collection)
}

// Upsert stores one point and waits for it to be indexed.
func (s *Index) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	req := map[string]any{
		"points": []map[string]any{
			{
				"id":      id,
				"vector":  vector,
				"payload": payload,
			},
		},
	}

	var rsp qdrantEnvelope[json.RawMessage]
	if err := s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

// Query runs a top-k similarity search.
func (s *Index) Query(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	if k < 1 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var rsp qdrantEnvelope[[]qdrantPointResult]
	if err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &rsp); err != nil {
		return nil, err
	}
	if rsp.Status.Error != "" {
		return nil, errors.New(rsp.Status.Error)
	}

	hits := make([]vectorindex.Hit, 0, len(rsp.Result))
	for _, point := range rsp.Result {
		hits = append(hits, vectorindex.Hit{
			ID:      string(point.ID),
			Score:   point.Score,
			Payload: point.Payload,
		})
	}
	return hits, nil
}

// Ping checks that the collection is reachable.
func (s *Index) Ping(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("qdrant collection %q does not exist", s.options.Collection)
	}
	return nil
}

// EnsureCollection creates the collection when missing.
func (s *Index) EnsureCollection(ctx context.Context, dimension int, recreate bool) error {
	if recreate {
		if err := s.do(ctx, http.MethodDelete, s.collectionPath(), nil, nil); err != nil && !isNotFound(err) {
			return err
		}
	} else {
		exists, err := s.collectionExists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}
	return s.createCollection(ctx, dimension)
}

func (s *Index) collectionExists(ctx context.Context) (bool, error) {
	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(ctx, http.MethodGet, s.collectionPath(), nil, &rsp)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *Index) createCollection(ctx context.Context, dimension int) error {
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.options.Distance,
		},
	}
	var rsp qdrantEnvelope[json.RawMessage]
	if err := s.do(ctx, http.MethodPut, s.collectionPath(), req, &rsp); err != nil {
		return err
	}
	if rsp.Status.Error != "" {
		return errors.New(rsp.Status.Error)
	}
	return nil
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("qdrant http %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	var he *httpError
	return errors.As(err, &he) && he.status == http.StatusNotFound
}

func (s *Index) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.options.Location + path
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.APIKey) > 0 {
		request.Header.Set("api-key", s.options.APIKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return &httpError{status: response.StatusCode, body: string(payload)}
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}
