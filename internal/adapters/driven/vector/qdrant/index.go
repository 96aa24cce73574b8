// Package qdrant provides a VectorIndex adapter backed by the Qdrant
// REST API. The collection stores one point per chunk, keyed by a
// deterministic UUID derived from (document ID, chunk index), with the
// full chunk as queryable payload.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultCollection = "biblio_corpus"
	DefaultTimeout    = 30 * time.Second
)

// pointNamespace is the fixed namespace for deriving point UUIDs. The
// same (document ID, chunk index) always maps to the same point, which is
// what makes upserts idempotent.
var pointNamespace = uuid.MustParse("8c9e6f2a-41d3-4b18-9a57-30f1c6a4d2e9")

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the Qdrant base URL, e.g. http://localhost:6333.
	URL string

	// APIKey is the optional Qdrant API key.
	APIKey string

	// Collection is the collection name (default: biblio_corpus).
	Collection string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// Index is a Qdrant-backed vector index using cosine distance.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// NewIndex creates a Qdrant index client.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant: empty URL: %w", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// PointID derives the deterministic UUID for a chunk key.
func PointID(key driven.ChunkKey) string {
	name := key.DocumentID + ":" + strconv.Itoa(key.ChunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// EnsureCollection creates the collection if it does not exist yet.
func (x *Index) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d: %w", dimensions, domain.ErrInvalidInput)
	}

	status, err := x.do(ctx, http.MethodGet, "/collections/"+x.collection, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	return x.createCollection(ctx, dimensions)
}

// Recreate drops and recreates the collection. Exclusive operation: the
// caller guarantees no concurrent writer on the same collection.
func (x *Index) Recreate(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d: %w", dimensions, domain.ErrInvalidInput)
	}

	// Dropping a collection that does not exist yet is fine.
	if _, err := x.do(ctx, http.MethodDelete, "/collections/"+x.collection, nil, nil); err != nil {
		return err
	}

	return x.createCollection(ctx, dimensions)
}

func (x *Index) createCollection(ctx context.Context, dimensions int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	status, err := x.do(ctx, http.MethodPut, "/collections/"+x.collection, body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant: create collection %s: status %d", x.collection, status)
	}
	return nil
}

// Upsert inserts or replaces points for the given embedded chunks.
func (x *Index) Upsert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, len(chunks))
	for i, ec := range chunks {
		key := driven.ChunkKey{DocumentID: ec.DocumentID, ChunkIndex: ec.Index}
		points[i] = map[string]any{
			"id":      PointID(key),
			"vector":  ec.Vector,
			"payload": ec.Chunk,
		}
	}

	body := map[string]any{"points": points}
	status, err := x.do(ctx, http.MethodPut, "/collections/"+x.collection+"/points?wait=true", body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant: upsert %d points: status %d", len(points), status)
	}
	return nil
}

// HasPoints reports which keys already exist in the collection.
func (x *Index) HasPoints(ctx context.Context, keys []driven.ChunkKey) (map[driven.ChunkKey]bool, error) {
	present := make(map[driven.ChunkKey]bool, len(keys))
	if len(keys) == 0 {
		return present, nil
	}

	ids := make([]string, len(keys))
	byID := make(map[string]driven.ChunkKey, len(keys))
	for i, key := range keys {
		id := PointID(key)
		ids[i] = id
		byID[id] = key
	}

	body := map[string]any{
		"ids":          ids,
		"with_payload": false,
		"with_vector":  false,
	}
	var resp struct {
		Result []struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	status, err := x.do(ctx, http.MethodPost, "/collections/"+x.collection+"/points", body, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant: retrieve points: status %d", status)
	}

	for _, r := range resp.Result {
		if key, ok := byID[r.ID]; ok {
			present[key] = true
		}
	}
	return present, nil
}

// Search returns the k nearest neighbours of the query vector.
func (x *Index) Search(ctx context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		k = domain.DefaultStage1TopK
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	status, err := x.do(ctx, http.MethodPost, "/collections/"+x.collection+"/points/search", body, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant: search: status %d", status)
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		var chunk domain.Chunk
		if err := json.Unmarshal(r.Payload, &chunk); err != nil {
			return nil, fmt.Errorf("qdrant: decode payload: %w", err)
		}
		hits = append(hits, driven.VectorHit{Chunk: chunk, Score: r.Score})
	}
	return hits, nil
}

// Count returns the exact number of stored points.
func (x *Index) Count(ctx context.Context) (int, error) {
	body := map[string]any{"exact": true}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := x.do(ctx, http.MethodPost, "/collections/"+x.collection+"/points/count", body, &resp)
	if err != nil {
		return 0, err
	}
	if status >= 300 {
		return 0, fmt.Errorf("qdrant: count: status %d", status)
	}
	return resp.Result.Count, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// do performs one JSON request. Transport-level failures map to
// domain.ErrIndexUnavailable so callers can distinguish an unreachable
// index from a bad request.
func (x *Index) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("qdrant: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.url+path, reader)
	if err != nil {
		return 0, fmt.Errorf("qdrant: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("qdrant: decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
