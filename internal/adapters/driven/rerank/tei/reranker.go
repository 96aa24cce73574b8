// Package tei provides a cross-encoder reranker adapter speaking the
// text-embeddings-inference rerank protocol: one POST with the query and
// candidate texts, scores back per candidate.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultModel   = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the reranker.
type Config struct {
	// BaseURL is the rerank service base URL (default: http://localhost:8080).
	BaseURL string

	// Model names the cross-encoder model, for reporting only. The
	// service decides which model it actually serves.
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Reranker scores query/text pairs with a hosted cross-encoder.
type Reranker struct {
	client  *http.Client
	baseURL string
	model   string
}

// rerankRequest is the rerank API request format.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one scored candidate in the response.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewReranker creates a rerank service client.
func NewReranker(cfg Config) *Reranker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Reranker{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Score returns one relevance score per text, in input order.
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Responses come back sorted by score; restore input order by index.
	scores := make([]float64, len(texts))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, fmt.Errorf("rerank: result index %d out of range", res.Index)
		}
		scores[res.Index] = res.Score
	}
	return scores, nil
}

// ModelName returns the configured cross-encoder model name.
func (r *Reranker) ModelName() string {
	return r.model
}

// Close releases resources.
func (r *Reranker) Close() error {
	return nil
}
