package driven

import "context"

// Reranker scores (query, candidate) pairs jointly with a cross-encoder
// style relevance model. Joint scoring is more accurate than comparing
// independently computed embeddings; it is also more expensive, so it only
// runs over the small stage-1 candidate set.
type Reranker interface {
	// Score returns one scalar per candidate text, in input order.
	// Higher means more relevant to the query.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)

	// ModelName returns the name of the re-ranking model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
