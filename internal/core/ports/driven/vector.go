package driven

import (
	"context"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// ChunkKey identifies one point in the vector index.
type ChunkKey struct {
	// DocumentID is the owning document.
	DocumentID string

	// ChunkIndex is the 0-based chunk position.
	ChunkIndex int
}

// VectorHit is one approximate nearest-neighbour result. The payload
// stored with each point carries the full chunk, so hits need no second
// lookup to be presented.
type VectorHit struct {
	// Chunk is the stored chunk reconstructed from the point payload.
	Chunk domain.Chunk

	// Score is the similarity under the collection's distance metric.
	Score float64
}

// VectorIndex is a named collection of embedded chunks with a fixed
// vector dimension and distance metric set at creation time.
//
// The index supports many concurrent readers. Writes have a single
// logical owner (the index service); a rebuild is an exclusive offline
// operation, never interleaved with writes to the same collection.
type VectorIndex interface {
	// EnsureCollection creates the collection with the given dimension
	// if it does not exist yet. It never drops existing data.
	EnsureCollection(ctx context.Context, dimensions int) error

	// Recreate drops and recreates the collection with the given
	// dimension. Callers wanting zero-downtime swap build a new
	// collection and repoint readers after completion instead.
	Recreate(ctx context.Context, dimensions int) error

	// Upsert inserts or replaces points for the given embedded chunks,
	// keyed by (document ID, chunk index).
	Upsert(ctx context.Context, chunks []domain.EmbeddedChunk) error

	// HasPoints reports which of the given keys already exist.
	HasPoints(ctx context.Context, keys []ChunkKey) (map[ChunkKey]bool, error)

	// Search returns the k nearest neighbours of the query vector,
	// most similar first.
	Search(ctx context.Context, vector []float32, k int) ([]VectorHit, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
