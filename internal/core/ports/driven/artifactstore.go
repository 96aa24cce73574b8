package driven

import (
	"context"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// ArtifactStore persists one chunk artifact per processed document.
// Artifacts are the hand-off between the processing pipeline and the
// indexer; nothing else consumes them.
type ArtifactStore interface {
	// Save writes the artifact for a document, replacing any previous
	// artifact for the same document ID.
	Save(ctx context.Context, dc domain.DocumentChunks) error

	// Has reports whether an artifact exists for the document.
	Has(ctx context.Context, documentID string) (bool, error)

	// Walk calls fn for every stored artifact. Walking stops at the
	// first error returned by fn.
	Walk(ctx context.Context, fn func(domain.DocumentChunks) error) error
}
