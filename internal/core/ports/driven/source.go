package driven

import (
	"context"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// BibliographicSource fetches articles from an external paginated archive.
// Implementations handle rate limiting and retries internally; callers see
// either records or a terminal error per call.
type BibliographicSource interface {
	// SearchIDs lists article IDs matching a topic query, one page at a
	// time. It returns the page of IDs and the total match count so the
	// caller can decide whether more pages remain.
	SearchIDs(ctx context.Context, query string, offset, limit int) (ids []string, total int, err error)

	// FetchRecords retrieves full raw records for a batch of IDs.
	// IDs the source no longer knows are omitted from the result, not
	// reported as errors.
	FetchRecords(ctx context.Context, ids []string) ([]domain.SourceRecord, error)

	// Close releases resources.
	Close() error
}
