package driven

import (
	"context"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// RecordStore persists raw source records and run summaries.
type RecordStore interface {
	// Put stores a fetched record. Storing an already-present ID is a
	// no-op: records are immutable once fetched.
	Put(ctx context.Context, rec domain.SourceRecord) error

	// Get retrieves a record by ID. Returns domain.ErrNotFound when the
	// record does not exist.
	Get(ctx context.Context, id string) (*domain.SourceRecord, error)

	// Walk calls fn for every stored record in ID order. Walking stops
	// at the first error returned by fn.
	Walk(ctx context.Context, fn func(domain.SourceRecord) error) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// SaveRun appends a run summary for operator auditing.
	SaveRun(ctx context.Context, run domain.RunSummary) error

	// ListRuns returns run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Close releases resources.
	Close() error
}
