package driven

import (
	"context"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// CheckpointStore persists fetch progress. Save must be atomic: a crash
// mid-write may lose the latest batch but can never corrupt prior progress.
type CheckpointStore interface {
	// Load reads the checkpoint. A store with no checkpoint yet returns
	// an empty checkpoint, not an error.
	Load(ctx context.Context) (*domain.Checkpoint, error)

	// Save durably replaces the checkpoint.
	Save(ctx context.Context, cp *domain.Checkpoint) error
}
