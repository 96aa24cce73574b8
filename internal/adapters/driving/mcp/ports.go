package mcp

import (
	"context"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driving"
)

// RunLister exposes pipeline run history to MCP resources.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Ports aggregates the ports the MCP server requires.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers corpus queries.
	Retrieval driving.RetrievalService

	// Runs lists pipeline run history. Optional.
	Runs RunLister
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
