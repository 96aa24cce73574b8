// Package driving provides interfaces for entry-point adapters
// (primary/inbound ports). The CLI and MCP server depend on these, never
// on service implementations directly.
package driving

import (
	"context"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// FetchService bulk-fetches raw records from the bibliographic source.
type FetchService interface {
	// Fetch runs the topic queries and commits new records, resuming
	// from the stored checkpoint. It is idempotent: re-running with the
	// same query set fetches strictly the not-yet-seen IDs.
	Fetch(ctx context.Context, queries []string) (domain.FetchReport, error)
}

// ProcessService filters, parses and chunks stored records into artifacts.
type ProcessService interface {
	// Process walks every stored record through filter, parse and chunk
	// stages, writing one artifact per accepted document.
	Process(ctx context.Context) (domain.ProcessReport, error)

	// ProcessRecord runs one record through the same stages, for
	// directory-watch ingestion and ad-hoc reprocessing.
	ProcessRecord(ctx context.Context, rec domain.SourceRecord) (domain.FilterDecision, error)
}

// IndexService embeds chunk artifacts and writes them to the vector index.
type IndexService interface {
	// Rebuild drops the collection, recreates it with the embedder's
	// dimension, and inserts every artifact. Exclusive operation.
	Rebuild(ctx context.Context) (domain.IndexReport, error)

	// Append inserts only chunks not already present in the collection.
	Append(ctx context.Context) (domain.IndexReport, error)
}

// RetrievalService answers free-text queries against the persisted index.
type RetrievalService interface {
	// Retrieve performs two-stage retrieval: approximate vector search
	// then cross-encoder re-ranking. On failure it returns a typed
	// error together with any partial result computed before it.
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievedChunk, error)
}
