package domain

import "time"

// RunSummary is an audit entry describing one pipeline run.
type RunSummary struct {
	// Kind is the run type: "fetch", "process" or "index".
	Kind string `json:"kind"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Counts holds the run's summary counters keyed by name, e.g.
	// {"new": 120, "duplicate": 34, "failed": 2}.
	Counts map[string]int `json:"counts"`
}

// FetchReport summarises one fetch run so operators can audit progress
// without reading raw logs.
type FetchReport struct {
	// New is the count of records fetched and committed this run.
	New int

	// Duplicate is the count of IDs skipped because the checkpoint
	// already held them.
	Duplicate int

	// Failed is the count of IDs that exhausted their retry budget.
	Failed int
}

// ProcessReport summarises one filter/parse/chunk run.
type ProcessReport struct {
	// Records is the number of source records examined.
	Records int

	// Accepted is the number of records that passed the relevance filter.
	Accepted int

	// Rejected counts filtered-out records by decision reason.
	Rejected map[string]int

	// ParseFailed is the number of accepted records that failed to parse.
	ParseFailed int

	// Chunks is the total number of chunks written.
	Chunks int
}

// IndexReport summarises one indexing run.
type IndexReport struct {
	// Documents is the number of chunk artifacts read.
	Documents int

	// Indexed is the number of chunks upserted into the collection.
	Indexed int

	// Skipped is the number of chunks already present (append mode).
	Skipped int

	// EmbedFailed is the number of documents dropped by embedding errors.
	EmbedFailed int
}
