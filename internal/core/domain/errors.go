package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexUnavailable indicates the vector index cannot be reached.
	// Fatal for the current operation; surfaced to the caller, never
	// retried silently.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or not reachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankerUnavailable indicates the re-ranking service is not
	// configured. Stage-2 scoring is disabled without it.
	ErrRerankerUnavailable = errors.New("reranker unavailable")

	// ErrRebuildInProgress indicates an exclusive index rebuild is
	// running; concurrent writes to the collection are refused.
	ErrRebuildInProgress = errors.New("index rebuild in progress")
)

// ParseError indicates one document could not be parsed. The document is
// skipped and logged; it never aborts the batch.
type ParseError struct {
	// RecordID is the source record that failed to parse.
	RecordID string

	// Reason is a short description of what went wrong.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.RecordID, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.RecordID, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbeddingError indicates embedding failed for one document's chunks.
// The document is skipped and logged; the batch continues.
type EmbeddingError struct {
	// DocumentID is the document whose chunks failed to embed.
	DocumentID string

	// Err is the underlying cause.
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed %s: %v", e.DocumentID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalTimeoutError indicates a retrieval call exceeded its time
// budget. It is returned alongside whatever partial result was computed
// before the budget expired, never as a silent empty success.
type RetrievalTimeoutError struct {
	// Stage is the retrieval stage that was running when time ran out.
	Stage RetrievalState

	// Budget is the configured per-call budget.
	Budget time.Duration
}

func (e *RetrievalTimeoutError) Error() string {
	return fmt.Sprintf("retrieval timed out during %s after %s", e.Stage, e.Budget)
}

// IsParseError checks whether the error is a document-level parse failure.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsRetrievalTimeout checks whether the error is a retrieval budget expiry.
func IsRetrievalTimeout(err error) bool {
	var te *RetrievalTimeoutError
	return errors.As(err, &te)
}
