package domain

import "time"

// RetrievalState tracks where a retrieval call is in its lifecycle:
// Idle -> Embedding -> Searching -> Reranking -> Done, with Failed
// reachable from any state.
type RetrievalState int

const (
	// RetrievalIdle is the initial state.
	RetrievalIdle RetrievalState = iota

	// RetrievalEmbedding is computing the query vector.
	RetrievalEmbedding

	// RetrievalSearching is running the approximate vector search.
	RetrievalSearching

	// RetrievalReranking is scoring stage-1 candidates pairwise.
	RetrievalReranking

	// RetrievalDone is the successful terminal state.
	RetrievalDone

	// RetrievalFailed is the failure terminal state.
	RetrievalFailed
)

// String returns the state name.
func (s RetrievalState) String() string {
	switch s {
	case RetrievalIdle:
		return "idle"
	case RetrievalEmbedding:
		return "embedding"
	case RetrievalSearching:
		return "searching"
	case RetrievalReranking:
		return "reranking"
	case RetrievalDone:
		return "done"
	case RetrievalFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Default retrieval parameters.
const (
	// DefaultStage1TopK is the number of approximate search candidates.
	DefaultStage1TopK = 20

	// DefaultStage2TopN is the number of results after re-ranking.
	DefaultStage2TopN = 5

	// DefaultRetrievalBudget bounds one retrieval call across both stages.
	DefaultRetrievalBudget = 30 * time.Second
)

// RetrievalOptions tunes one retrieval call. Zero values fall back to the
// defaults above.
type RetrievalOptions struct {
	// Stage1TopK is the candidate count from approximate vector search.
	Stage1TopK int

	// Stage2TopN is the result count after precise re-ranking.
	Stage2TopN int

	// Budget bounds the whole call across both stages.
	Budget time.Duration

	// ExpandQuery enables domain-synonym query expansion before
	// embedding. Expansion is a pure rewrite with no side effects.
	ExpandQuery bool
}

// RetrievedChunk is one entry in the ordered retrieval result list.
// This is the sole contract the downstream reasoning layer depends on.
type RetrievedChunk struct {
	// Chunk carries the text and source metadata.
	Chunk Chunk

	// Score is the final relevance score. After stage 2 it is the
	// cross-encoder score; for stage-1-only results it is similarity.
	Score float64

	// Stage1Rank is the candidate's position in the approximate search
	// ordering, kept for tie-breaking and auditability.
	Stage1Rank int
}
