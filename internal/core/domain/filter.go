package domain

// PriorityTier orders accepted documents by how strongly they match the
// research focus. Higher tiers are indexed first when capacity is limited.
type PriorityTier int

const (
	// TierStandard is an accepted document with no strong indicators.
	TierStandard PriorityTier = iota

	// TierHigh is an accepted document matching at least one strong
	// indicator term.
	TierHigh
)

// String returns the tier name.
func (t PriorityTier) String() string {
	switch t {
	case TierHigh:
		return "high"
	default:
		return "standard"
	}
}

// FilterDecision is the outcome of relevance classification for one record.
// It is derived state: decisions are recomputed from the record and the
// rule set, never persisted on their own.
type FilterDecision struct {
	// RecordID is the classified source record.
	RecordID string

	// Accepted is true when the record enters the pipeline.
	Accepted bool

	// Reason explains the decision in a deterministic, auditable string.
	Reason string

	// Tier is the priority tier for accepted records.
	Tier PriorityTier
}
