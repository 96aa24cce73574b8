package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driving"
	"github.com/marrow-labs/biblio-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService answers free-text queries in two stages: approximate
// vector search over the whole index, then cross-encoder re-ranking of
// the small candidate set. The reranker is optional; without one results
// keep their stage-1 similarity ordering.
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	reranker driven.Reranker
	defaults domain.RetrievalOptions
	synonyms map[string][]string
}

// NewRetrievalService creates a retrieval service. reranker may be nil
// to disable stage 2. defaults fills per-call option fields left at their
// zero value; its own zero fields fall back to the domain defaults.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	reranker driven.Reranker,
	defaults domain.RetrievalOptions,
) *RetrievalService {
	if reranker == nil {
		logger.Warn("Re-ranking disabled: results keep their vector-similarity order")
	}
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		reranker: reranker,
		defaults: defaults,
		synonyms: defaultSynonyms(),
	}
}

// Retrieve runs one query through both stages under a time budget.
// On failure it returns whatever partial result was computed before the
// failure together with a typed error, never a silent empty success.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("retrieve: empty query: %w", domain.ErrInvalidInput)
	}

	// Per-call options win over configured defaults, which win over the
	// domain defaults.
	if opts.Stage1TopK <= 0 {
		opts.Stage1TopK = s.defaults.Stage1TopK
	}
	if opts.Stage2TopN <= 0 {
		opts.Stage2TopN = s.defaults.Stage2TopN
	}
	if opts.Budget <= 0 {
		opts.Budget = s.defaults.Budget
	}
	opts.ExpandQuery = opts.ExpandQuery || s.defaults.ExpandQuery

	if opts.Stage1TopK <= 0 {
		opts.Stage1TopK = domain.DefaultStage1TopK
	}
	if opts.Stage2TopN <= 0 {
		opts.Stage2TopN = domain.DefaultStage2TopN
	}
	if opts.Budget <= 0 {
		opts.Budget = domain.DefaultRetrievalBudget
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	state := domain.RetrievalIdle
	advance := func(next domain.RetrievalState) {
		logger.Debug("Retrieval: %s -> %s", state, next)
		state = next
	}

	searchQuery := query
	if opts.ExpandQuery {
		searchQuery = s.expandQuery(query)
		if searchQuery != query {
			logger.Debug("Expanded query: %s", searchQuery)
		}
	}

	// Stage 1: embed and search.
	advance(domain.RetrievalEmbedding)
	vector, err := s.embedder.Embed(ctx, searchQuery)
	if err != nil {
		advance(domain.RetrievalFailed)
		return nil, s.classify(ctx, state, opts, err)
	}

	advance(domain.RetrievalSearching)
	hits, err := s.index.Search(ctx, vector, opts.Stage1TopK)
	if err != nil {
		advance(domain.RetrievalFailed)
		return nil, s.classify(ctx, state, opts, err)
	}

	candidates := make([]domain.RetrievedChunk, len(hits))
	for i, hit := range hits {
		candidates[i] = domain.RetrievedChunk{
			Chunk:      hit.Chunk,
			Score:      hit.Score,
			Stage1Rank: i,
		}
	}
	if len(candidates) == 0 {
		advance(domain.RetrievalDone)
		return nil, nil
	}

	// Stage 2: cross-encoder re-rank. The original, unexpanded query is
	// scored; expansion only widens the candidate net.
	if s.reranker == nil {
		advance(domain.RetrievalDone)
		return top(candidates, opts.Stage2TopN), nil
	}

	advance(domain.RetrievalReranking)
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Text
	}
	scores, err := s.reranker.Score(ctx, query, texts)
	if err != nil {
		advance(domain.RetrievalFailed)
		// Stage-1 ordering is still a valid partial result.
		partial := top(candidates, opts.Stage2TopN)
		return partial, s.classify(ctx, domain.RetrievalReranking, opts, err)
	}
	if len(scores) != len(candidates) {
		advance(domain.RetrievalFailed)
		partial := top(candidates, opts.Stage2TopN)
		return partial, fmt.Errorf("retrieve: got %d scores for %d candidates", len(scores), len(candidates))
	}

	for i := range candidates {
		candidates[i].Score = scores[i]
	}
	// Stable sort: candidates arrive in stage-1 order, so equal scores
	// keep that order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	advance(domain.RetrievalDone)
	return top(candidates, opts.Stage2TopN), nil
}

// classify turns a stage failure into the typed error the caller sees.
// Budget expiry reports the stage that was running when time ran out.
func (s *RetrievalService) classify(ctx context.Context, stage domain.RetrievalState, opts domain.RetrievalOptions, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.RetrievalTimeoutError{Stage: stage, Budget: opts.Budget}
	}
	return err
}

// top returns the first n results.
func top(results []domain.RetrievedChunk, n int) []domain.RetrievedChunk {
	if len(results) > n {
		results = results[:n]
	}
	return results
}

// expandQuery appends domain synonyms for terms present in the query.
// Pure rewrite: same input and synonym table, same output.
func (s *RetrievalService) expandQuery(query string) string {
	lower := strings.ToLower(query)

	var extra []string
	for term, alts := range s.synonyms {
		if !strings.Contains(lower, term) {
			continue
		}
		for _, alt := range alts {
			if !strings.Contains(lower, alt) {
				extra = append(extra, alt)
			}
		}
	}
	if len(extra) == 0 {
		return query
	}
	sort.Strings(extra)
	return query + " " + strings.Join(extra, " ")
}

// defaultSynonyms is the electrolyte-domain expansion table.
func defaultSynonyms() map[string][]string {
	return map[string][]string{
		"magnesium":    {"mg", "hypomagnesemia"},
		"calcium":      {"ca", "hypocalcemia"},
		"potassium":    {"hypokalemia"},
		"sodium":       {"hyponatremia"},
		"sleep":        {"insomnia", "sleep quality"},
		"cramp":        {"muscle cramp", "spasm"},
		"supplement":   {"supplementation", "intake"},
		"deficiency":   {"deficit", "insufficiency"},
		"absorption":   {"bioavailability"},
		"blood":        {"serum", "plasma"},
		"heart":        {"cardiac", "cardiovascular"},
		"bone":         {"skeletal", "bone mineral density"},
		"exercise":     {"athletic performance", "physical activity"},
		"hypertension": {"blood pressure"},
	}
}
