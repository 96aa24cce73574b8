// Package relevance classifies fetched articles before they enter the
// processing pipeline. Classification is a pure function of the article
// text and a declarative rule set: identical input and configuration
// always produce an identical decision and reason string, so rejected
// documents can be audited after the fact.
package relevance

import (
	"strings"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

// RuleSet is the declarative term configuration driving classification.
//
// The shipped defaults were tuned heuristically against one corpus
// (roughly a 20% accept rate) without a labelled validation set. Treat
// them as a starting configuration, not ground truth.
type RuleSet struct {
	// Minerals must match at least once for a document to be accepted.
	Minerals []string

	// HumanContext must match at least once, independently of Minerals.
	HumanContext []string

	// Exclusions reject the document on any match, regardless of the
	// other sets.
	Exclusions []string

	// StrongIndicators raise the priority tier without affecting the
	// accept/reject outcome.
	StrongIndicators []string
}

// Classifier evaluates a RuleSet against article text.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules RuleSet
}

// New creates a classifier for the given rule set.
func New(rules RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Decision reason strings. Reasons are fixed per outcome so rejection
// counts can be aggregated across a run.
const (
	ReasonNoMineral      = "no target minerals mentioned"
	ReasonNoHumanContext = "no human or clinical context"
	ReasonExcludedTopic  = "excluded topic (plant/animal/environmental)"
	ReasonRelevant       = "relevant (mineral + human context)"
	ReasonHighlyRelevant = "highly relevant (mineral + human context + strong indicator)"
)

// Classify decides whether an article enters the pipeline from its title
// and abstract. It matches lowercased substrings, the same way the rule
// lists were tuned.
func (c *Classifier) Classify(recordID, title, abstract string) domain.FilterDecision {
	text := strings.ToLower(title + " " + abstract)

	decision := domain.FilterDecision{RecordID: recordID}

	// Exclusions win over everything else.
	if matchesAny(text, c.rules.Exclusions) {
		decision.Reason = ReasonExcludedTopic
		return decision
	}

	if !matchesAny(text, c.rules.Minerals) {
		decision.Reason = ReasonNoMineral
		return decision
	}

	if !matchesAny(text, c.rules.HumanContext) {
		decision.Reason = ReasonNoHumanContext
		return decision
	}

	decision.Accepted = true
	if matchesAny(text, c.rules.StrongIndicators) {
		decision.Tier = domain.TierHigh
		decision.Reason = ReasonHighlyRelevant
	} else {
		decision.Tier = domain.TierStandard
		decision.Reason = ReasonRelevant
	}
	return decision
}

// matchesAny reports whether any term occurs as a substring of text.
// Terms are expected to be lowercase already.
func matchesAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// DefaultRules returns the electrolyte-research rule set the corpus was
// originally curated with.
func DefaultRules() RuleSet {
	return RuleSet{
		Minerals: []string{
			"magnesium", "calcium", "potassium", "sodium",
			"electrolyte", "mineral",
		},
		HumanContext: []string{
			"human", "adult", "patient", "participant", "subject", "volunteer",
			"men", "women", "male", "female", "elderly", "athlete",
			"supplement", "supplementation", "intake", "diet", "dietary",
			"deficiency", "serum", "plasma", "blood", "urine",
			"bioavailability", "absorption", "dose", "dosage",
			"clinical trial", "randomized", "placebo", "rct",
		},
		Exclusions: []string{
			"soil", "crop", "plant growth", "agricultural", "agriculture",
			"livestock", "poultry", "swine", "cattle", "pig", "chicken",
			"amaranth", "wheat", "rice", "corn", "maize", "soybean",
			"fertilizer", "irrigation", "cultivation",
			"in vitro", "cell culture", "tissue culture",
			"nanoparticle", "nanotechnology", "biosynthesis",
			"veterinary", "equine", "horse", "canine", "dog",
			"feline", "animal model", "rat", "mice", "mouse",
		},
		StrongIndicators: []string{
			"bioavailability", "absorption", "dose-response", "dose response",
			"clinical trial", "randomized controlled", "rct", "double-blind",
			"supplementation", "deficiency", "serum level", "plasma level",
			"sleep quality", "insomnia", "exercise performance", "athletic",
			"menstrual", "premenstrual", "pms", "dysmenorrhea",
			"hypomagnesemia", "hypocalcemia", "hypokalemia", "hyponatremia",
		},
	}
}
