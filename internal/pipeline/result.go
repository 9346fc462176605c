package pipeline

import (
	"time"

	"github.com/tphakala/trapcam/internal/schema"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// Outcome summarizes how a request ended
type Outcome string

const (
	OutcomeNoAnimal   Outcome = "no_animal"
	OutcomeRejected   Outcome = "rejected"
	OutcomeIdentified Outcome = "identified"
	OutcomeReview     Outcome = "needs_review"
)

// Review reasons used by the orchestrator itself
const (
	ReasonNoAnimal           = "no animal detected"
	ReasonInsufficient       = "insufficient quality"
	ReasonStage1Unparseable  = "could not parse image assessment from model response"
	ReasonStage2Unparseable  = "could not parse species identification from model response"
	ReasonNoSpeciesSuggested = "model did not propose a species"
)

// Alternative is a runner-up candidate. Species is nil when the token did not
// resolve against the registry.
type Alternative struct {
	SpeciesID  string
	Species    *taxonomy.Species
	Confidence float64
}

// Result is the terminal artifact of one identification. It is built once and
// not mutated afterwards.
type Result struct {
	Stage1 schema.StageOne
	// Species is the resolved record, nil for early exits and unresolved tokens
	Species *taxonomy.Species
	// SpeciesToken is the model's token, kept for audit when it did not resolve
	SpeciesToken string
	Confidence   float64
	NeedsReview  bool
	ReviewReason *string
	Alternatives []Alternative

	Reasoning           string
	IdentifyingFeatures []string
	Count               int
	Animals             []schema.Animal

	Station  *taxonomy.Station
	Model    string
	Outcome  Outcome
	Cached   bool
	Duration time.Duration
}

// SpeciesID returns the canonical id, the unresolved token, or ""
func (r *Result) SpeciesID() string {
	if r.Species != nil {
		return r.Species.ID
	}
	return r.SpeciesToken
}

// noAnimalResult ends the run after Stage 1 found nothing to identify
func noAnimalResult(s1 schema.StageOne) *Result {
	reason := ReasonNoAnimal
	if s1.RejectionReason != "" {
		reason = s1.RejectionReason
	}
	return &Result{
		Stage1:              s1,
		Confidence:          s1.Confidence,
		NeedsReview:         false,
		ReviewReason:        &reason,
		Alternatives:        []Alternative{},
		IdentifyingFeatures: []string{},
		Animals:             []schema.Animal{},
		Outcome:             OutcomeNoAnimal,
	}
}

// rejectedResult ends the run when an animal is present but the frame is not
// good enough for identification
func rejectedResult(s1 schema.StageOne, reason string) *Result {
	if reason == "" {
		reason = ReasonInsufficient
	}
	return &Result{
		Stage1:              s1,
		Confidence:          s1.Confidence,
		NeedsReview:         true,
		ReviewReason:        &reason,
		Alternatives:        []Alternative{},
		IdentifyingFeatures: []string{},
		Animals:             []schema.Animal{},
		Count:               max(s1.AnimalCount, 1),
		Outcome:             OutcomeRejected,
	}
}

// identificationResult assembles the final result from a resolved and
// calibrated Stage 2
func identificationResult(s1 schema.StageOne, s2 schema.StageTwo, registry *taxonomy.Registry) *Result {
	r := &Result{
		Stage1:              s1,
		Confidence:          s2.Confidence,
		NeedsReview:         s2.NeedsReview,
		ReviewReason:        s2.ReviewReason,
		Reasoning:           s2.Reasoning,
		IdentifyingFeatures: s2.IdentifyingFeatures,
		Count:               s2.Count,
		Animals:             s2.Animals,
		Alternatives:        make([]Alternative, 0, len(s2.Alternatives)),
		Outcome:             OutcomeIdentified,
	}
	if r.IdentifyingFeatures == nil {
		r.IdentifyingFeatures = []string{}
	}
	if r.Animals == nil {
		r.Animals = []schema.Animal{}
	}

	if token := s2.Species(); token != "" {
		if sp, ok := registry.LookupByID(token); ok {
			r.Species = &sp
		} else {
			r.SpeciesToken = token
		}
	}

	for _, alt := range s2.Alternatives {
		a := Alternative{SpeciesID: alt.SpeciesID, Confidence: alt.Confidence}
		if sp, ok := registry.LookupByID(alt.SpeciesID); ok {
			a.Species = &sp
		}
		r.Alternatives = append(r.Alternatives, a)
	}

	if r.NeedsReview {
		r.Outcome = OutcomeReview
	}
	return r
}
