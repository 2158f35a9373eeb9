package cognitive

import (
	"strings"

	"github.com/normanking/cogito/internal/inference"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/tier"
)

// confidenceFloor is the minimum confidence after hedging penalties.
const confidenceFloor = 0.3

// hedgePenalty is subtracted per hedging word, up to maxHedges of them.
const (
	hedgePenalty = 0.05
	maxHedges    = 3
)

var hedgingWords = []string{
	"maybe", "perhaps", "might", "possibly", "probably",
	"unclear", "unsure", "not sure", "seems", "appears", "i think",
}

var concernWords = []string{"concern", "risk", "worry", "careful", "danger"}
var planWords = []string{"should", "could", "plan", "next", "recommend"}
var observationWords = []string{"notice", "observe", "see", "note"}

// baseConfidence is the starting confidence for a tier: deeper thinking
// earns more trust before the content is inspected.
func baseConfidence(t tier.CognitiveTier) float64 {
	switch t {
	case tier.Reflex:
		return 0.5
	case tier.Reactive:
		return 0.6
	case tier.Deliberate:
		return 0.75
	case tier.Analytical:
		return 0.85
	case tier.Comprehensive:
		return 0.9
	default:
		return 0.5
	}
}

// scoreConfidence penalizes hedged language against the tier base.
func scoreConfidence(t tier.CognitiveTier, text string) float64 {
	lower := strings.ToLower(text)
	hedges := 0
	for _, w := range hedgingWords {
		hedges += strings.Count(lower, w)
	}
	if hedges > maxHedges {
		hedges = maxHedges
	}
	confidence := baseConfidence(t) - hedgePenalty*float64(hedges)
	if confidence < confidenceFloor {
		return confidenceFloor
	}
	return confidence
}

// scoreCompleteness is a step function of how much of the tier's token
// budget the response used.
func scoreCompleteness(completionTokens int, t tier.CognitiveTier) float64 {
	maxTokens := tier.Get(t).MaxTokens
	if maxTokens == 0 {
		return 0.5
	}
	switch ratio := float64(completionTokens) / float64(maxTokens); {
	case ratio > 0.8:
		return 0.9
	case ratio > 0.5:
		return 0.7
	case ratio > 0.2:
		return 0.5
	default:
		return 0.4
	}
}

// inferThoughtType classifies a response by keyword heuristic. Concern
// wins over everything, a question mark over purpose, and reaction applies
// only to the immediate-response purpose.
func inferThoughtType(text, purpose string) mind.ThoughtType {
	lower := strings.ToLower(text)
	if containsAny(lower, concernWords) {
		return mind.TypeConcern
	}
	if strings.Contains(text, "?") {
		return mind.TypeQuestion
	}
	if purpose == "immediate_response" {
		return mind.TypeReaction
	}
	if containsAny(lower, planWords) {
		return mind.TypePlan
	}
	if containsAny(lower, observationWords) {
		return mind.TypeObservation
	}
	return mind.TypeInsight
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// buildThought turns one inference response into a scored thought.
func buildThought(t tier.CognitiveTier, purpose string, resp *inference.Response) mind.Thought {
	thought := mind.NewThought(t, resp.Text, inferThoughtType(resp.Text, purpose), purpose)
	thought.Confidence = scoreConfidence(t, resp.Text)
	thought.Completeness = scoreCompleteness(resp.CompletionTokens, t)
	return thought
}

// primaryScore ranks thoughts for primary selection: tier depth dominates,
// quality refines.
func primaryScore(t mind.Thought) float64 {
	return 0.4*float64(t.Tier.Level()) + 0.3*t.Confidence + 0.3*t.Completeness
}

// pickPrimary returns the index of the highest-scoring thought, first one
// winning ties, or -1 when there are none.
func pickPrimary(thoughts []mind.Thought) int {
	best := -1
	bestScore := 0.0
	for i, t := range thoughts {
		if s := primaryScore(t); best < 0 || s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}
