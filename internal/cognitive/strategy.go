package cognitive

import "github.com/normanking/cogito/internal/tier"

// Step is one planned unit of work: a tier to run and the purpose of each
// run. A parallel step launches one run per purpose concurrently.
type Step struct {
	Tier     tier.CognitiveTier `json:"tier"`
	Purposes []string           `json:"purposes"`
	Parallel bool               `json:"parallel"`
}

// Strategy is the ordered plan for one stimulus.
type Strategy struct {
	Steps  []Step `json:"steps"`
	Reason string `json:"reason"`
}

// planStrategy maps the stimulus profile to an ordered list of tier runs.
// Urgency comparisons are strict: urgency exactly 0.8 is not "high urgency".
// The relevance floor is inclusive: relevance exactly 0.3 is "low relevance"
// and short-circuits to a single reflex note.
func planStrategy(urgency, complexity, relevance float64) Strategy {
	switch {
	case urgency > 0.8 && relevance > 0.5:
		steps := []Step{
			{Tier: tier.Reflex, Purposes: []string{"immediate_response"}},
			{Tier: tier.Reactive, Purposes: []string{"tactical_assessment", "strategic_assessment"}, Parallel: true},
		}
		if complexity > 0.5 {
			steps = append(steps, Step{Tier: tier.Deliberate, Purposes: []string{"considered_response"}})
		}
		return Strategy{Steps: steps, Reason: "high_urgency"}

	case urgency < 0.3 && relevance > 0.5:
		steps := []Step{
			{Tier: tier.Deliberate, Purposes: []string{"considered_response"}},
		}
		if complexity > 0.7 {
			steps = append(steps, Step{Tier: tier.Analytical, Purposes: []string{"deep_analysis"}})
		}
		return Strategy{Steps: steps, Reason: "low_urgency"}

	case relevance <= 0.3:
		return Strategy{
			Steps:  []Step{{Tier: tier.Reflex, Purposes: []string{"note_for_context"}}},
			Reason: "low_relevance",
		}

	default:
		t := tier.Reactive
		purpose := "quick_assessment"
		if complexity >= 0.5 {
			t = tier.Deliberate
			purpose = "considered_response"
		}
		return Strategy{
			Steps:  []Step{{Tier: t, Purposes: []string{purpose}}},
			Reason: "moderate",
		}
	}
}
