// Package tier defines the ordered cognitive effort levels an agent can think
// at and the backend model classes they map to.
//
// The catalog is fixed at build time. Budgets, costs, and thresholds that are
// tunable live in their owning packages; only structural facts about a tier
// (token caps, latency targets, parallelism, model mapping) live here.
package tier

import "time"

// ═══════════════════════════════════════════════════════════════════════════════
// COGNITIVE TIERS
// ═══════════════════════════════════════════════════════════════════════════════

// CognitiveTier is an ordered level of cognitive effort. Higher tiers think
// longer, see more context, and produce longer responses.
type CognitiveTier int

const (
	// Reflex is an immediate, shallow reaction.
	Reflex CognitiveTier = iota

	// Reactive is a quick assessment with minimal context.
	Reactive

	// Deliberate is a considered response with full identity context.
	Deliberate

	// Analytical is a structured multi-question analysis.
	Analytical

	// Comprehensive is the deepest level, including stakeholders and next steps.
	Comprehensive
)

// String returns the lowercase name of the tier.
func (t CognitiveTier) String() string {
	switch t {
	case Reflex:
		return "reflex"
	case Reactive:
		return "reactive"
	case Deliberate:
		return "deliberate"
	case Analytical:
		return "analytical"
	case Comprehensive:
		return "comprehensive"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a defined cognitive tier.
func (t CognitiveTier) Valid() bool {
	return t >= Reflex && t <= Comprehensive
}

// Level returns the tier's ordinal depth (Reflex 0 .. Comprehensive 4).
func (t CognitiveTier) Level() int {
	return int(t)
}

// All returns every cognitive tier in ascending order.
func All() []CognitiveTier {
	return []CognitiveTier{Reflex, Reactive, Deliberate, Analytical, Comprehensive}
}

// ═══════════════════════════════════════════════════════════════════════════════
// MODEL TIERS
// ═══════════════════════════════════════════════════════════════════════════════

// ModelTier is an ordered class of inference backend. Each class has its own
// cost profile and share of the hourly budget.
type ModelTier int

const (
	// Small is the cheapest, fastest backend class.
	Small ModelTier = iota

	// Medium balances cost and capability.
	Medium

	// Large is the most capable and most expensive class.
	Large
)

// String returns the lowercase name of the model tier.
func (m ModelTier) String() string {
	switch m {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return "unknown"
	}
}

// Valid reports whether m is a defined model tier.
func (m ModelTier) Valid() bool {
	return m >= Small && m <= Large
}

// Lower returns the next model tier down, or false when m is already Small.
func (m ModelTier) Lower() (ModelTier, bool) {
	if m <= Small {
		return Small, false
	}
	return m - 1, true
}

// AllocationShare returns the fixed fraction of the hourly budget reserved
// for this model tier. The remainder is deliberately unallocated headroom.
func (m ModelTier) AllocationShare() float64 {
	switch m {
	case Small:
		return 0.10
	case Medium:
		return 0.25
	case Large:
		return 0.50
	default:
		return 0
	}
}

// ModelTiers returns every model tier in ascending order.
func ModelTiers() []ModelTier {
	return []ModelTier{Small, Medium, Large}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ═══════════════════════════════════════════════════════════════════════════════

// Config is the fixed configuration of one cognitive tier.
type Config struct {
	// MaxTokens caps the response length requested from the backend.
	MaxTokens int

	// TargetLatency is the latency the tier is designed around.
	TargetLatency time.Duration

	// MaxContextTokens caps how much gathered context the prompt may carry.
	MaxContextTokens int

	// RunsParallel reports whether multiple runs of this tier may execute
	// concurrently within one processing step.
	RunsParallel bool

	// Model is the backend class this tier dispatches to by default.
	Model ModelTier

	// Timeout is the hard deadline for one inference call at this tier.
	Timeout time.Duration
}

var catalog = [...]Config{
	Reflex: {
		MaxTokens:        150,
		TargetLatency:    200 * time.Millisecond,
		MaxContextTokens: 100,
		RunsParallel:     true,
		Model:            Small,
		Timeout:          500 * time.Millisecond,
	},
	Reactive: {
		MaxTokens:        400,
		TargetLatency:    500 * time.Millisecond,
		MaxContextTokens: 300,
		RunsParallel:     true,
		Model:            Medium,
		Timeout:          1000 * time.Millisecond,
	},
	Deliberate: {
		MaxTokens:        1200,
		TargetLatency:    2000 * time.Millisecond,
		MaxContextTokens: 600,
		RunsParallel:     false,
		Model:            Large,
		Timeout:          3000 * time.Millisecond,
	},
	Analytical: {
		MaxTokens:        2500,
		TargetLatency:    5000 * time.Millisecond,
		MaxContextTokens: 1000,
		RunsParallel:     false,
		Model:            Large,
		Timeout:          7000 * time.Millisecond,
	},
	Comprehensive: {
		MaxTokens:        4000,
		TargetLatency:    10000 * time.Millisecond,
		MaxContextTokens: 1500,
		RunsParallel:     false,
		Model:            Large,
		Timeout:          12000 * time.Millisecond,
	},
}

// Get returns the fixed configuration for t. Unknown tiers return the Reflex
// configuration so callers never dispatch above what they asked for.
func Get(t CognitiveTier) Config {
	if !t.Valid() {
		return catalog[Reflex]
	}
	return catalog[t]
}
