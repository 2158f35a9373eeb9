// Package cognitive plans and executes tiered thinking. A stimulus is
// mapped to an ordered strategy of tier runs; each run routes one inference
// call, and responses come back as scored thoughts with a primary pick.
//
// Inference failures are contained: a failed run is logged and skipped, and
// an all-failed strategy yields an empty result rather than an error. Only
// invalid input is fatal to a request.
package cognitive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/inference"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/prompt"
	"github.com/normanking/cogito/internal/router"
	"github.com/normanking/cogito/internal/tier"
)

// ErrValidation is returned for invalid Process inputs: empty stimulus or
// parameters outside [0,1].
var ErrValidation = errors.New("cognitive: invalid input")

// defaultTemperature is used for every tier run; variation comes from the
// tier's prompt depth, not sampling.
const defaultTemperature = 0.7

// Result is the outcome of processing one stimulus. It is handed to the
// caller and not retained.
type Result struct {
	Thoughts         []mind.Thought       `json:"thoughts"`
	PrimaryThought   *mind.Thought        `json:"primary_thought,omitempty"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
	TiersUsed        []tier.CognitiveTier `json:"tiers_used"`
	AgentID          string               `json:"agent_id"`
	StimulusID       string               `json:"stimulus_id"`
}

// Option configures a Processor.
type Option func(*Processor)

// WithBus publishes processing events to the given bus.
func WithBus(b *bus.Bus) Option {
	return func(p *Processor) { p.bus = b }
}

// Processor turns stimuli into thoughts for one agent.
type Processor struct {
	profile *agent.Profile
	router  *router.Router
	builder *prompt.Builder
	bus     *bus.Bus
	log     zerolog.Logger
}

// NewProcessor creates a processor for one agent profile.
func NewProcessor(profile *agent.Profile, rt *router.Router, builder *prompt.Builder, opts ...Option) *Processor {
	p := &Processor{
		profile: profile,
		router:  rt,
		builder: builder,
		log:     logging.Component("cognitive").With().Str("agent_id", profile.AgentID).Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process plans a strategy for the stimulus and executes it. Sequential
// steps see the thoughts of earlier steps; parallel runs within a step are
// awaited together and appended in completion order.
func (p *Processor) Process(ctx context.Context, stimulus string, urgency, complexity, relevance float64, purpose string, pctx prompt.Context) (*Result, error) {
	if err := validate(stimulus, urgency, complexity, relevance); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &Result{
		AgentID:    p.profile.AgentID,
		StimulusID: uuid.NewString(),
	}

	strategy := planStrategy(urgency, complexity, relevance)
	p.log.Debug().
		Str("stimulus_id", result.StimulusID).
		Str("plan", strategy.Reason).
		Int("steps", len(strategy.Steps)).
		Str("purpose", purpose).
		Msg("strategy planned")
	p.publishProcess(bus.EventProcessStarted, result, strategy.Reason, 0)

	usedTiers := make(map[tier.CognitiveTier]bool)
	for _, step := range strategy.Steps {
		thoughts := p.executeStep(ctx, step, stimulus, pctx, result.Thoughts)
		for _, t := range thoughts {
			result.Thoughts = append(result.Thoughts, t)
			if !usedTiers[t.Tier] {
				usedTiers[t.Tier] = true
				result.TiersUsed = append(result.TiersUsed, t.Tier)
			}
		}
	}

	if i := pickPrimary(result.Thoughts); i >= 0 {
		primary := result.Thoughts[i]
		result.PrimaryThought = &primary
	}
	result.ProcessingTimeMs = time.Since(started).Milliseconds()

	p.log.Info().
		Str("stimulus_id", result.StimulusID).
		Int("thoughts", len(result.Thoughts)).
		Int64("duration_ms", result.ProcessingTimeMs).
		Msg("processing complete")
	p.publishProcess(bus.EventProcessCompleted, result, strategy.Reason, result.ProcessingTimeMs)
	return result, nil
}

// ProcessWithTier bypasses planning and runs exactly one tier.
func (p *Processor) ProcessWithTier(ctx context.Context, stimulus string, t tier.CognitiveTier, purpose string, pctx prompt.Context) (*mind.Thought, error) {
	if stimulus == "" {
		return nil, fmt.Errorf("%w: empty stimulus", ErrValidation)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %d", ErrValidation, t)
	}
	thought, err := p.runTier(ctx, t, purpose, stimulus, pctx)
	if err != nil {
		return nil, err
	}
	return &thought, nil
}

// Profile returns the agent profile the processor thinks as.
func (p *Processor) Profile() *agent.Profile {
	return p.profile
}

// ─────────────────────────────────────────────────────────────────────────────
// EXECUTION
// ─────────────────────────────────────────────────────────────────────────────

// executeStep runs every purpose of one step, concurrently when the step is
// parallel. Failed runs are logged and skipped.
func (p *Processor) executeStep(ctx context.Context, step Step, stimulus string, pctx prompt.Context, prior []mind.Thought) []mind.Thought {
	stepCtx := pctx
	stepCtx.PriorThoughts = lastThoughts(prior, 3)

	if !step.Parallel || len(step.Purposes) == 1 {
		var out []mind.Thought
		for _, purpose := range step.Purposes {
			thought, err := p.runTier(ctx, step.Tier, purpose, stimulus, stepCtx)
			if err != nil {
				p.logRunFailure(step.Tier, purpose, err)
				continue
			}
			out = append(out, thought)
			// Later runs of a sequential step see this one's output.
			stepCtx.PriorThoughts = lastThoughts(append(prior, out...), 3)
		}
		return out
	}

	results := make(chan mind.Thought, len(step.Purposes))
	var wg sync.WaitGroup
	for _, purpose := range step.Purposes {
		wg.Add(1)
		go func(purpose string) {
			defer wg.Done()
			thought, err := p.runTier(ctx, step.Tier, purpose, stimulus, stepCtx)
			if err != nil {
				p.logRunFailure(step.Tier, purpose, err)
				return
			}
			results <- thought
		}(purpose)
	}
	wg.Wait()
	close(results)

	out := make([]mind.Thought, 0, len(step.Purposes))
	for thought := range results {
		out = append(out, thought)
	}
	return out
}

// runTier performs one prompt-route-score cycle.
func (p *Processor) runTier(ctx context.Context, t tier.CognitiveTier, purpose, stimulus string, pctx prompt.Context) (mind.Thought, error) {
	req := &inference.Request{
		Prompt:      p.builder.Build(ctx, t, stimulus, pctx),
		MaxTokens:   tier.Get(t).MaxTokens,
		Temperature: defaultTemperature,
	}

	resp, err := p.router.Route(ctx, t, req, p.profile.AgentID)
	if err != nil {
		return mind.Thought{}, err
	}

	thought := buildThought(t, purpose, resp)
	p.log.Debug().
		Str("tier", t.String()).
		Str("purpose", purpose).
		Str("type", string(thought.Type)).
		Float64("confidence", thought.Confidence).
		Msg("thought formed")

	if p.bus != nil {
		ev := bus.NewEvent(bus.EventThoughtCreated)
		ev.AgentID = p.profile.AgentID
		ev.Tier = t.String()
		ev.ThoughtID = thought.ID
		ev.Reason = purpose
		ev.Confidence = thought.Confidence
		ev.Content = thought.Content
		_ = p.bus.Publish(ev)
	}
	return thought, nil
}

func (p *Processor) logRunFailure(t tier.CognitiveTier, purpose string, err error) {
	p.log.Warn().
		Err(err).
		Str("tier", t.String()).
		Str("purpose", purpose).
		Msg("tier run failed, continuing without it")
}

func (p *Processor) publishProcess(eventType bus.EventType, result *Result, reason string, durationMs int64) {
	if p.bus == nil {
		return
	}
	ev := bus.NewEvent(eventType)
	ev.AgentID = result.AgentID
	ev.Reason = reason
	ev.Count = len(result.Thoughts)
	ev.DurationMs = durationMs
	_ = p.bus.Publish(ev)
}

func validate(stimulus string, urgency, complexity, relevance float64) error {
	if stimulus == "" {
		return fmt.Errorf("%w: empty stimulus", ErrValidation)
	}
	for name, v := range map[string]float64{
		"urgency": urgency, "complexity": complexity, "relevance": relevance,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %.2f outside [0,1]", ErrValidation, name, v)
		}
	}
	return nil
}

func lastThoughts(thoughts []mind.Thought, n int) []mind.Thought {
	if len(thoughts) <= n {
		return append([]mind.Thought(nil), thoughts...)
	}
	return append([]mind.Thought(nil), thoughts[len(thoughts)-n:]...)
}
