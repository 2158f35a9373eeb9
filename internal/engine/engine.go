// Package engine assembles the full cognitive stack for one agent: budget
// manager, model router, prompt builder, tiered processor, thought
// workspace, accumulator, background loop, and social intelligence, all
// wired to a shared event bus. The CLI and the monitor talk to this facade
// rather than to the parts.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/accumulator"
	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/background"
	"github.com/normanking/cogito/internal/budget"
	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/cognitive"
	"github.com/normanking/cogito/internal/inference"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/prompt"
	"github.com/normanking/cogito/internal/router"
	"github.com/normanking/cogito/internal/social"
	"github.com/normanking/cogito/internal/tier"
)

// Config tunes one engine instance.
type Config struct {
	Budget     budget.Config
	Mock       inference.MockConfig
	Background background.Config

	// MaxWorkingTurns caps the recent conversation turns prompts carry.
	// Zero keeps the prompt package default.
	MaxWorkingTurns int
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	clients map[tier.ModelTier]inference.ModelClient
	memory  prompt.MemoryContextProvider
	bus     *bus.Bus
}

// WithClients supplies real inference clients instead of the built-in
// mocks. Every model tier needs one.
func WithClients(clients map[tier.ModelTier]inference.ModelClient) Option {
	return func(o *options) { o.clients = clients }
}

// WithMemory wires a memory provider into prompt building.
func WithMemory(provider prompt.MemoryContextProvider) Option {
	return func(o *options) { o.memory = provider }
}

// WithBus attaches an externally owned event bus. Without it the engine
// creates and owns one.
func WithBus(b *bus.Bus) Option {
	return func(o *options) { o.bus = b }
}

// Outcome is the combined result of handling one stimulus.
type Outcome struct {
	// Result is the cognitive processing result, including all thoughts.
	Result *cognitive.Result `json:"result"`

	// Stream is the thought stream the primary thought joined, if any.
	Stream *mind.ThoughtStream `json:"stream,omitempty"`

	// Decision is the externalization verdict, present when a social
	// context was supplied.
	Decision *social.Decision `json:"decision,omitempty"`
}

// Status aggregates the observable state of one engine.
type Status struct {
	AgentID           string            `json:"agent_id"`
	AgentName         string            `json:"agent_name"`
	Budget            budget.Status     `json:"budget"`
	Router            router.Status     `json:"router"`
	Mind              mind.Counters     `json:"mind"`
	BackgroundRunning bool              `json:"background_running"`
	BackgroundTasks   []background.Task `json:"background_tasks,omitempty"`
}

// Engine is the assembled cognitive stack for one agent.
type Engine struct {
	profile *agent.Profile
	bus     *bus.Bus
	ownsBus bool

	budget     *budget.Manager
	router     *router.Router
	builder    *prompt.Builder
	processor  *cognitive.Processor
	mind       *mind.Mind
	acc        *accumulator.Accumulator
	background *background.Processor
	social     *social.Intelligence

	log zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New assembles an engine for the given profile. Without WithClients the
// router runs on simulated backends configured by cfg.Mock.
func New(profile *agent.Profile, cfg Config, opts ...Option) (*Engine, error) {
	if profile == nil {
		return nil, fmt.Errorf("engine: profile is required")
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid profile: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	eventBus := o.bus
	ownsBus := false
	if eventBus == nil {
		eventBus = bus.New()
		ownsBus = true
	}

	clients := o.clients
	if clients == nil {
		clients = inference.NewMockSet(cfg.Mock)
	}

	budgetMgr := budget.NewManager(cfg.Budget)
	budgetMgr.OnAlert(func(alert budget.Alert) {
		ev := bus.NewEvent(bus.EventBudgetAlert)
		ev.AgentID = profile.AgentID
		ev.ModelTier = alert.Tier.String()
		ev.Reason = strings.ToLower(alert.Level.String())
		ev.Utilization = alert.Utilization
		ev.Content = alert.Message
		_ = eventBus.Publish(ev)
	})
	rt, err := router.New(budgetMgr, clients, router.WithBus(eventBus))
	if err != nil {
		if ownsBus {
			eventBus.Close()
		}
		return nil, err
	}

	builderOpts := []prompt.Option{}
	if o.memory != nil {
		builderOpts = append(builderOpts, prompt.WithMemory(o.memory))
	}
	if cfg.MaxWorkingTurns > 0 {
		builderOpts = append(builderOpts, prompt.WithMaxWorkingTurns(cfg.MaxWorkingTurns))
	}
	builder := prompt.NewBuilder(profile, builderOpts...)

	processor := cognitive.NewProcessor(profile, rt, builder, cognitive.WithBus(eventBus))
	workspace := mind.New(profile.AgentID, mind.WithBus(eventBus))
	acc := accumulator.New(processor, workspace, accumulator.WithBus(eventBus))

	e := &Engine{
		profile:    profile,
		bus:        eventBus,
		ownsBus:    ownsBus,
		budget:     budgetMgr,
		router:     rt,
		builder:    builder,
		processor:  processor,
		mind:       workspace,
		acc:        acc,
		background: background.New(cfg.Background, acc, processor, workspace, background.WithBus(eventBus)),
		social:     social.New(profile, workspace, social.WithBus(eventBus)),
		log:        logging.Component("engine").With().Str("agent_id", profile.AgentID).Logger(),
	}
	return e, nil
}

// Start launches the background cognition loop.
func (e *Engine) Start() error {
	return e.background.Start()
}

// Stop halts the background loop. The engine stays usable for foreground
// processing.
func (e *Engine) Stop() {
	e.background.Stop()
}

// Close stops the loop, closes the router's clients, and closes the bus if
// the engine owns it. Closing twice is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.background.Stop()
	err := e.router.Close()
	if e.ownsBus {
		if busErr := e.bus.Close(); err == nil {
			err = busErr
		}
	}
	return err
}

// HandleStimulus runs the full pipeline for one stimulus: tiered
// processing, filing the primary thought into the workspace, and, when a
// social context is supplied, the externalization decision.
func (e *Engine) HandleStimulus(ctx context.Context, stimulus string, urgency, complexity, relevance float64, sctx *social.Context) (*Outcome, error) {
	result, err := e.processor.Process(ctx, stimulus, urgency, complexity, relevance, "stimulus", prompt.Context{})
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Result: result}
	if result.PrimaryThought != nil {
		outcome.Stream = e.mind.AddThought(*result.PrimaryThought)
	}
	if sctx != nil {
		decision := e.social.ShouldISpeak(social.Stimulus{
			Content: stimulus,
			Topic:   mind.ExtractTopic(stimulus),
		}, sctx)
		outcome.Decision = &decision
	}
	return outcome, nil
}

// Observe files a low-urgency observation into the workspace without a
// social decision.
func (e *Engine) Observe(ctx context.Context, stimulus string, relevance float64) (*mind.Thought, error) {
	return e.acc.ProcessObservation(ctx, stimulus, relevance, prompt.Context{})
}

// Decide runs only the externalization pipeline against the current
// workspace.
func (e *Engine) Decide(stimulus social.Stimulus, sctx *social.Context) social.Decision {
	return e.social.ShouldISpeak(stimulus, sctx)
}

// Status aggregates budget, router, and workspace state.
func (e *Engine) Status() Status {
	return Status{
		AgentID:           e.profile.AgentID,
		AgentName:         e.profile.Name,
		Budget:            e.budget.Status(),
		Router:            e.router.Status(),
		Mind:              e.mind.Counters(),
		BackgroundRunning: e.background.Running(),
		BackgroundTasks:   e.background.Tasks(),
	}
}

// Profile returns the agent profile the engine was built with.
func (e *Engine) Profile() *agent.Profile { return e.profile }

// Bus returns the engine's event bus for observers.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// Mind exposes the thought workspace.
func (e *Engine) Mind() *mind.Mind { return e.mind }

// Router exposes the model router.
func (e *Engine) Router() *router.Router { return e.router }

// Budget exposes the budget manager.
func (e *Engine) Budget() *budget.Manager { return e.budget }

// Background exposes the background processor for task queueing.
func (e *Engine) Background() *background.Processor { return e.background }
