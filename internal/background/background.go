// Package background runs one agent's idle-time cognition: a periodic loop
// that synthesizes ready streams and prunes old thoughts, plus ad-hoc
// queued tasks for deep analysis and targeted synthesis.
//
// The loop is resilient: a panic or error in one pass is logged, followed
// by a backoff, and the loop carries on. Stop cancels cooperatively and
// waits for everything in flight.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/accumulator"
	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/cognitive"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/prompt"
	"github.com/normanking/cogito/internal/tier"
)

// errorBackoff is how long the loop rests after a pass fails.
const errorBackoff = 5 * time.Second

// Config tunes the background loop.
type Config struct {
	// SynthesisCheckInterval is the loop cadence.
	SynthesisCheckInterval time.Duration `yaml:"synthesis_check_interval" json:"synthesis_check_interval"`

	// CleanupInterval is how often old thoughts are pruned. It is rounded
	// to a whole number of loop iterations.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`

	// MaxThoughtAge is the retention window for non-externalized thoughts.
	MaxThoughtAge time.Duration `yaml:"max_thought_age" json:"max_thought_age"`
}

// DefaultConfig returns the standard cadence: check every second, clean up
// every minute, retain thoughts for half an hour.
func DefaultConfig() Config {
	return Config{
		SynthesisCheckInterval: time.Second,
		CleanupInterval:        time.Minute,
		MaxThoughtAge:          30 * time.Minute,
	}
}

// TaskKind labels a queued background task.
type TaskKind string

const (
	TaskDeepAnalysis TaskKind = "deep_analysis"
	TaskSynthesis    TaskKind = "synthesis"
)

// Task is one queued unit of background work.
type Task struct {
	ID        string    `json:"id"`
	Kind      TaskKind  `json:"kind"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	Done      bool      `json:"done"`
}

// Callback receives the thought a queued task produced, if any.
type Callback func(*mind.Thought)

// Option configures a Processor.
type Option func(*Processor)

// WithBus publishes background events to the given bus.
func WithBus(b *bus.Bus) Option {
	return func(p *Processor) { p.bus = b }
}

// Processor owns one agent's background loop and task queue.
type Processor struct {
	cfg       Config
	agentID   string
	acc       *accumulator.Accumulator
	cognition *cognitive.Processor
	mind      *mind.Mind
	bus       *bus.Bus
	log       zerolog.Logger

	mu      sync.Mutex
	tasks   []*Task
	running bool
	loopCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a stopped background processor.
func New(cfg Config, acc *accumulator.Accumulator, cognition *cognitive.Processor, m *mind.Mind, opts ...Option) *Processor {
	def := DefaultConfig()
	if cfg.SynthesisCheckInterval <= 0 {
		cfg.SynthesisCheckInterval = def.SynthesisCheckInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxThoughtAge <= 0 {
		cfg.MaxThoughtAge = def.MaxThoughtAge
	}

	agentID := cognition.Profile().AgentID
	p := &Processor{
		cfg:       cfg,
		agentID:   agentID,
		acc:       acc,
		cognition: cognition,
		mind:      m,
		log:       logging.Component("background").With().Str("agent_id", agentID).Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the loop. Starting a running processor is an error.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("background: already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.loopCtx = ctx
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.run(ctx)

	p.log.Info().
		Dur("interval", p.cfg.SynthesisCheckInterval).
		Dur("cleanup", p.cfg.CleanupInterval).
		Msg("background loop started")
	return nil
}

// Stop cancels the loop and queued tasks and waits for them to finish. The
// loop exits within one sleep interval. Stopping a stopped processor is a
// no-op.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.log.Info().Msg("background loop stopped")
}

// Running reports whether the loop is live.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Tasks returns a snapshot of the queued tasks, oldest first.
func (p *Processor) Tasks() []Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Task, len(p.tasks))
	for i, t := range p.tasks {
		out[i] = *t
	}
	return out
}

// QueueDeepAnalysis schedules an analytical-tier run of the stimulus. The
// resulting thought is added to the mind and handed to the callback, which
// may be nil.
func (p *Processor) QueueDeepAnalysis(stimulus, purpose string, callback Callback) *Task {
	task := p.addTask(TaskDeepAnalysis, stimulus)
	p.spawn(task, func(ctx context.Context) {
		thought, err := p.cognition.ProcessWithTier(ctx, stimulus, tier.Analytical, purpose, prompt.Context{})
		if err != nil {
			p.reportError("deep analysis failed", err)
			p.invoke(callback, nil)
			return
		}
		p.mind.AddThought(*thought)
		p.invoke(callback, thought)
	})
	return task
}

// QueueSynthesis schedules synthesis of the stream matching the topic. The
// insight, if one is produced, is handed to the callback.
func (p *Processor) QueueSynthesis(topic string, callback Callback) *Task {
	task := p.addTask(TaskSynthesis, topic)
	p.spawn(task, func(ctx context.Context) {
		stream := p.mind.GetStreamForTopic(topic)
		if stream == nil {
			p.log.Debug().Str("topic", topic).Msg("no stream for queued synthesis")
			p.invoke(callback, nil)
			return
		}
		insight, err := p.acc.SynthesizeStream(ctx, stream.ID)
		if err != nil {
			p.reportError("queued synthesis failed", err)
			p.invoke(callback, nil)
			return
		}
		p.invoke(callback, insight)
	})
	return task
}

// ─────────────────────────────────────────────────────────────────────────────
// LOOP
// ─────────────────────────────────────────────────────────────────────────────

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	cleanupEvery := int(p.cfg.CleanupInterval / p.cfg.SynthesisCheckInterval)
	if cleanupEvery < 1 {
		cleanupEvery = 1
	}

	iteration := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.SynthesisCheckInterval):
		}

		iteration++
		if err := p.pass(ctx, iteration%cleanupEvery == 0); err != nil {
			p.reportError("background pass failed", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
		}
	}
}

// pass is one loop iteration. Panics are converted to errors so the loop
// survives them.
func (p *Processor) pass(ctx context.Context, cleanup bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in background pass: %v", r)
		}
	}()

	if insights := p.acc.CheckStreamsForSynthesis(ctx); len(insights) > 0 {
		p.log.Debug().Int("count", len(insights)).Msg("streams synthesized in background")
	}
	if cleanup {
		p.mind.CleanupOldThoughts(p.cfg.MaxThoughtAge)
	}
	p.pruneTasks()
	return nil
}

// pruneTasks drops completed tasks from the queue.
func (p *Processor) pruneTasks() {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.tasks[:0]
	for _, t := range p.tasks {
		if !t.Done {
			kept = append(kept, t)
		}
	}
	p.tasks = kept
}

func (p *Processor) addTask(kind TaskKind, subject string) *Task {
	task := &Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Subject:   subject,
		CreatedAt: time.Now(),
	}
	p.mu.Lock()
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()
	return task
}

// spawn runs a task body on its own goroutine, marking the task done when
// it returns. While the loop is running the task joins its lifetime: Stop
// cancels the context and waits for it. The wg.Add happens under the same
// mutex that Stop uses to flip running off, so a task can never join the
// wait group after Stop has started waiting. Tasks queued while stopped
// run detached under a background context.
func (p *Processor) spawn(task *Task, body func(context.Context)) {
	p.mu.Lock()
	ctx := context.Background()
	tracked := p.running
	if tracked {
		ctx = p.loopCtx
		p.wg.Add(1)
	}
	p.mu.Unlock()

	go func() {
		if tracked {
			defer p.wg.Done()
		}
		defer func() {
			if r := recover(); r != nil {
				p.reportError("task panicked", fmt.Errorf("%v", r))
			}
			p.mu.Lock()
			task.Done = true
			p.mu.Unlock()
		}()
		body(ctx)
	}()
}

func (p *Processor) invoke(callback Callback, thought *mind.Thought) {
	if callback != nil {
		callback(thought)
	}
}

func (p *Processor) reportError(msg string, err error) {
	p.log.Error().Err(err).Msg(msg)
	if p.bus != nil {
		ev := bus.NewEvent(bus.EventBackgroundError)
		ev.AgentID = p.agentID
		ev.Error = err.Error()
		ev.Reason = msg
		_ = p.bus.Publish(ev)
	}
}
