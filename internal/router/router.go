// Package router dispatches cognitive-tier inference requests to model-tier
// backends. It consults the budget manager before every call (proactive
// downgrade), tracks per-tier health (reactive fallback), enforces the
// cognitive tier's deadline, and keeps a bounded history of its decisions.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/cogito/internal/budget"
	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/inference"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/tier"
)

// ErrNoModelAvailable is returned when the selected tier timed out and no
// healthy fallback remained.
var ErrNoModelAvailable = errors.New("router: no model available")

// historyCap bounds the routing-decision ring buffer.
const historyCap = 100

// Selection reasons recorded on decisions.
const (
	ReasonPrimary         = "primary"
	ReasonBudgetThrottle  = "budget_throttle"
	ReasonUnhealthy       = "unhealthy"
	ReasonTimeoutFallback = "timeout_fallback"
)

// Decision records one routing choice.
type Decision struct {
	Cognitive     tier.CognitiveTier `json:"cognitive"`
	Target        tier.ModelTier     `json:"target"`
	Actual        tier.ModelTier     `json:"actual"`
	WasDowngraded bool               `json:"was_downgraded"`
	Reason        string             `json:"reason"`
	Timestamp     time.Time          `json:"timestamp"`
}

// Status is an observability snapshot of the router.
type Status struct {
	Health          map[tier.ModelTier]bool `json:"health"`
	LastHealthCheck time.Time               `json:"last_health_check"`
	ActiveRequests  int                     `json:"active_requests"`
	TotalRequests   int64                   `json:"total_requests"`
	Downgrades      int64                   `json:"downgrades"`
	Fallbacks       int64                   `json:"fallbacks"`
	Timeouts        int64                   `json:"timeouts"`
	Errors          int64                   `json:"errors"`
}

// Option configures a Router.
type Option func(*Router)

// WithBus publishes routing events to the given bus.
func WithBus(b *bus.Bus) Option {
	return func(r *Router) { r.bus = b }
}

// Router maps cognitive tiers to model-tier clients for the process
// lifetime. Its own mutex guards health, counters, and history; the budget
// manager locks itself. Two concurrent Route calls may observe different
// snapshots, which is fine: each decision is recorded with what it saw.
type Router struct {
	budget  *budget.Manager
	clients map[tier.ModelTier]inference.ModelClient
	bus     *bus.Bus
	log     zerolog.Logger

	mu              sync.Mutex
	health          map[tier.ModelTier]bool
	lastHealthCheck time.Time
	history         []Decision
	activeRequests  int
	totalRequests   int64
	downgrades      int64
	fallbacks       int64
	timeouts        int64
	errCount        int64
}

// New creates a router over one client per model tier. Every model tier
// must have a client.
func New(budgetMgr *budget.Manager, clients map[tier.ModelTier]inference.ModelClient, opts ...Option) (*Router, error) {
	if budgetMgr == nil {
		return nil, fmt.Errorf("router: budget manager is required")
	}
	for _, m := range tier.ModelTiers() {
		if clients[m] == nil {
			return nil, fmt.Errorf("router: missing client for tier %s", m)
		}
	}

	r := &Router{
		budget:  budgetMgr,
		clients: clients,
		log:     logging.Component("router"),
		health: map[tier.ModelTier]bool{
			tier.Small:  true,
			tier.Medium: true,
			tier.Large:  true,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Route selects a model tier for the cognitive tier, invokes it under the
// tier's deadline, and records usage on success.
//
// Selection order: budget downgrade first, then health fallback, then the
// mapped target. On timeout exactly one further fallback step is attempted;
// budget downgrade and timeout fallback therefore move at most two tiers
// down per request.
func (r *Router) Route(ctx context.Context, cognitive tier.CognitiveTier, req *inference.Request, agentID string) (*inference.Response, error) {
	cfg := tier.Get(cognitive)
	target := cfg.Model

	actual := target
	reason := ReasonPrimary
	downgraded := false

	if lower, ok := r.budgetDowngrade(target); ok {
		actual = lower
		reason = ReasonBudgetThrottle
		downgraded = true
	} else if !r.healthy(target) {
		if fb, ok := r.firstHealthyBelow(target); ok {
			actual = fb
			reason = ReasonUnhealthy
			downgraded = true
		}
	}

	// Each request is capped independently; the caller's request and the
	// client's own limits are never mutated.
	capped := *req
	if capped.MaxTokens <= 0 || capped.MaxTokens > cfg.MaxTokens {
		capped.MaxTokens = cfg.MaxTokens
	}

	r.recordDecision(Decision{
		Cognitive:     cognitive,
		Target:        target,
		Actual:        actual,
		WasDowngraded: downgraded,
		Reason:        reason,
		Timestamp:     time.Now(),
	})
	if downgraded {
		r.log.Warn().
			Str("cognitive", cognitive.String()).
			Str("target", target.String()).
			Str("actual", actual.String()).
			Str("reason", reason).
			Msg("routing below target tier")
		if reason == ReasonBudgetThrottle {
			r.addDowngrade()
		}
	}

	resp, err := r.invoke(ctx, cfg, actual, &capped, agentID)
	if err == nil {
		r.publishDecision(cognitive, target, actual, reason, agentID, resp)
		return resp, nil
	}

	// Parent cancellation is the caller's deadline, not the tier's; it
	// never triggers a fallback.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return r.timeoutFallback(ctx, cognitive, cfg, target, actual, &capped, agentID)
	}

	// Non-timeout failure: the tier is unhealthy until a health check says
	// otherwise.
	r.markUnhealthy(actual, agentID, err)
	return nil, fmt.Errorf("model %s failed: %w", actual, err)
}

// invoke runs one Generate under the cognitive tier's deadline and records
// usage on success.
func (r *Router) invoke(ctx context.Context, cfg tier.Config, m tier.ModelTier, req *inference.Request, agentID string) (*inference.Response, error) {
	r.mu.Lock()
	r.activeRequests++
	r.totalRequests++
	client := r.clients[m]
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.activeRequests--
		r.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	resp, err := client.Generate(callCtx, req)
	if err != nil {
		return nil, err
	}
	r.budget.RecordUsage(m, resp.TotalTokens, agentID)
	return resp, nil
}

// timeoutFallback attempts exactly one step down after a timeout.
func (r *Router) timeoutFallback(ctx context.Context, cognitive tier.CognitiveTier, cfg tier.Config, target, timedOut tier.ModelTier, req *inference.Request, agentID string) (*inference.Response, error) {
	r.mu.Lock()
	r.timeouts++
	r.health[timedOut] = false
	r.mu.Unlock()

	r.log.Warn().
		Str("cognitive", cognitive.String()).
		Str("tier", timedOut.String()).
		Dur("timeout", cfg.Timeout).
		Msg("model timed out")

	fb, ok := r.firstHealthyBelow(timedOut)
	if !ok {
		return nil, fmt.Errorf("tier %s timed out: %w", timedOut, ErrNoModelAvailable)
	}

	r.recordDecision(Decision{
		Cognitive:     cognitive,
		Target:        target,
		Actual:        fb,
		WasDowngraded: true,
		Reason:        ReasonTimeoutFallback,
		Timestamp:     time.Now(),
	})
	r.addFallback()

	resp, err := r.invoke(ctx, cfg, fb, req, agentID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			r.markUnhealthy(fb, agentID, err)
		}
		return nil, fmt.Errorf("fallback %s failed after timeout: %w", fb, ErrNoModelAvailable)
	}

	if r.bus != nil {
		ev := bus.NewEvent(bus.EventRoutingFallback)
		ev.AgentID = agentID
		ev.Tier = cognitive.String()
		ev.ModelTier = fb.String()
		ev.Reason = ReasonTimeoutFallback
		_ = r.bus.Publish(ev)
	}
	return resp, nil
}

// CheckHealth refreshes cached health for every tier concurrently and
// returns the fresh map.
func (r *Router) CheckHealth(ctx context.Context) map[tier.ModelTier]bool {
	results := make(map[tier.ModelTier]bool, 3)
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range tier.ModelTiers() {
		m := m
		g.Go(func() error {
			ok := r.clients[m].HealthCheck(gctx)
			resultsMu.Lock()
			results[m] = ok
			resultsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	for m, ok := range results {
		r.health[m] = ok
	}
	r.lastHealthCheck = time.Now()
	r.mu.Unlock()

	r.log.Debug().
		Bool("small", results[tier.Small]).
		Bool("medium", results[tier.Medium]).
		Bool("large", results[tier.Large]).
		Msg("health refreshed")
	return results
}

// SetTierHealth overrides one tier's cached health.
func (r *Router) SetTierHealth(m tier.ModelTier, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health[m] = healthy
}

// Status returns a snapshot of health and counters.
func (r *Router) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	health := make(map[tier.ModelTier]bool, len(r.health))
	for m, ok := range r.health {
		health[m] = ok
	}
	return Status{
		Health:          health,
		LastHealthCheck: r.lastHealthCheck,
		ActiveRequests:  r.activeRequests,
		TotalRequests:   r.totalRequests,
		Downgrades:      r.downgrades,
		Fallbacks:       r.fallbacks,
		Timeouts:        r.timeouts,
		Errors:          r.errCount,
	}
}

// RoutingHistory returns up to limit recent decisions, oldest first. A
// non-positive limit returns everything retained.
func (r *Router) RoutingHistory(limit int) []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Decision, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}

// Close releases every client.
func (r *Router) Close() error {
	var firstErr error
	for _, m := range tier.ModelTiers() {
		if err := r.clients[m].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ─────────────────────────────────────────────────────────────────────────────
// INTERNAL
// ─────────────────────────────────────────────────────────────────────────────

// budgetDowngrade reports the proactive downgrade for a throttled target,
// when one exists with headroom.
func (r *Router) budgetDowngrade(target tier.ModelTier) (tier.ModelTier, bool) {
	if !r.budget.ShouldThrottle(target) {
		return target, false
	}
	return r.budget.RecommendDowngrade(target)
}

func (r *Router) healthy(m tier.ModelTier) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.health[m]
}

// firstHealthyBelow walks down from m and returns the first healthy tier.
func (r *Router) firstHealthyBelow(m tier.ModelTier) (tier.ModelTier, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cur := m; ; {
		lower, ok := cur.Lower()
		if !ok {
			return m, false
		}
		if r.health[lower] {
			return lower, true
		}
		cur = lower
	}
}

func (r *Router) recordDecision(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, d)
	if len(r.history) > historyCap {
		r.history = r.history[len(r.history)-historyCap:]
	}
}

func (r *Router) markUnhealthy(m tier.ModelTier, agentID string, cause error) {
	r.mu.Lock()
	r.health[m] = false
	r.errCount++
	r.mu.Unlock()

	r.log.Error().Err(cause).Str("tier", m.String()).Msg("marking tier unhealthy")
	if r.bus != nil {
		ev := bus.NewEvent(bus.EventTierUnhealthy)
		ev.AgentID = agentID
		ev.ModelTier = m.String()
		ev.Error = cause.Error()
		_ = r.bus.Publish(ev)
	}
}

func (r *Router) addDowngrade() {
	r.mu.Lock()
	r.downgrades++
	r.mu.Unlock()
}

func (r *Router) addFallback() {
	r.mu.Lock()
	r.fallbacks++
	r.mu.Unlock()
}

func (r *Router) publishDecision(cognitive tier.CognitiveTier, target, actual tier.ModelTier, reason, agentID string, resp *inference.Response) {
	if r.bus == nil {
		return
	}
	ev := bus.NewEvent(bus.EventRoutingDecision)
	ev.AgentID = agentID
	ev.Tier = cognitive.String()
	ev.ModelTier = actual.String()
	ev.Reason = reason
	ev.DurationMs = resp.LatencyMs
	ev.Count = resp.TotalTokens
	if target != actual {
		ev.Content = fmt.Sprintf("target %s served by %s", target, actual)
	}
	_ = r.bus.Publish(ev)
}
