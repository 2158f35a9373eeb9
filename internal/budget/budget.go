// Package budget tracks hourly inference spend per model tier and advises
// the router when a tier should be throttled or downgraded.
package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/tier"
)

// windowLength is the accounting window. Counters reset once the window is
// older than this on any call.
const windowLength = time.Hour

// Config defines the hourly budget and per-tier pricing.
type Config struct {
	// HourlyBudgetUSD is the total spend allowed per window. Each model
	// tier draws from its fixed allocation share of this amount.
	HourlyBudgetUSD float64 `yaml:"hourly_budget_usd" json:"hourly_budget_usd"`

	// CostPer1k is the dollar cost per 1k tokens for each model tier.
	CostPer1k map[tier.ModelTier]float64 `yaml:"cost_per_1k" json:"cost_per_1k"`

	// ThrottleThresholds are the utilization fractions above which a tier
	// is considered throttled.
	ThrottleThresholds map[tier.ModelTier]float64 `yaml:"throttle_thresholds" json:"throttle_thresholds"`
}

// DefaultConfig returns the standard pricing and thresholds.
func DefaultConfig() Config {
	return Config{
		HourlyBudgetUSD: 15.0,
		CostPer1k: map[tier.ModelTier]float64{
			tier.Small:  0.0002,
			tier.Medium: 0.0012,
			tier.Large:  0.0049,
		},
		ThrottleThresholds: map[tier.ModelTier]float64{
			tier.Small:  0.95,
			tier.Medium: 0.85,
			tier.Large:  0.75,
		},
	}
}

// State is the consumption recorded in the current window.
type State struct {
	HourStart     time.Time                `json:"hour_start"`
	TokensByTier  map[tier.ModelTier]int64 `json:"tokens_by_tier"`
	TokensByAgent map[string]int64         `json:"tokens_by_agent"`
}

// TierStatus reports one model tier's position in the current window.
type TierStatus struct {
	Tokens      int64   `json:"tokens"`
	CostUSD     float64 `json:"cost_usd"`
	Utilization float64 `json:"utilization"`
	Throttled   bool    `json:"throttled"`
}

// Status is a snapshot of the whole window for observability.
type Status struct {
	HourStart     time.Time                     `json:"hour_start"`
	HourlyBudget  float64                       `json:"hourly_budget_usd"`
	TotalCostUSD  float64                       `json:"total_cost_usd"`
	Tiers         map[tier.ModelTier]TierStatus `json:"tiers"`
	TokensByAgent map[string]int64              `json:"tokens_by_agent"`
}

// AlertLevel indicates the severity of a budget alert.
type AlertLevel int

const (
	// AlertThrottle fires when a tier's utilization crosses its throttle
	// threshold.
	AlertThrottle AlertLevel = iota

	// AlertExceeded fires when a tier's allocation is fully consumed.
	AlertExceeded
)

// String returns the uppercase name of the alert level.
func (l AlertLevel) String() string {
	switch l {
	case AlertThrottle:
		return "THROTTLE"
	case AlertExceeded:
		return "EXCEEDED"
	default:
		return "UNKNOWN"
	}
}

// Alert describes one threshold crossing.
type Alert struct {
	Level       AlertLevel     `json:"level"`
	Tier        tier.ModelTier `json:"tier"`
	Utilization float64        `json:"utilization"`
	Message     string         `json:"message"`
}

// AlertHandler is called when a budget threshold is crossed.
type AlertHandler func(alert Alert)

// Manager tracks spend in one-hour windows and answers throttle and
// downgrade questions. One mutex guards all state; every operation resets
// the window first when it has expired, so a record straddling the boundary
// lands in the new window only.
type Manager struct {
	mu            sync.Mutex
	config        Config
	state         State
	alertHandlers []AlertHandler

	// now is injectable for window tests.
	now func() time.Time

	log zerolog.Logger
}

// NewManager creates a budget manager with a fresh window.
func NewManager(config Config) *Manager {
	if config.HourlyBudgetUSD <= 0 {
		config.HourlyBudgetUSD = DefaultConfig().HourlyBudgetUSD
	}
	if config.CostPer1k == nil {
		config.CostPer1k = DefaultConfig().CostPer1k
	}
	if config.ThrottleThresholds == nil {
		config.ThrottleThresholds = DefaultConfig().ThrottleThresholds
	}
	m := &Manager{
		config: config,
		now:    time.Now,
		log:    logging.Component("budget"),
	}
	m.state = freshState(m.now())
	return m
}

// OnAlert registers a callback for threshold crossings. Handlers run on
// their own goroutines.
func (m *Manager) OnAlert(handler AlertHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertHandlers = append(m.alertHandlers, handler)
}

// RecordUsage adds tokens to the current window for the given model tier
// and agent. Recording never fails.
func (m *Manager) RecordUsage(t tier.ModelTier, tokens int, agentID string) {
	if tokens <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetWindow()

	before := m.utilization(t)
	m.state.TokensByTier[t] += int64(tokens)
	if agentID != "" {
		m.state.TokensByAgent[agentID] += int64(tokens)
	}
	after := m.utilization(t)

	m.checkAlerts(t, before, after)
}

// ShouldThrottle reports whether the tier's utilization is strictly above
// its throttle threshold.
func (m *Manager) ShouldThrottle(t tier.ModelTier) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetWindow()
	return m.utilization(t) > m.threshold(t)
}

// RecommendDowngrade returns the next model tier down when the given tier
// should be relieved and the lower tier still has headroom. It returns
// false when the tier is already Small or the lower tier is throttled too.
func (m *Manager) RecommendDowngrade(t tier.ModelTier) (tier.ModelTier, bool) {
	lower, ok := t.Lower()
	if !ok {
		return t, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetWindow()
	if m.utilization(lower) > m.threshold(lower) {
		return t, false
	}
	return lower, true
}

// TierTokens returns the tokens recorded for a tier in the current window.
func (m *Manager) TierTokens(t tier.ModelTier) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetWindow()
	return m.state.TokensByTier[t]
}

// Utilization returns the tier's current fraction of its allocation.
func (m *Manager) Utilization(t tier.ModelTier) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetWindow()
	return m.utilization(t)
}

// Status returns a deep-copied snapshot of the current window.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetWindow()

	status := Status{
		HourStart:     m.state.HourStart,
		HourlyBudget:  m.config.HourlyBudgetUSD,
		Tiers:         make(map[tier.ModelTier]TierStatus, 3),
		TokensByAgent: make(map[string]int64, len(m.state.TokensByAgent)),
	}
	for _, t := range tier.ModelTiers() {
		u := m.utilization(t)
		ts := TierStatus{
			Tokens:      m.state.TokensByTier[t],
			CostUSD:     m.cost(t),
			Utilization: u,
			Throttled:   u > m.threshold(t),
		}
		status.Tiers[t] = ts
		status.TotalCostUSD += ts.CostUSD
	}
	for agent, tokens := range m.state.TokensByAgent {
		status.TokensByAgent[agent] = tokens
	}
	return status
}

// Reset forces a fresh window immediately.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = freshState(m.now())
	m.log.Info().Msg("budget window reset")
}

// ─────────────────────────────────────────────────────────────────────────────
// INTERNAL
// ─────────────────────────────────────────────────────────────────────────────

// maybeResetWindow clears counters when the window has expired. Caller
// holds m.mu.
func (m *Manager) maybeResetWindow() {
	now := m.now()
	if now.Sub(m.state.HourStart) > windowLength {
		m.state = freshState(now)
		m.log.Debug().Time("hour_start", now).Msg("budget window rolled over")
	}
}

// utilization computes cost(t) / (budget * share). Caller holds m.mu.
func (m *Manager) utilization(t tier.ModelTier) float64 {
	allocation := m.config.HourlyBudgetUSD * t.AllocationShare()
	if allocation <= 0 {
		return 0
	}
	return m.cost(t) / allocation
}

// cost computes the window spend for a tier. Caller holds m.mu.
func (m *Manager) cost(t tier.ModelTier) float64 {
	return float64(m.state.TokensByTier[t]) * m.config.CostPer1k[t] / 1000.0
}

func (m *Manager) threshold(t tier.ModelTier) float64 {
	return m.config.ThrottleThresholds[t]
}

// checkAlerts fires handlers when utilization crosses the throttle
// threshold or the full allocation. Caller holds m.mu.
func (m *Manager) checkAlerts(t tier.ModelTier, before, after float64) {
	if len(m.alertHandlers) == 0 {
		return
	}

	var alert Alert
	switch {
	case before < 1.0 && after >= 1.0:
		alert = Alert{
			Level:       AlertExceeded,
			Tier:        t,
			Utilization: after,
			Message:     fmt.Sprintf("%s allocation exhausted (%.0f%% used)", t, after*100),
		}
	case before <= m.threshold(t) && after > m.threshold(t):
		alert = Alert{
			Level:       AlertThrottle,
			Tier:        t,
			Utilization: after,
			Message:     fmt.Sprintf("%s past throttle threshold (%.0f%% used)", t, after*100),
		}
	default:
		return
	}

	m.log.Warn().Str("tier", t.String()).Float64("utilization", after).Msg(alert.Message)
	for _, handler := range m.alertHandlers {
		go handler(alert)
	}
}

func freshState(now time.Time) State {
	return State{
		HourStart:     now,
		TokensByTier:  make(map[tier.ModelTier]int64, 3),
		TokensByAgent: make(map[string]int64),
	}
}
