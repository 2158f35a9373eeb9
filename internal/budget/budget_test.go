package budget

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cogito/internal/tier"
)

func TestRecordUsageAccumulates(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordUsage(tier.Large, 1000, "agent-1")
	m.RecordUsage(tier.Large, 500, "agent-1")
	m.RecordUsage(tier.Small, 200, "agent-2")

	assert.Equal(t, int64(1500), m.TierTokens(tier.Large))
	assert.Equal(t, int64(200), m.TierTokens(tier.Small))
	assert.Equal(t, int64(0), m.TierTokens(tier.Medium))

	status := m.Status()
	assert.Equal(t, int64(1500), status.TokensByAgent["agent-1"])
	assert.Equal(t, int64(200), status.TokensByAgent["agent-2"])
}

func TestRecordUsageIgnoresNonPositive(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.RecordUsage(tier.Large, 0, "agent-1")
	m.RecordUsage(tier.Large, -5, "agent-1")
	assert.Equal(t, int64(0), m.TierTokens(tier.Large))
}

func TestUtilizationMath(t *testing.T) {
	// $1/hour budget; 500k tokens on large costs 0.0049*500 = $2.45 against
	// a $0.50 allocation, utilization 4.9.
	cfg := DefaultConfig()
	cfg.HourlyBudgetUSD = 1.0
	m := NewManager(cfg)

	m.RecordUsage(tier.Large, 500_000, "agent-1")

	assert.InDelta(t, 4.9, m.Utilization(tier.Large), 0.001)
	assert.True(t, m.ShouldThrottle(tier.Large))
}

func TestShouldThrottleStrictlyAbove(t *testing.T) {
	cfg := Config{
		HourlyBudgetUSD:    10.0,
		CostPer1k:          map[tier.ModelTier]float64{tier.Small: 1.0, tier.Medium: 1.0, tier.Large: 1.0},
		ThrottleThresholds: map[tier.ModelTier]float64{tier.Small: 0.5, tier.Medium: 0.5, tier.Large: 0.5},
	}
	m := NewManager(cfg)

	// Allocation for small is 10 * 0.10 = $1.00; 500 tokens at $1/1k is
	// exactly $0.50, utilization exactly 0.5.
	m.RecordUsage(tier.Small, 500, "agent-1")
	assert.False(t, m.ShouldThrottle(tier.Small), "at the threshold is not throttled")

	m.RecordUsage(tier.Small, 1, "agent-1")
	assert.True(t, m.ShouldThrottle(tier.Small), "above the threshold is throttled")
}

func TestRecommendDowngrade(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HourlyBudgetUSD = 1.0
	m := NewManager(cfg)

	// Large over budget, medium untouched.
	m.RecordUsage(tier.Large, 500_000, "agent-1")

	lower, ok := m.RecommendDowngrade(tier.Large)
	require.True(t, ok)
	assert.Equal(t, tier.Medium, lower)

	// Medium also over budget: no recommendation.
	m.RecordUsage(tier.Medium, 500_000, "agent-1")
	_, ok = m.RecommendDowngrade(tier.Large)
	assert.False(t, ok)

	// Small has nothing below it.
	_, ok = m.RecommendDowngrade(tier.Small)
	assert.False(t, ok)
}

func TestWindowResetAfterOneHour(t *testing.T) {
	m := NewManager(DefaultConfig())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	m.state.HourStart = base

	m.RecordUsage(tier.Large, 10_000, "agent-1")
	assert.Equal(t, int64(10_000), m.TierTokens(tier.Large))

	// Still inside the window at +59m.
	m.now = func() time.Time { return base.Add(59 * time.Minute) }
	assert.Equal(t, int64(10_000), m.TierTokens(tier.Large))

	// A recording straddling the boundary lands in the new window only.
	m.now = func() time.Time { return base.Add(61 * time.Minute) }
	m.RecordUsage(tier.Large, 7, "agent-1")
	assert.Equal(t, int64(7), m.TierTokens(tier.Large))

	status := m.Status()
	assert.Equal(t, base.Add(61*time.Minute), status.HourStart)
	assert.Equal(t, int64(7), status.TokensByAgent["agent-1"])
}

func TestResetZeroesEverything(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.RecordUsage(tier.Large, 100_000, "agent-1")
	m.RecordUsage(tier.Small, 50_000, "agent-2")

	m.Reset()

	status := m.Status()
	assert.Zero(t, status.TotalCostUSD)
	assert.Empty(t, status.TokensByAgent)
	for _, ts := range status.Tiers {
		assert.Zero(t, ts.Tokens)
		assert.Zero(t, ts.Utilization)
		assert.False(t, ts.Throttled)
	}
}

func TestConcurrentRecordingSums(t *testing.T) {
	m := NewManager(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordUsage(tier.Medium, 10, "agent-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), m.TierTokens(tier.Medium))
}

func TestUtilizationMonotonicWithinWindow(t *testing.T) {
	m := NewManager(DefaultConfig())
	prev := m.Utilization(tier.Large)
	require.Zero(t, prev)

	for i := 0; i < 10; i++ {
		m.RecordUsage(tier.Large, 1000, "agent-1")
		u := m.Utilization(tier.Large)
		assert.GreaterOrEqual(t, u, prev)
		assert.GreaterOrEqual(t, u, 0.0)
		prev = u
	}
}

func TestAlertFiresOnThresholdCrossing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HourlyBudgetUSD = 1.0
	m := NewManager(cfg)

	alerts := make(chan Alert, 4)
	m.OnAlert(func(a Alert) { alerts <- a })

	// One recording pushes large straight past threshold and allocation.
	m.RecordUsage(tier.Large, 500_000, "agent-1")

	select {
	case a := <-alerts:
		assert.Equal(t, tier.Large, a.Tier)
		assert.Equal(t, AlertExceeded, a.Level)
		assert.Greater(t, a.Utilization, 1.0)
	case <-time.After(time.Second):
		t.Fatal("expected a budget alert")
	}
}

func TestStatusIsACopy(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.RecordUsage(tier.Small, 100, "agent-1")

	status := m.Status()
	status.TokensByAgent["agent-1"] = 999_999

	assert.Equal(t, int64(100), m.Status().TokensByAgent["agent-1"])
}
