package inference

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/normanking/cogito/internal/tier"
)

// ErrClientClosed is returned by Generate after Close.
var ErrClientClosed = errors.New("inference: client closed")

// ErrSimulatedFailure is the error injected by a MockClient's failure rate.
var ErrSimulatedFailure = errors.New("inference: simulated backend failure")

// maxMockHistory bounds the retained call records so long-running demos do
// not grow without limit.
const maxMockHistory = 256

// tokensPerWord approximates backend tokenization for simulated responses.
const tokensPerWord = 1.3

// MockConfig configures a simulated inference backend.
type MockConfig struct {
	// Tier is the model class this client simulates.
	Tier tier.ModelTier

	// ModelName is reported in responses. Defaults to "mock-<tier>".
	ModelName string

	// BaseLatencyMin/Max bound the simulated latency before the tier
	// multiplier is applied (small x1, medium x2, large x4). Both zero
	// means no artificial latency.
	BaseLatencyMin time.Duration
	BaseLatencyMax time.Duration

	// FailureRate is the probability in [0,1] that a call fails.
	FailureRate float64

	// Seed fixes the random source for reproducible runs. Zero seeds from
	// the clock.
	Seed int64
}

// CallRecord captures one Generate invocation for later inspection.
type CallRecord struct {
	At        time.Time
	Prompt    string
	MaxTokens int
	LatencyMs int64
	Failed    bool
}

// MockClient simulates an inference backend: latency scaled by model tier,
// canned responses sized to the tier, optional injected failures, and a call
// history for assertions.
type MockClient struct {
	cfg MockConfig

	mu      sync.Mutex
	rng     *rand.Rand
	history []CallRecord
	healthy bool
	closed  bool
}

// NewMockClient builds a MockClient with defaults applied.
func NewMockClient(cfg MockConfig) *MockClient {
	if cfg.ModelName == "" {
		cfg.ModelName = "mock-" + cfg.Tier.String()
	}
	if cfg.BaseLatencyMax < cfg.BaseLatencyMin {
		cfg.BaseLatencyMax = cfg.BaseLatencyMin
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockClient{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		healthy: true,
	}
}

// NewMockSet builds one mock per model tier from a shared base config. Tier
// and model name are derived per entry.
func NewMockSet(base MockConfig) map[tier.ModelTier]ModelClient {
	clients := make(map[tier.ModelTier]ModelClient, 3)
	for _, m := range tier.ModelTiers() {
		cfg := base
		cfg.Tier = m
		cfg.ModelName = ""
		if base.Seed != 0 {
			cfg.Seed = base.Seed + int64(m)
		}
		clients[m] = NewMockClient(cfg)
	}
	return clients
}

// Generate simulates one inference call. It honors the context deadline
// while sleeping, so router timeouts behave exactly as with a real backend.
func (m *MockClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClientClosed
	}
	latency := m.nextLatency()
	fail := m.cfg.FailureRate > 0 && m.rng.Float64() < m.cfg.FailureRate
	m.record(CallRecord{
		At:        time.Now(),
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
		LatencyMs: latency.Milliseconds(),
		Failed:    fail,
	})
	m.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fail {
		return nil, fmt.Errorf("%s: %w", m.cfg.ModelName, ErrSimulatedFailure)
	}

	text := m.responseText()
	completion := estimateTokens(text)
	promptTokens := estimateTokens(req.Prompt)
	return &Response{
		Text:             text,
		ModelUsed:        m.cfg.ModelName,
		PromptTokens:     promptTokens,
		CompletionTokens: completion,
		TotalTokens:      promptTokens + completion,
		LatencyMs:        latency.Milliseconds(),
		TierUsed:         m.cfg.Tier,
	}, nil
}

// HealthCheck reports the simulated health state.
func (m *MockClient) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy && !m.closed
}

// SetHealthy overrides the simulated health state.
func (m *MockClient) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

// Close marks the client closed. Further Generate calls fail.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// History returns a copy of the recorded calls, oldest first.
func (m *MockClient) History() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.history))
	copy(out, m.history)
	return out
}

// CallCount returns how many Generate calls were recorded.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

func (m *MockClient) record(rec CallRecord) {
	m.history = append(m.history, rec)
	if len(m.history) > maxMockHistory {
		m.history = m.history[len(m.history)-maxMockHistory:]
	}
}

// nextLatency draws from the base range and applies the tier multiplier.
// Caller holds m.mu.
func (m *MockClient) nextLatency() time.Duration {
	base := m.cfg.BaseLatencyMin
	if span := m.cfg.BaseLatencyMax - m.cfg.BaseLatencyMin; span > 0 {
		base += time.Duration(m.rng.Int63n(int64(span) + 1))
	}
	switch m.cfg.Tier {
	case tier.Medium:
		return base * 2
	case tier.Large:
		return base * 4
	default:
		return base
	}
}

func (m *MockClient) responseText() string {
	switch m.cfg.Tier {
	case tier.Large:
		return "Looking at the whole picture, several threads matter here. The immediate " +
			"situation connects to patterns that have come up before, and the underlying " +
			"cause deserves as much attention as the symptom. Weighing the tradeoffs, the " +
			"strongest path is the one that addresses the root issue while keeping options " +
			"open. There are second-order effects on the people involved, and it is worth " +
			"closing the loop with them once the dust settles."
	case tier.Medium:
		return "Taking a moment to assess: the core issue is identifiable and bounded. " +
			"There is a workable path forward, and the key detail is making sure the " +
			"first move does not shut other doors."
	default:
		return "Immediate read: the situation is actionable and the central point stands out."
	}
}

// estimateTokens approximates a tokenizer at ~1.3 tokens per word.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * tokensPerWord)
}
