// Package config loads cogito's application configuration. Configuration
// lives in ~/.cogito/config.yaml, can be overridden by COGITO_* environment
// variables, and is created with defaults on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/normanking/cogito/internal/background"
	"github.com/normanking/cogito/internal/budget"
	"github.com/normanking/cogito/internal/inference"
	"github.com/normanking/cogito/internal/tier"
)

// Config holds all application configuration for the cogito engine.
type Config struct {
	Agent      AgentConfig      `mapstructure:"agent" yaml:"agent"`
	Budget     BudgetConfig     `mapstructure:"budget" yaml:"budget"`
	Mind       MindConfig       `mapstructure:"mind" yaml:"mind"`
	Mock       MockConfig       `mapstructure:"mock" yaml:"mock"`
	Background BackgroundConfig `mapstructure:"background" yaml:"background"`
	Memory     MemoryConfig     `mapstructure:"memory" yaml:"memory"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// AgentConfig points at the agent profile the CLI loads by default.
type AgentConfig struct {
	// ProfilePath is the YAML profile file. Empty means the CLI's built-in
	// demo profile.
	ProfilePath string `mapstructure:"profile_path" yaml:"profile_path"`
}

// BudgetConfig tunes the hourly token budget. The per-tier maps are keyed
// by model tier name (small, medium, large); absent keys keep the budget
// package defaults.
type BudgetConfig struct {
	// HourlyBudgetUSD is the total hourly spend ceiling shared by all
	// model tiers.
	HourlyBudgetUSD float64 `mapstructure:"hourly_budget_usd" yaml:"hourly_budget_usd"`

	// CostPer1kTokens is the dollar cost per 1k tokens for each model tier.
	CostPer1kTokens map[string]float64 `mapstructure:"cost_per_1k_tokens" yaml:"cost_per_1k_tokens"`

	// ThrottleThresholds are the utilization fractions above which a tier
	// is throttled.
	ThrottleThresholds map[string]float64 `mapstructure:"throttle_thresholds" yaml:"throttle_thresholds"`
}

// MindConfig tunes the thought workspace and prompt working memory.
type MindConfig struct {
	// MaxWorkingTurns caps how many recent conversation turns prompt
	// building carries as working memory.
	MaxWorkingTurns int `mapstructure:"max_working_turns" yaml:"max_working_turns"`
}

// MockConfig tunes the simulated inference backends.
type MockConfig struct {
	// BaseLatencyMin/Max bound the simulated latency before the per-tier
	// multiplier is applied.
	BaseLatencyMin time.Duration `mapstructure:"base_latency_min" yaml:"base_latency_min"`
	BaseLatencyMax time.Duration `mapstructure:"base_latency_max" yaml:"base_latency_max"`

	// FailureRate is the probability in [0,1] that a simulated call fails.
	FailureRate float64 `mapstructure:"failure_rate" yaml:"failure_rate"`

	// Seed fixes the random source for reproducible runs. Zero seeds from
	// the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// BackgroundConfig tunes the idle-time cognition loop.
type BackgroundConfig struct {
	SynthesisCheckInterval time.Duration `mapstructure:"synthesis_check_interval" yaml:"synthesis_check_interval"`
	CleanupInterval        time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
	MaxThoughtAge          time.Duration `mapstructure:"max_thought_age" yaml:"max_thought_age"`
}

// MemoryConfig tunes the SQLite memory store.
type MemoryConfig struct {
	// Enabled wires the memory store into prompt building.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// DBPath is the SQLite database file. Empty means ~/.cogito/memory.db.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LoggingConfig tunes structured log output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// File redirects log output to a file; empty logs to stderr. The
	// monitor TUI sets this so the dashboard stays clean.
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns the standard configuration.
func Default() *Config {
	bg := background.DefaultConfig()
	bd := budget.DefaultConfig()
	return &Config{
		Budget: BudgetConfig{
			HourlyBudgetUSD:    bd.HourlyBudgetUSD,
			CostPer1kTokens:    toNameMap(bd.CostPer1k),
			ThrottleThresholds: toNameMap(bd.ThrottleThresholds),
		},
		Mind: MindConfig{MaxWorkingTurns: 20},
		Mock: MockConfig{
			BaseLatencyMin: 20 * time.Millisecond,
			BaseLatencyMax: 80 * time.Millisecond,
		},
		Background: BackgroundConfig{
			SynthesisCheckInterval: bg.SynthesisCheckInterval,
			CleanupInterval:        bg.CleanupInterval,
			MaxThoughtAge:          bg.MaxThoughtAge,
		},
		Memory:  MemoryConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// ToBudgetConfig converts to the budget package's configuration; zero
// values and absent map keys fall back to the budget defaults.
func (c BudgetConfig) ToBudgetConfig() budget.Config {
	cfg := budget.DefaultConfig()
	if c.HourlyBudgetUSD > 0 {
		cfg.HourlyBudgetUSD = c.HourlyBudgetUSD
	}
	for _, t := range tier.ModelTiers() {
		if v, ok := c.CostPer1kTokens[t.String()]; ok && v > 0 {
			cfg.CostPer1k[t] = v
		}
		if v, ok := c.ThrottleThresholds[t.String()]; ok && v > 0 {
			cfg.ThrottleThresholds[t] = v
		}
	}
	return cfg
}

// toNameMap converts a tier-keyed map to the string-keyed form the config
// file uses.
func toNameMap(src map[tier.ModelTier]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for t, v := range src {
		out[t.String()] = v
	}
	return out
}

// ToMockConfig converts to the inference package's mock base configuration.
func (c MockConfig) ToMockConfig() inference.MockConfig {
	return inference.MockConfig{
		BaseLatencyMin: c.BaseLatencyMin,
		BaseLatencyMax: c.BaseLatencyMax,
		FailureRate:    c.FailureRate,
		Seed:           c.Seed,
	}
}

// ToBackgroundConfig converts to the background package's configuration.
func (c BackgroundConfig) ToBackgroundConfig() background.Config {
	return background.Config{
		SynthesisCheckInterval: c.SynthesisCheckInterval,
		CleanupInterval:        c.CleanupInterval,
		MaxThoughtAge:          c.MaxThoughtAge,
	}
}

// MemoryPath returns the configured database path, defaulting to
// ~/.cogito/memory.db.
func (c MemoryConfig) MemoryPath() string {
	if c.DBPath != "" {
		return expandPath(c.DBPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "memory.db"
	}
	return filepath.Join(home, ".cogito", "memory.db")
}

// Load reads configuration from ~/.cogito/config.yaml, creating it with
// defaults when missing, and merges environment variable overrides.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(home, ".cogito", "config.yaml"))
}

// LoadFromPath reads configuration from a specific file, creating it with
// defaults when missing.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: COGITO_BUDGET_HOURLY_BUDGET_USD
	v.SetEnvPrefix("COGITO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers defaults so env-only overrides of absent keys work.
func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("budget.hourly_budget_usd", def.Budget.HourlyBudgetUSD)
	for name, val := range def.Budget.CostPer1kTokens {
		v.SetDefault("budget.cost_per_1k_tokens."+name, val)
	}
	for name, val := range def.Budget.ThrottleThresholds {
		v.SetDefault("budget.throttle_thresholds."+name, val)
	}
	v.SetDefault("mind.max_working_turns", def.Mind.MaxWorkingTurns)
	v.SetDefault("mock.base_latency_min", def.Mock.BaseLatencyMin)
	v.SetDefault("mock.base_latency_max", def.Mock.BaseLatencyMax)
	v.SetDefault("mock.failure_rate", def.Mock.FailureRate)
	v.SetDefault("mock.seed", def.Mock.Seed)
	v.SetDefault("background.synthesis_check_interval", def.Background.SynthesisCheckInterval)
	v.SetDefault("background.cleanup_interval", def.Background.CleanupInterval)
	v.SetDefault("background.max_thought_age", def.Background.MaxThoughtAge)
	v.SetDefault("memory.enabled", def.Memory.Enabled)
	v.SetDefault("memory.db_path", def.Memory.DBPath)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
}

// defaultYAML is the config file written on first run. Durations use the
// Go duration syntax viper parses back.
const defaultYAML = `# cogito configuration
agent:
  profile_path: ""

budget:
  hourly_budget_usd: 15.0
  cost_per_1k_tokens:
    small: 0.0002
    medium: 0.0012
    large: 0.0049
  throttle_thresholds:
    small: 0.95
    medium: 0.85
    large: 0.75

mind:
  max_working_turns: 20

mock:
  base_latency_min: 20ms
  base_latency_max: 80ms
  failure_rate: 0.0
  seed: 0

background:
  synthesis_check_interval: 1s
  cleanup_interval: 1m
  max_thought_age: 30m

memory:
  enabled: true
  db_path: ""

logging:
  level: info
  file: ""
`

// writeDefault materializes the default configuration as YAML.
func writeDefault(path string) error {
	if err := os.WriteFile(path, []byte(defaultYAML), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
