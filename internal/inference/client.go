// Package inference defines the backend model abstraction the engine calls
// into. The engine depends only on ModelClient; real backends live with the
// caller. A simulated client ships here for demos and tests.
package inference

import (
	"context"

	"github.com/normanking/cogito/internal/tier"
)

// Request is the payload for one inference call.
type Request struct {
	// Prompt is the fully assembled prompt text.
	Prompt string `json:"prompt"`

	// MaxTokens limits response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `json:"temperature,omitempty"`

	// TopP is the nucleus sampling cutoff.
	TopP float64 `json:"top_p,omitempty"`

	// Stop lists sequences that end generation early.
	Stop []string `json:"stop,omitempty"`
}

// Response is the result of one inference call.
type Response struct {
	Text             string         `json:"text"`
	ModelUsed        string         `json:"model_used"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	LatencyMs        int64          `json:"latency_ms"`
	TierUsed         tier.ModelTier `json:"tier_used"`
}

// ModelClient is the interface every inference backend implements.
//
// Generate must be safe for concurrent use; implementations typically own a
// connection pool. Close releases backend resources; Generate after Close
// must fail rather than hang.
type ModelClient interface {
	// Generate runs one inference call under the deadline carried by ctx.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// HealthCheck reports whether the backend is currently reachable.
	HealthCheck(ctx context.Context) bool

	// Close releases any resources held by the client.
	Close() error
}
