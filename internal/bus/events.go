// Package bus provides the in-process event spine of the engine. Components
// publish typed events as they work; observers (the monitor TUI, tests)
// subscribe without coupling to the publishing component.
package bus

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of engine event.
type EventType string

// Engine event catalog.
const (
	// Processing events
	EventProcessStarted   EventType = "process_started"
	EventProcessCompleted EventType = "process_completed"
	EventThoughtCreated   EventType = "thought_created"

	// Routing events
	EventRoutingDecision EventType = "routing_decision"
	EventRoutingFallback EventType = "routing_fallback"
	EventTierUnhealthy   EventType = "tier_unhealthy"

	// Budget events
	EventBudgetAlert EventType = "budget_alert"

	// Mind events
	EventStreamStatus        EventType = "stream_status"
	EventSynthesisCompleted  EventType = "synthesis_completed"
	EventThoughtsInvalidated EventType = "thoughts_invalidated"

	// Social events
	EventSpeechDecision EventType = "speech_decision"

	// Background events
	EventCleanupCompleted EventType = "cleanup_completed"
	EventBackgroundError  EventType = "background_error"
)

// Event is one engine occurrence. Only the fields relevant to the event
// type are populated.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	// Origin
	AgentID string `json:"agent_id,omitempty"`

	// Cognitive context
	Tier      string `json:"tier,omitempty"`
	ModelTier string `json:"model_tier,omitempty"`
	ThoughtID string `json:"thought_id,omitempty"`
	StreamID  string `json:"stream_id,omitempty"`
	Topic     string `json:"topic,omitempty"`

	// Outcome
	Reason      string  `json:"reason,omitempty"`
	Content     string  `json:"content,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Utilization float64 `json:"utilization,omitempty"`
	DurationMs  int64   `json:"duration_ms,omitempty"`
	Count       int     `json:"count,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// NewEvent builds an event of the given type with identity and timestamp
// filled in.
func NewEvent(t EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      t,
	}
}
