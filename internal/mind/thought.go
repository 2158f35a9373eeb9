// Package mind is the agent's private thought workspace. It owns every live
// thought and the streams that group them, decides when a stream has
// accumulated enough to synthesize, and keeps the queues of insights that
// are held back or ready to share. External readers only ever get copies.
package mind

import (
	"time"

	"github.com/google/uuid"

	"github.com/normanking/cogito/internal/tier"
)

// maxRelatedThoughts caps how many prior stream thoughts a new thought
// links back to.
const maxRelatedThoughts = 3

// ThoughtType classifies what kind of cognition a thought represents.
type ThoughtType string

const (
	TypeInsight     ThoughtType = "INSIGHT"
	TypeConcern     ThoughtType = "CONCERN"
	TypeQuestion    ThoughtType = "QUESTION"
	TypeObservation ThoughtType = "OBSERVATION"
	TypePlan        ThoughtType = "PLAN"
	TypeReaction    ThoughtType = "REACTION"
)

// Thought is one unit of model output with its quality metadata and
// lifecycle flags. The tier is set at creation and never changes; content is
// non-empty. Cross-references use IDs, never pointers.
type Thought struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Tier      tier.CognitiveTier `json:"tier"`
	Content   string             `json:"content"`
	Type      ThoughtType        `json:"type"`
	Trigger   string             `json:"trigger"`

	Confidence   float64 `json:"confidence"`
	Completeness float64 `json:"completeness"`

	Externalized      bool       `json:"externalized"`
	ExternalizedAt    *time.Time `json:"externalized_at,omitempty"`
	StillRelevant     bool       `json:"still_relevant"`
	SupersededBy      string     `json:"superseded_by,omitempty"`
	RelatedThoughtIDs []string   `json:"related_thought_ids,omitempty"`
}

// NewThought constructs a live thought with identity and timestamp set.
func NewThought(t tier.CognitiveTier, content string, thoughtType ThoughtType, trigger string) Thought {
	return Thought{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now(),
		Tier:          t,
		Content:       content,
		Type:          thoughtType,
		Trigger:       trigger,
		StillRelevant: true,
	}
}

// clone returns a deep copy of the thought.
func (t Thought) clone() Thought {
	out := t
	if t.ExternalizedAt != nil {
		ts := *t.ExternalizedAt
		out.ExternalizedAt = &ts
	}
	out.RelatedThoughtIDs = append([]string(nil), t.RelatedThoughtIDs...)
	return out
}
