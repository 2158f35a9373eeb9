// Package social decides whether an agent should externalize a thought
// into a conversation. The decision function is pure: it reads a snapshot
// of the conversation and the agent's mind and returns a reasoned verdict
// without side effects.
package social

// ConversationPhase is where the conversation is in its arc.
type ConversationPhase string

const (
	PhaseOpening    ConversationPhase = "OPENING"
	PhaseDiscussion ConversationPhase = "DISCUSSION"
	PhaseClosing    ConversationPhase = "CLOSING"
)

// ConversationEnergy is the temperature of the exchange.
type ConversationEnergy string

const (
	EnergyCalm   ConversationEnergy = "CALM"
	EnergyLively ConversationEnergy = "LIVELY"
	EnergyHeated ConversationEnergy = "HEATED"
)

// GroupType classifies the audience by size.
type GroupType string

const (
	GroupSolo       GroupType = "SOLO"
	GroupPair       GroupType = "PAIR"
	GroupSmallTeam  GroupType = "SMALL_TEAM"
	GroupMeeting    GroupType = "MEETING"
	GroupLargeGroup GroupType = "LARGE_GROUP"
	GroupArmy       GroupType = "ARMY"
)

// GroupTypeForSize maps a participant count to its group type.
func GroupTypeForSize(n int) GroupType {
	switch {
	case n <= 1:
		return GroupSolo
	case n == 2:
		return GroupPair
	case n <= 6:
		return GroupSmallTeam
	case n <= 20:
		return GroupMeeting
	case n <= 100:
		return GroupLargeGroup
	default:
		return GroupArmy
	}
}

// MinRelevance is the expertise bar for volunteering in a group of this
// size: the bigger the room, the more relevant you must be.
func (g GroupType) MinRelevance() float64 {
	switch g {
	case GroupSolo:
		return 0.0
	case GroupPair:
		return 0.3
	case GroupSmallTeam:
		return 0.4
	case GroupMeeting:
		return 0.5
	case GroupLargeGroup:
		return 0.7
	case GroupArmy:
		return 0.9
	default:
		return 0.5
	}
}

// Participant is one other member of the conversation.
type Participant struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Expertise []string `json:"expertise"`
	HasSpoken bool     `json:"has_spoken"`
}

// Stimulus is the utterance or event being considered.
type Stimulus struct {
	Content    string   `json:"content"`
	Topic      string   `json:"topic"`
	DirectedAt []string `json:"directed_at,omitempty"`
}

// Context is a snapshot of the conversation state. UpdateSpeaker is the
// single source of truth for the speaking distribution; callers must not
// increment it separately when recording messages.
type Context struct {
	Participants         []Participant      `json:"participants"`
	CurrentSpeaker       string             `json:"current_speaker"`
	Phase                ConversationPhase  `json:"phase"`
	Energy               ConversationEnergy `json:"energy"`
	GroupSize            int                `json:"group_size"`
	SpeakingDistribution map[string]int     `json:"speaking_distribution"`

	// MyRole is the agent's role in this conversation (facilitator,
	// leader, expert, participant, junior, observer).
	MyRole string `json:"my_role"`
}

// UpdateSpeaker records that a participant took the floor: it sets the
// current speaker, counts the turn, and marks the participant as having
// spoken.
func (c *Context) UpdateSpeaker(id string) {
	c.CurrentSpeaker = id
	if c.SpeakingDistribution == nil {
		c.SpeakingDistribution = make(map[string]int)
	}
	c.SpeakingDistribution[id]++
	for i := range c.Participants {
		if c.Participants[i].ID == id {
			c.Participants[i].HasSpoken = true
		}
	}
}

// Size returns the declared group size, falling back to the participant
// count.
func (c *Context) Size() int {
	if c.GroupSize > 0 {
		return c.GroupSize
	}
	return len(c.Participants)
}
