package social

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/mind"
)

// relevanceFloor is the minimum expertise relevance worth tracking the
// conversation actively for.
const relevanceFloor = 0.3

// deferMargin is how much stronger another participant's expertise must be
// before yielding the floor to them.
const deferMargin = 0.2

// assumedExpertLevel stands in for other participants' unknown skill
// levels when estimating their relevance from expertise keywords.
const assumedExpertLevel = 0.9

// strongRelevance upgrades a contribution from "may" to "should".
const strongRelevance = 0.6

// fairShareSlack is how far past the role-adjusted fair share an agent may
// speak before it has said enough.
const fairShareSlack = 1.5

// criticalConfidence marks a held concern important enough to override
// turn-taking restraint.
const criticalConfidence = 0.8

// roleMultipliers adjust the fair speaking share by conversational role.
var roleMultipliers = map[string]float64{
	"facilitator": 2.0,
	"leader":      1.5,
	"expert":      1.3,
	"participant": 1.0,
	"junior":      0.8,
	"observer":    0.3,
}

// Option configures an Intelligence.
type Option func(*Intelligence)

// WithBus publishes speech decisions to the given bus.
func WithBus(b *bus.Bus) Option {
	return func(s *Intelligence) { s.bus = b }
}

// Intelligence decides when an agent should speak. It holds the profile
// and mind without owning them; ShouldISpeak itself mutates nothing.
type Intelligence struct {
	profile *agent.Profile
	mind    *mind.Mind
	bus     *bus.Bus
	log     zerolog.Logger
}

// New creates a social intelligence for one agent.
func New(profile *agent.Profile, m *mind.Mind, opts ...Option) *Intelligence {
	s := &Intelligence{
		profile: profile,
		mind:    m,
		log:     logging.Component("social").With().Str("agent_id", profile.AgentID).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldISpeak runs the externalization pipeline over a conversation
// snapshot. Checks short-circuit in order: direct address, expertise
// relevance, deference, conversational space, turn-taking fairness, role,
// and group-size threshold; whatever survives becomes a contribution.
func (s *Intelligence) ShouldISpeak(stimulus Stimulus, sctx *Context) Decision {
	factors := map[string]float64{}
	decision := s.decide(stimulus, sctx, factors)
	decision.Factors = factors

	s.log.Debug().
		Str("intent", string(decision.Intent)).
		Str("reason", decision.Reason).
		Float64("confidence", decision.Confidence).
		Msg("speech decision")
	if s.bus != nil {
		ev := bus.NewEvent(bus.EventSpeechDecision)
		ev.AgentID = s.profile.AgentID
		ev.Reason = decision.Reason
		ev.Content = string(decision.Intent)
		ev.Confidence = decision.Confidence
		_ = s.bus.Publish(ev)
	}
	return decision
}

func (s *Intelligence) decide(stimulus Stimulus, sctx *Context, factors map[string]float64) Decision {
	// 1. Direct address trumps everything, including zero expertise.
	if s.directlyAddressed(stimulus) {
		return Decision{
			Intent:           IntentMustRespond,
			Confidence:       1.0,
			Reason:           "directly_addressed",
			ContributionType: ContributionResponse,
			Timing:           TimingImmediate,
		}
	}

	// 2. Expertise relevance gates everything below.
	keywords := topicKeywords(stimulus.Topic)
	relevance := s.skillRelevance(keywords)
	factors["relevance"] = relevance
	if relevance < relevanceFloor {
		return Decision{
			Intent:     IntentPassiveAwareness,
			Confidence: 0.9,
			Reason:     "low_expertise_relevance",
		}
	}

	// 3. Yield to a clearly stronger voice that has not spoken yet.
	if name, theirs, ok := s.strongerExpert(keywords, relevance, sctx); ok {
		factors["expert_relevance"] = theirs
		return Decision{
			Intent:     IntentActiveListen,
			Confidence: 0.7,
			Reason:     "defer_to_expert:" + name,
		}
	}

	// 4. Conversational space.
	if sctx.CurrentSpeaker != "" && sctx.CurrentSpeaker != s.profile.AgentID {
		return Decision{Intent: IntentActiveListen, Confidence: 0.8, Reason: "floor_is_taken"}
	}
	if sctx.Phase == PhaseClosing {
		return Decision{Intent: IntentActiveListen, Confidence: 0.8, Reason: "conversation_closing"}
	}
	if sctx.Energy == EnergyHeated && s.profile.SocialMarkers.ComfortWithConflict < 6 {
		return Decision{Intent: IntentActiveListen, Confidence: 0.7, Reason: "avoiding_heated_exchange"}
	}

	// 5. Turn-taking fairness, unless a critical concern is waiting.
	if said, myShare, limit := s.saidEnough(sctx); said {
		factors["my_share"] = myShare
		factors["share_limit"] = limit
		if !s.hasCriticalInput() {
			return Decision{Intent: IntentActiveListen, Confidence: 0.8, Reason: "said_enough"}
		}
		factors["critical_input"] = 1
	}

	// 6. Observers watch.
	if sctx.MyRole == "observer" {
		return Decision{Intent: IntentActiveListen, Confidence: 0.9, Reason: "observer_role"}
	}

	// 7. Bigger rooms demand more relevance to volunteer.
	groupType := GroupTypeForSize(sctx.Size())
	threshold := groupType.MinRelevance()
	factors["group_threshold"] = threshold
	if relevance < threshold {
		return Decision{
			Intent:     IntentMayContribute,
			Confidence: 0.6,
			Reason:     fmt.Sprintf("below_%s_threshold", strings.ToLower(string(groupType))),
			Timing:     TimingWhenAsked,
		}
	}

	// 8. Speak, in the shape the markers favor.
	intent := IntentMayContribute
	if relevance > strongRelevance {
		intent = IntentShouldContribute
	}
	return Decision{
		Intent:           intent,
		Confidence:       relevance,
		Reason:           "relevant_contribution",
		ContributionType: s.contributionType(sctx),
		Timing:           TimingNaturalPause,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// PIPELINE STEPS
// ─────────────────────────────────────────────────────────────────────────────

// directlyAddressed reports whether the stimulus targets this agent by ID,
// name, or @-mention.
func (s *Intelligence) directlyAddressed(stimulus Stimulus) bool {
	name := strings.ToLower(s.profile.Name)
	for _, target := range stimulus.DirectedAt {
		lower := strings.ToLower(target)
		if lower == strings.ToLower(s.profile.AgentID) || lower == name {
			return true
		}
	}
	content := strings.ToLower(stimulus.Content)
	return strings.Contains(content, "@"+name) || strings.Contains(content, name)
}

// skillRelevance scores topic keywords against the agent's skills:
// substring overlap in either direction, mean matched level out of ten.
// Short keywords match promiscuously; callers should treat near-threshold
// values with care.
func (s *Intelligence) skillRelevance(keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	var sum float64
	matched := 0
	for _, skill := range s.profile.AllSkills() {
		for _, kw := range keywords {
			if strings.Contains(skill.Name, kw) || strings.Contains(kw, skill.Name) {
				sum += float64(skill.Level) / 10.0
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return 0
	}
	return sum / float64(matched)
}

// strongerExpert finds a participant with clearly stronger estimated
// relevance who has not yet spoken.
func (s *Intelligence) strongerExpert(keywords []string, mine float64, sctx *Context) (string, float64, bool) {
	for _, p := range sctx.Participants {
		if p.ID == s.profile.AgentID || p.HasSpoken {
			continue
		}
		theirs := estimateRelevance(p.Expertise, keywords)
		if theirs > mine+deferMargin {
			return p.Name, theirs, true
		}
	}
	return "", 0, false
}

// estimateRelevance scores another participant's expertise keywords
// against the topic. Levels are unknown, so matches are assumed to be
// expert grade.
func estimateRelevance(expertise, keywords []string) float64 {
	matched := 0
	for _, e := range expertise {
		lower := strings.ToLower(e)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) || strings.Contains(kw, lower) {
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return 0
	}
	return assumedExpertLevel
}

// saidEnough compares the agent's speaking share to its role-adjusted fair
// share.
func (s *Intelligence) saidEnough(sctx *Context) (bool, float64, float64) {
	total := 0
	for _, n := range sctx.SpeakingDistribution {
		total += n
	}
	size := sctx.Size()
	if total == 0 || size == 0 {
		return false, 0, 0
	}

	myShare := float64(sctx.SpeakingDistribution[s.profile.AgentID]) / float64(total)
	multiplier, ok := roleMultipliers[sctx.MyRole]
	if !ok {
		multiplier = roleMultipliers["participant"]
	}
	limit := fairShareSlack * (1.0 / float64(size)) * multiplier
	return myShare > limit, myShare, limit
}

// hasCriticalInput reports whether a high-confidence concern is waiting in
// the held or ready queues.
func (s *Intelligence) hasCriticalInput() bool {
	if s.mind == nil {
		return false
	}
	for _, t := range s.mind.ReadyToShare() {
		if t.Type == mind.TypeConcern && t.Confidence > criticalConfidence {
			return true
		}
	}
	for _, t := range s.mind.HeldInsights() {
		if t.Type == mind.TypeConcern && t.Confidence > criticalConfidence {
			return true
		}
	}
	return false
}

// contributionType picks the shape of a contribution from the social
// markers.
func (s *Intelligence) contributionType(sctx *Context) ContributionType {
	m := s.profile.SocialMarkers
	switch {
	case m.Curiosity >= 7:
		return ContributionQuestion
	case m.FacilitationInstinct >= 7 && (sctx.MyRole == "facilitator" || sctx.MyRole == "leader"):
		return ContributionFacilitation
	case m.Assertiveness >= 7 && m.ComfortWithConflict >= 6:
		return ContributionChallenge
	default:
		return ContributionStatement
	}
}

// topicKeywords splits a topic into lowercased keywords.
func topicKeywords(topic string) []string {
	fields := strings.Fields(strings.ToLower(topic))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
