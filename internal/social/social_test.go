package social

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/tier"
)

func testProfile() *agent.Profile {
	return &agent.Profile{
		AgentID: "agent-1",
		Name:    "Rivera",
		Role:    "backend engineer",
		Skills: agent.Skills{
			Technical: map[string]int{"database": 8, "golang": 7},
			Domains:   map[string]int{"payments": 6},
		},
		SocialMarkers: agent.SocialMarkers{
			Confidence:          6,
			Assertiveness:       5,
			Curiosity:           4,
			ComfortWithConflict: 7,
		},
	}
}

func discussionContext(size int) *Context {
	participants := make([]Participant, size)
	for i := range participants {
		participants[i] = Participant{ID: fmt.Sprintf("p-%d", i), Name: fmt.Sprintf("P%d", i)}
	}
	if size > 0 {
		participants[0].ID = "agent-1"
		participants[0].Name = "Rivera"
	}
	return &Context{
		Participants: participants,
		Phase:        PhaseDiscussion,
		Energy:       EnergyCalm,
		MyRole:       "participant",
	}
}

func TestDirectAddressOutranksLowRelevance(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1"))
	sctx := discussionContext(4)
	sctx.CurrentSpeaker = "p-2" // even with the floor taken

	d := s.ShouldISpeak(Stimulus{
		Content:    "what do you think about the catering menu?",
		Topic:      "catering menu",
		DirectedAt: []string{"agent-1"},
	}, sctx)

	assert.Equal(t, IntentMustRespond, d.Intent)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, ContributionResponse, d.ContributionType)
	assert.Equal(t, TimingImmediate, d.Timing)
}

func TestMentionByNameCountsAsDirectAddress(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1"))
	d := s.ShouldISpeak(Stimulus{
		Content: "maybe @rivera can weigh in here",
		Topic:   "catering menu",
	}, discussionContext(4))
	assert.Equal(t, IntentMustRespond, d.Intent)
}

func TestLowRelevanceStaysPassive(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1"))
	d := s.ShouldISpeak(Stimulus{
		Content: "the quarterly marketing brand refresh",
		Topic:   "marketing brand refresh",
	}, discussionContext(4))

	assert.Equal(t, IntentPassiveAwareness, d.Intent)
	assert.Equal(t, "low_expertise_relevance", d.Reason)
	assert.Less(t, d.Factors["relevance"], 0.3)
}

func TestDeferToUnspokenExpert(t *testing.T) {
	p := testProfile()
	p.Skills.Technical = map[string]int{"database": 6}
	s := New(p, mind.New("agent-1"))

	sctx := discussionContext(4)
	sctx.Participants[2].Name = "Moss"
	sctx.Participants[2].Expertise = []string{"database internals"}

	d := s.ShouldISpeak(Stimulus{
		Content: "we keep hitting lock contention",
		Topic:   "database lock contention",
	}, sctx)

	assert.Equal(t, IntentActiveListen, d.Intent)
	assert.True(t, strings.HasPrefix(d.Reason, "defer_to_expert:"), d.Reason)
	assert.Contains(t, d.Reason, "Moss")
}

func TestNoDeferenceOnceExpertHasSpoken(t *testing.T) {
	p := testProfile()
	p.Skills.Technical = map[string]int{"database": 6}
	s := New(p, mind.New("agent-1"))

	sctx := discussionContext(4)
	sctx.Participants[2].Name = "Moss"
	sctx.Participants[2].Expertise = []string{"database internals"}
	sctx.Participants[2].HasSpoken = true

	d := s.ShouldISpeak(Stimulus{
		Content: "we keep hitting lock contention",
		Topic:   "database lock contention",
	}, sctx)
	assert.NotEqual(t, "defer_to_expert:Moss", d.Reason)
}

func TestFloorTakenMeansListening(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1"))
	sctx := discussionContext(4)
	sctx.CurrentSpeaker = "p-2"

	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.Equal(t, IntentActiveListen, d.Intent)
	assert.Equal(t, "floor_is_taken", d.Reason)
}

func TestClosingPhaseSuppressesContribution(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1"))
	sctx := discussionContext(4)
	sctx.Phase = PhaseClosing

	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.Equal(t, "conversation_closing", d.Reason)
}

func TestHeatedExchangeRespectsConflictComfort(t *testing.T) {
	avoidant := testProfile()
	avoidant.SocialMarkers.ComfortWithConflict = 3
	sctx := discussionContext(4)
	sctx.Energy = EnergyHeated

	d := New(avoidant, mind.New("agent-1")).ShouldISpeak(
		Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.Equal(t, "avoiding_heated_exchange", d.Reason)

	// Comfortable with conflict: heat is not a barrier.
	d = New(testProfile(), mind.New("agent-1")).ShouldISpeak(
		Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.NotEqual(t, "avoiding_heated_exchange", d.Reason)
}

func TestSaidEnoughYieldsTheFloor(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1"))
	sctx := discussionContext(4)
	sctx.SpeakingDistribution = map[string]int{"agent-1": 6, "p-1": 1, "p-2": 1}

	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.Equal(t, IntentActiveListen, d.Intent)
	assert.Equal(t, "said_enough", d.Reason)
	assert.Greater(t, d.Factors["my_share"], d.Factors["share_limit"])
}

func TestCriticalConcernOverridesSaidEnough(t *testing.T) {
	m := mind.New("agent-1")
	concern := mind.NewThought(tier.Deliberate, "this migration will lose writes", mind.TypeConcern, "analysis")
	concern.Confidence = 0.9
	m.HoldInsight(concern)

	s := New(testProfile(), m)
	sctx := discussionContext(4)
	sctx.SpeakingDistribution = map[string]int{"agent-1": 6, "p-1": 1, "p-2": 1}

	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.NotEqual(t, "said_enough", d.Reason)
	assert.Equal(t, 1.0, d.Factors["critical_input"])
}

func TestObserverRoleListens(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1"))
	sctx := discussionContext(4)
	sctx.MyRole = "observer"

	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.Equal(t, IntentActiveListen, d.Intent)
	assert.Equal(t, "observer_role", d.Reason)
}

func TestGroupTypeBoundaries(t *testing.T) {
	cases := []struct {
		size int
		want GroupType
	}{
		{1, GroupSolo},
		{2, GroupPair},
		{6, GroupSmallTeam},
		{7, GroupMeeting},
		{20, GroupMeeting},
		{21, GroupLargeGroup},
		{100, GroupLargeGroup},
		{101, GroupArmy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GroupTypeForSize(tc.size), "size %d", tc.size)
	}
}

func TestLargeGroupRaisesTheBar(t *testing.T) {
	p := testProfile()
	p.Skills.Technical = map[string]int{"database": 6} // relevance 0.6 < 0.7
	s := New(p, mind.New("agent-1"))

	sctx := discussionContext(4)
	sctx.GroupSize = 30

	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
	assert.Equal(t, IntentMayContribute, d.Intent)
	assert.Equal(t, TimingWhenAsked, d.Timing)
	assert.Equal(t, "below_large_group_threshold", d.Reason)
}

func TestStrongRelevanceShouldContribute(t *testing.T) {
	s := New(testProfile(), mind.New("agent-1")) // database level 8 -> 0.8
	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, discussionContext(4))

	assert.Equal(t, IntentShouldContribute, d.Intent)
	assert.Equal(t, "relevant_contribution", d.Reason)
	assert.Equal(t, TimingNaturalPause, d.Timing)
	assert.InDelta(t, 0.8, d.Confidence, 0.001)
}

func TestModerateRelevanceMayContribute(t *testing.T) {
	p := testProfile()
	p.Skills.Technical = map[string]int{"database": 5}
	s := New(p, mind.New("agent-1"))

	d := s.ShouldISpeak(Stimulus{Content: "index strategy", Topic: "database indexes"}, discussionContext(4))
	assert.Equal(t, IntentMayContribute, d.Intent)
}

func TestContributionTypeFollowsMarkers(t *testing.T) {
	base := func() *agent.Profile { return testProfile() }

	curious := base()
	curious.SocialMarkers.Curiosity = 8

	facilitator := base()
	facilitator.SocialMarkers.FacilitationInstinct = 8

	challenger := base()
	challenger.SocialMarkers.Assertiveness = 8
	challenger.SocialMarkers.ComfortWithConflict = 7

	cases := []struct {
		name    string
		profile *agent.Profile
		role    string
		want    ContributionType
	}{
		{"curiosity wins", curious, "participant", ContributionQuestion},
		{"facilitation needs the role", facilitator, "facilitator", ContributionFacilitation},
		{"facilitation without role falls through", facilitator, "participant", ContributionStatement},
		{"assertive challenger", challenger, "participant", ContributionChallenge},
		{"default statement", base(), "participant", ContributionStatement},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sctx := discussionContext(4)
			sctx.MyRole = tc.role
			d := New(tc.profile, mind.New("agent-1")).ShouldISpeak(
				Stimulus{Content: "index strategy", Topic: "database indexes"}, sctx)
			require.Equal(t, "relevant_contribution", d.Reason)
			assert.Equal(t, tc.want, d.ContributionType)
		})
	}
}

func TestUpdateSpeakerTracksDistribution(t *testing.T) {
	sctx := discussionContext(3)
	sctx.UpdateSpeaker("p-1")
	sctx.UpdateSpeaker("p-1")
	sctx.UpdateSpeaker("agent-1")

	assert.Equal(t, "agent-1", sctx.CurrentSpeaker)
	assert.Equal(t, 2, sctx.SpeakingDistribution["p-1"])
	assert.Equal(t, 1, sctx.SpeakingDistribution["agent-1"])
	assert.True(t, sctx.Participants[1].HasSpoken)
}
