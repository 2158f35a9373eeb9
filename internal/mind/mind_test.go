package mind

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cogito/internal/tier"
)

func obsThought(content string, confidence float64) Thought {
	t := NewThought(tier.Reactive, content, TypeObservation, "observation")
	t.Confidence = confidence
	t.Completeness = 0.5
	return t
}

// ═══════════════════════════════════════════════════════════════════════════════
// TOPICS
// ═══════════════════════════════════════════════════════════════════════════════

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"stopwords filtered", "The database is slow and the cache is cold", "database slow cache cold"},
		{"capped at five words", "alpha beta gamma delta epsilon zeta eta", "alpha beta gamma delta epsilon"},
		{"punctuation stripped", "Deploy failed! Rollback started.", "deploy failed rollback started"},
		{"single chars skipped", "a b c database", "database"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTopic(tt.text))
		})
	}
}

func TestTopicsRelated(t *testing.T) {
	assert.True(t, TopicsRelated("database migration slow", "slow query database"))
	assert.False(t, TopicsRelated("database migration", "frontend styling"))
	assert.False(t, TopicsRelated("", "anything"))
}

// ═══════════════════════════════════════════════════════════════════════════════
// STREAMS
// ═══════════════════════════════════════════════════════════════════════════════

func TestAddThoughtGroupsByTopic(t *testing.T) {
	m := New("agent-1")

	s1 := m.AddThought(obsThought("database latency is climbing", 0.7))
	s2 := m.AddThought(obsThought("database connections exhausted", 0.7))
	s3 := m.AddThought(obsThought("frontend bundle size grew", 0.7))

	assert.Equal(t, s1.ID, s2.ID, "related topics share a stream")
	assert.NotEqual(t, s1.ID, s3.ID, "unrelated topic opens a new stream")
	assert.Equal(t, 2, s2.ThoughtCount())
}

func TestAddThoughtLinksRecentPriors(t *testing.T) {
	m := New("agent-1")

	var ids []string
	var last *ThoughtStream
	for i := 0; i < 5; i++ {
		th := obsThought("database pool saturation again", 0.4)
		ids = append(ids, th.ID)
		last = m.AddThought(th)
	}

	final := last.Thoughts[4]
	require.Len(t, final.RelatedThoughtIDs, 3)
	assert.Equal(t, ids[1:4], final.RelatedThoughtIDs)
}

func TestSynthesisTriggerAtThreeThoughts(t *testing.T) {
	m := New("agent-1")

	m.AddThought(obsThought("deploy pipeline flaked on step two", 0.5))
	s := m.AddThought(obsThought("deploy retry also failed", 0.5))
	assert.Equal(t, StreamActive, s.Status)

	s = m.AddThought(obsThought("deploy rollback completed", 0.5))
	assert.Equal(t, StreamNeedsSynthesis, s.Status)

	needing := m.GetStreamsNeedingSynthesis()
	require.Len(t, needing, 1)
	assert.Equal(t, s.ID, needing[0].ID)
}

func TestSynthesisTriggerTwoThoughtsOverTime(t *testing.T) {
	m := New("agent-1")

	first := obsThought("memory usage trending upward", 0.8)
	first.CreatedAt = time.Now().Add(-45 * time.Second)
	m.AddThought(first)

	s := m.AddThought(obsThought("memory growth looks unbounded", 0.8))
	assert.Equal(t, StreamNeedsSynthesis, s.Status,
		"two confident thoughts spanning >30s trigger synthesis")
}

func TestTwoQuickThoughtsDoNotTrigger(t *testing.T) {
	m := New("agent-1")
	m.AddThought(obsThought("cache hit rate dropped", 0.9))
	s := m.AddThought(obsThought("cache eviction storm observed", 0.9))
	assert.Equal(t, StreamActive, s.Status)
}

func TestConcludeStream(t *testing.T) {
	m := New("agent-1")

	m.AddThought(obsThought("queue depth rising steadily", 0.7))
	m.AddThought(obsThought("queue consumers are starved", 0.7))
	s := m.AddThought(obsThought("queue producer burst at noon", 0.7))

	synthesis := NewThought(tier.Deliberate, "queue imbalance: producers outpace consumers", TypeInsight, "synthesis")
	synthesis.Confidence = 0.8
	require.NoError(t, m.ConcludeStream(s.ID, synthesis))

	got := m.GetStream(s.ID)
	require.NotNil(t, got)
	assert.Equal(t, StreamConcluded, got.Status)
	assert.True(t, got.ReadyToExternalize)
	require.NotNil(t, got.SynthesizedOutput)
	assert.Equal(t, synthesis.ID, got.SynthesizedOutput.ID)
	for _, th := range got.Thoughts {
		assert.False(t, th.StillRelevant)
		assert.Equal(t, synthesis.ID, th.SupersededBy)
	}

	// Concluding twice is an error; the stream transitioned once.
	assert.Error(t, m.ConcludeStream(s.ID, synthesis))
}

func TestAbandonStream(t *testing.T) {
	m := New("agent-1")
	s := m.AddThought(obsThought("loose end worth dropping", 0.3))

	require.NoError(t, m.AbandonStream(s.ID))
	assert.Equal(t, StreamAbandoned, m.GetStream(s.ID).Status)
	assert.Error(t, m.AbandonStream(s.ID), "abandoned stream cannot be abandoned again")
	assert.Error(t, m.AbandonStream("missing"))
}

func TestGetStreamForTopic(t *testing.T) {
	m := New("agent-1")
	s := m.AddThought(obsThought("database index bloat detected", 0.6))

	found := m.GetStreamForTopic("database tuning")
	require.NotNil(t, found)
	assert.Equal(t, s.ID, found.ID)
	assert.Nil(t, m.GetStreamForTopic("unrelated gardening"))
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUEUES
// ═══════════════════════════════════════════════════════════════════════════════

func TestGetBestContribution(t *testing.T) {
	m := New("agent-1")

	weak := obsThought("minor observation here", 0.9)
	weak.Completeness = 0.4
	strong := obsThought("well developed insight content", 0.6)
	strong.Completeness = 0.9
	tied := obsThought("equally complete but less confident", 0.5)
	tied.Completeness = 0.9

	m.PrepareToShare(weak)
	m.PrepareToShare(strong)
	m.PrepareToShare(tied)

	best := m.GetBestContribution()
	require.NotNil(t, best)
	assert.Equal(t, strong.ID, best.ID, "completeness first, confidence breaks ties")
}

func TestGetBestContributionSkipsIrrelevant(t *testing.T) {
	m := New("agent-1")
	assert.Nil(t, m.GetBestContribution())

	t1 := obsThought("stale database capacity concern", 0.9)
	m.PrepareToShare(t1)
	m.InvalidateThoughtsAbout("database capacity")

	assert.Nil(t, m.GetBestContribution(), "invalidated thoughts never surface")
}

func TestMarkExternalizedIdempotent(t *testing.T) {
	m := New("agent-1")
	th := obsThought("shareable finding about deploys", 0.7)
	m.PrepareToShare(th)

	require.True(t, m.MarkExternalized(th.ID))
	first := m.GetThought(th.ID)
	require.NotNil(t, first)
	require.NotNil(t, first.ExternalizedAt)
	stamp := *first.ExternalizedAt

	require.True(t, m.MarkExternalized(th.ID))
	second := m.GetThought(th.ID)
	assert.Equal(t, stamp, *second.ExternalizedAt, "timestamp set once")
	assert.Empty(t, m.ReadyToShare())

	assert.False(t, m.MarkExternalized("missing"))
}

func TestInvalidateIdempotent(t *testing.T) {
	m := New("agent-1")
	m.AddThought(obsThought("kafka lag spiking on topic orders", 0.7))
	m.AddThought(obsThought("kafka consumer rebalance loop", 0.7))

	assert.Equal(t, 2, m.InvalidateThoughtsAbout("kafka lag"))
	assert.Equal(t, 0, m.InvalidateThoughtsAbout("kafka lag"))
}

func TestHoldInsight(t *testing.T) {
	m := New("agent-1")
	th := obsThought("tentative pattern not ready to share", 0.4)
	m.HoldInsight(th)
	m.HoldInsight(th)

	held := m.HeldInsights()
	require.Len(t, held, 1)
	assert.Equal(t, th.ID, held[0].ID)
	assert.Empty(t, m.ReadyToShare())
}

// ═══════════════════════════════════════════════════════════════════════════════
// CLEANUP AND SNAPSHOTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestCleanupOldThoughts(t *testing.T) {
	m := New("agent-1")

	old := obsThought("ancient unshared observation", 0.5)
	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	m.AddThought(old)

	fresh := obsThought("recent observation still warm", 0.5)
	m.AddThought(fresh)

	shared := obsThought("old but externalized message", 0.5)
	shared.CreatedAt = time.Now().Add(-2 * time.Hour)
	m.PrepareToShare(shared)
	m.MarkExternalized(shared.ID)

	dropped := m.CleanupOldThoughts(30 * time.Minute)
	assert.Equal(t, 1, dropped)
	assert.Nil(t, m.GetThought(old.ID))
	assert.NotNil(t, m.GetThought(fresh.ID))
	assert.NotNil(t, m.GetThought(shared.ID), "externalized thoughts survive cleanup")
}

func TestCleanupDropsConcludedStreams(t *testing.T) {
	m := New("agent-1")

	m.AddThought(obsThought("disk usage at eighty percent", 0.7))
	m.AddThought(obsThought("disk growth rate doubled", 0.7))
	s := m.AddThought(obsThought("disk cleanup job disabled", 0.7))

	synthesis := NewThought(tier.Deliberate, "disk exhaustion likely within days", TypeInsight, "synthesis")
	require.NoError(t, m.ConcludeStream(s.ID, synthesis))

	m.CleanupOldThoughts(30 * time.Minute)
	assert.Nil(t, m.GetStream(s.ID))
	assert.NotNil(t, m.GetThought(synthesis.ID), "synthesis outlives its stream")
	assert.Equal(t, 0, m.Counters().Streams)
}

func TestSnapshotsAreCopies(t *testing.T) {
	m := New("agent-1")
	s := m.AddThought(obsThought("snapshot isolation check", 0.7))

	s.Thoughts[0].Content = "mutated"
	s.Status = StreamConcluded

	inside := m.GetStream(s.ID)
	assert.Equal(t, "snapshot isolation check", inside.Thoughts[0].Content)
	assert.Equal(t, StreamActive, inside.Status)
}

func TestCounters(t *testing.T) {
	m := New("agent-1")
	m.AddThought(obsThought("alpha metric anomaly", 0.7))
	m.HoldInsight(obsThought("held hunch", 0.3))
	m.PrepareToShare(obsThought("ready claim", 0.8))

	c := m.Counters()
	assert.Equal(t, 3, c.ActiveThoughts)
	assert.Equal(t, 1, c.HeldInsights)
	assert.Equal(t, 1, c.ReadyToShare)
}
