package accumulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/budget"
	"github.com/normanking/cogito/internal/cognitive"
	"github.com/normanking/cogito/internal/inference"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/prompt"
	"github.com/normanking/cogito/internal/router"
	"github.com/normanking/cogito/internal/tier"
)

func newTestAccumulator(t *testing.T) (*Accumulator, *mind.Mind) {
	t.Helper()
	profile := &agent.Profile{
		AgentID: "agent-1",
		Name:    "Rivera",
		Role:    "backend engineer",
		CommunicationStyle: agent.CommunicationStyle{
			VocabularyLevel: agent.VocabTechnical,
		},
	}
	bm := budget.NewManager(budget.DefaultConfig())
	rt, err := router.New(bm, inference.NewMockSet(inference.MockConfig{Seed: 1}))
	require.NoError(t, err)
	proc := cognitive.NewProcessor(profile, rt, prompt.NewBuilder(profile))
	m := mind.New(profile.AgentID)
	return New(proc, m), m
}

// seedStream files three same-topic thoughts and returns the stream ID.
func seedStream(t *testing.T, m *mind.Mind) string {
	t.Helper()
	var streamID string
	for _, content := range []string{
		"database latency climbing since morning",
		"database pool near exhaustion",
		"database replica lag doubled",
	} {
		th := mind.NewThought(tier.Reactive, content, mind.TypeObservation, "observation")
		th.Confidence = 0.7
		th.Completeness = 0.5
		streamID = m.AddThought(th).ID
	}
	return streamID
}

func TestProcessObservationFilesThought(t *testing.T) {
	a, m := newTestAccumulator(t)

	thought, err := a.ProcessObservation(context.Background(),
		"deploy frequency dropped this sprint", 0.8, prompt.Context{})
	require.NoError(t, err)
	require.NotNil(t, thought)

	assert.Equal(t, "observation", thought.Trigger)
	assert.NotNil(t, m.GetThought(thought.ID), "primary thought landed in the mind")
	assert.Equal(t, 1, m.Counters().Streams)
}

func TestSynthesizeStream(t *testing.T) {
	a, m := newTestAccumulator(t)
	streamID := seedStream(t, m)

	require.Equal(t, mind.StreamNeedsSynthesis, m.GetStream(streamID).Status)

	insight, err := a.SynthesizeStream(context.Background(), streamID)
	require.NoError(t, err)
	require.NotNil(t, insight)

	assert.Equal(t, mind.TypeInsight, insight.Type)
	assert.Equal(t, "synthesis", insight.Trigger)

	stream := m.GetStream(streamID)
	assert.Equal(t, mind.StreamConcluded, stream.Status)
	assert.True(t, stream.ReadyToExternalize)
	require.NotNil(t, stream.SynthesizedOutput)
	assert.Equal(t, insight.ID, stream.SynthesizedOutput.ID)
	for _, src := range stream.Thoughts {
		assert.False(t, src.StillRelevant)
		assert.Equal(t, insight.ID, src.SupersededBy)
	}
}

func TestSynthesisConfidenceRoutesQueue(t *testing.T) {
	a, m := newTestAccumulator(t)
	streamID := seedStream(t, m)

	insight, err := a.SynthesizeStream(context.Background(), streamID)
	require.NoError(t, err)
	require.NotNil(t, insight)

	// Deliberate-tier synthesis over the clean mock response carries
	// confidence above the sharing bar.
	assert.Greater(t, insight.Confidence, shareConfidence)
	ready := m.ReadyToShare()
	require.Len(t, ready, 1)
	assert.Equal(t, insight.ID, ready[0].ID)
	assert.Empty(t, m.HeldInsights())
}

func TestSynthesizeStreamTooSmall(t *testing.T) {
	a, m := newTestAccumulator(t)
	th := mind.NewThought(tier.Reactive, "lone observation about caching", mind.TypeObservation, "observation")
	streamID := m.AddThought(th).ID

	insight, err := a.SynthesizeStream(context.Background(), streamID)
	require.NoError(t, err)
	assert.Nil(t, insight, "a single thought is not synthesized")
	assert.Equal(t, mind.StreamActive, m.GetStream(streamID).Status)
}

func TestSynthesizeStreamUnknown(t *testing.T) {
	a, _ := newTestAccumulator(t)
	_, err := a.SynthesizeStream(context.Background(), "missing")
	assert.Error(t, err)
}

func TestCheckStreamsForSynthesis(t *testing.T) {
	a, m := newTestAccumulator(t)
	streamID := seedStream(t, m)

	insights := a.CheckStreamsForSynthesis(context.Background())
	require.Len(t, insights, 1)
	assert.Equal(t, mind.TypeInsight, insights[0].Type)
	assert.Equal(t, mind.StreamConcluded, m.GetStream(streamID).Status)

	// Nothing left to synthesize.
	assert.Empty(t, a.CheckStreamsForSynthesis(context.Background()))
}
