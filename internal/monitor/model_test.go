package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/engine"
	"github.com/normanking/cogito/internal/inference"
)

func testModel(t *testing.T) (Model, *engine.Engine, chan bus.Event) {
	t.Helper()
	profile := &agent.Profile{
		AgentID:            "agent-1",
		Name:               "Rivera",
		Role:               "backend engineer",
		CommunicationStyle: agent.CommunicationStyle{VocabularyLevel: agent.VocabModerate},
	}
	eng, err := engine.New(profile, engine.Config{Mock: inference.MockConfig{Seed: 3}})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	events := make(chan bus.Event, 16)
	return NewModel(eng, events), eng, events
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func TestEventAppendsToFeed(t *testing.T) {
	m, _, _ := testModel(t)
	m = sized(m)

	ev := bus.NewEvent(bus.EventThoughtCreated)
	ev.Tier = "reactive"
	ev.Confidence = 0.7
	updated, cmd := m.Update(eventMsg(ev))
	m = updated.(Model)

	assert.NotNil(t, cmd, "keeps listening after an event")
	require.Len(t, m.lines, 1)
	assert.Contains(t, m.lines[0], "thought_created")
	assert.Contains(t, m.lines[0], "tier=reactive")
}

func TestPauseFreezesFeed(t *testing.T) {
	m, _, _ := testModel(t)
	m = sized(m)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m = updated.(Model)
	assert.True(t, m.paused)

	updated, _ = m.Update(eventMsg(bus.NewEvent(bus.EventThoughtCreated)))
	m = updated.(Model)
	assert.Empty(t, m.lines, "paused feed drops lines from display")
}

func TestFeedBounded(t *testing.T) {
	m, _, _ := testModel(t)
	m = sized(m)

	for i := 0; i < maxFeedLines+50; i++ {
		updated, _ := m.Update(eventMsg(bus.NewEvent(bus.EventThoughtCreated)))
		m = updated.(Model)
	}
	assert.Len(t, m.lines, maxFeedLines)
}

func TestSpinnerTracksInflight(t *testing.T) {
	m, _, _ := testModel(t)
	m = sized(m)

	updated, _ := m.Update(eventMsg(bus.NewEvent(bus.EventProcessStarted)))
	m = updated.(Model)
	assert.Equal(t, 1, m.inflight)

	updated, _ = m.Update(eventMsg(bus.NewEvent(bus.EventProcessCompleted)))
	m = updated.(Model)
	assert.Equal(t, 0, m.inflight)

	// Never goes negative.
	updated, _ = m.Update(eventMsg(bus.NewEvent(bus.EventProcessCompleted)))
	m = updated.(Model)
	assert.Equal(t, 0, m.inflight)
}

func TestQuitKey(t *testing.T) {
	m, _, _ := testModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewShowsEngineState(t *testing.T) {
	m, eng, _ := testModel(t)
	m = sized(m)

	_, err := eng.HandleStimulus(context.Background(),
		"the database migration is behind schedule", 0.5, 0.5, 0.8, nil)
	require.NoError(t, err)

	updated, _ := m.Update(statusTickMsg(time.Now()))
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "Rivera")
	assert.Contains(t, view, "Budget")
	assert.Contains(t, view, "Routing")
	assert.True(t, strings.Contains(view, "small") || strings.Contains(view, "medium") ||
		strings.Contains(view, "large"), "budget table lists model tiers")
}
