package mind

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/logging"
)

// Counters is an observability snapshot of the workspace.
type Counters struct {
	ActiveThoughts int `json:"active_thoughts"`
	Streams        int `json:"streams"`
	HeldInsights   int `json:"held_insights"`
	ReadyToShare   int `json:"ready_to_share"`
}

// Option configures a Mind.
type Option func(*Mind)

// WithBus publishes workspace events to the given bus.
func WithBus(b *bus.Bus) Option {
	return func(m *Mind) { m.bus = b }
}

// Mind is one agent's thought workspace. It exclusively owns its streams,
// loose thoughts, and queues; every accessor returns deep copies. One mutex
// serializes the owning agent's request path against the background loop.
type Mind struct {
	agentID string
	bus     *bus.Bus
	log     zerolog.Logger

	mu          sync.Mutex
	streams     map[string]*ThoughtStream
	streamOrder []string
	loose       map[string]*Thought // thoughts outside any stream (syntheses)
	streamOf    map[string]string   // thought ID -> owning stream ID
	held        []string            // thought IDs held back from sharing
	ready       []string            // thought IDs ready to externalize
}

// New creates an empty workspace for one agent.
func New(agentID string, opts ...Option) *Mind {
	m := &Mind{
		agentID:  agentID,
		log:      logging.Component("mind").With().Str("agent_id", agentID).Logger(),
		streams:  make(map[string]*ThoughtStream),
		loose:    make(map[string]*Thought),
		streamOf: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddThought files the thought into the first accepting stream with a
// related topic, creating a new stream when none matches, and re-evaluates
// the stream's synthesis trigger. It returns a copy of the owning stream.
func (m *Mind) AddThought(t Thought) *ThoughtStream {
	topic := ExtractTopic(t.Content)

	m.mu.Lock()
	defer m.mu.Unlock()

	stream := m.relatedStreamLocked(topic)
	if stream == nil {
		stream = newStream(topic)
		m.streams[stream.ID] = stream
		m.streamOrder = append(m.streamOrder, stream.ID)
		m.log.Debug().Str("stream_id", stream.ID).Str("topic", topic).Msg("stream opened")
	}

	// Link back to the most recent thoughts already in the stream.
	n := len(stream.Thoughts)
	start := n - maxRelatedThoughts
	if start < 0 {
		start = 0
	}
	t.RelatedThoughtIDs = nil
	for _, prior := range stream.Thoughts[start:] {
		t.RelatedThoughtIDs = append(t.RelatedThoughtIDs, prior.ID)
	}

	stream.Thoughts = append(stream.Thoughts, t)
	m.streamOf[t.ID] = stream.ID

	if stream.Status == StreamActive && stream.needsSynthesis() {
		stream.Status = StreamNeedsSynthesis
		m.log.Debug().
			Str("stream_id", stream.ID).
			Int("thoughts", stream.ThoughtCount()).
			Msg("stream ready for synthesis")
		m.publishStreamStatus(stream)
	}
	return stream.clone()
}

// HoldInsight keeps a thought in the workspace without queueing it for
// sharing.
func (m *Mind) HoldInsight(t Thought) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adoptLocked(t)
	m.held = appendUnique(m.held, t.ID)
}

// PrepareToShare queues a thought for externalization.
func (m *Mind) PrepareToShare(t Thought) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adoptLocked(t)
	m.ready = appendUnique(m.ready, t.ID)
}

// MarkExternalized flags the thought as shared and removes it from the
// ready queue. Repeated calls leave state unchanged after the first.
func (m *Mind) MarkExternalized(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.findLocked(id)
	if t == nil {
		return false
	}
	if !t.Externalized {
		t.Externalized = true
		now := time.Now()
		t.ExternalizedAt = &now
	}
	m.ready = removeID(m.ready, id)
	return true
}

// GetBestContribution returns a copy of the strongest still-relevant queued
// thought, ordered by completeness then confidence, or nil when nothing
// qualifies.
func (m *Mind) GetBestContribution() *Thought {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *Thought
	for _, id := range m.ready {
		t := m.findLocked(id)
		if t == nil || !t.StillRelevant {
			continue
		}
		if best == nil ||
			t.Completeness > best.Completeness ||
			(t.Completeness == best.Completeness && t.Confidence > best.Confidence) {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	out := best.clone()
	return &out
}

// InvalidateThoughtsAbout marks every live thought related to the topic as
// no longer relevant and drops it from the ready queue. It returns how many
// thoughts were newly invalidated, so repeated calls return zero.
func (m *Mind) InvalidateThoughtsAbout(topic string) int {
	normalized := ExtractTopic(topic)

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	invalidate := func(t *Thought) {
		if !t.StillRelevant || !TopicsRelated(ExtractTopic(t.Content), normalized) {
			return
		}
		t.StillRelevant = false
		m.ready = removeID(m.ready, t.ID)
		count++
	}
	for _, sid := range m.streamOrder {
		stream := m.streams[sid]
		for i := range stream.Thoughts {
			invalidate(&stream.Thoughts[i])
		}
	}
	for _, t := range m.loose {
		invalidate(t)
	}

	if count > 0 {
		m.log.Info().Str("topic", normalized).Int("count", count).Msg("thoughts invalidated")
		if m.bus != nil {
			ev := bus.NewEvent(bus.EventThoughtsInvalidated)
			ev.AgentID = m.agentID
			ev.Topic = normalized
			ev.Count = count
			_ = m.bus.Publish(ev)
		}
	}
	return count
}

// ConcludeStream installs the synthesis as the stream's output, marks every
// source thought superseded, and keeps the synthesis as a loose thought.
// The caller decides whether the synthesis is held or shared.
func (m *Mind) ConcludeStream(streamID string, synthesis Thought) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, ok := m.streams[streamID]
	if !ok {
		return fmt.Errorf("mind: stream %s not found", streamID)
	}
	if stream.Status == StreamConcluded {
		return fmt.Errorf("mind: stream %s already concluded", streamID)
	}

	for i := range stream.Thoughts {
		stream.Thoughts[i].StillRelevant = false
		stream.Thoughts[i].SupersededBy = synthesis.ID
		m.ready = removeID(m.ready, stream.Thoughts[i].ID)
	}

	syn := synthesis.clone()
	stream.SynthesizedOutput = &syn
	stream.ReadyToExternalize = true
	stream.Status = StreamConcluded
	m.adoptLocked(synthesis)

	m.log.Info().
		Str("stream_id", streamID).
		Str("synthesis_id", synthesis.ID).
		Int("sources", stream.ThoughtCount()).
		Msg("stream concluded")
	m.publishStreamStatus(stream)
	return nil
}

// AbandonStream drops an active or paused stream from consideration.
func (m *Mind) AbandonStream(streamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, ok := m.streams[streamID]
	if !ok {
		return fmt.Errorf("mind: stream %s not found", streamID)
	}
	if !stream.accepting() {
		return fmt.Errorf("mind: stream %s is %s, cannot abandon", streamID, stream.Status)
	}
	stream.Status = StreamAbandoned
	m.publishStreamStatus(stream)
	return nil
}

// GetStreamsNeedingSynthesis returns copies of streams awaiting synthesis,
// oldest first.
func (m *Mind) GetStreamsNeedingSynthesis() []*ThoughtStream {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*ThoughtStream
	for _, sid := range m.streamOrder {
		if s := m.streams[sid]; s.Status == StreamNeedsSynthesis {
			out = append(out, s.clone())
		}
	}
	return out
}

// GetStreamForTopic returns a copy of the first stream related to the
// topic, or nil.
func (m *Mind) GetStreamForTopic(topic string) *ThoughtStream {
	normalized := ExtractTopic(topic)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sid := range m.streamOrder {
		if s := m.streams[sid]; TopicsRelated(s.Topic, normalized) {
			return s.clone()
		}
	}
	return nil
}

// GetStream returns a copy of the stream with the given ID, or nil.
func (m *Mind) GetStream(id string) *ThoughtStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streams[id]; ok {
		return s.clone()
	}
	return nil
}

// GetThought returns a copy of the live thought with the given ID, or nil.
func (m *Mind) GetThought(id string) *Thought {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.findLocked(id); t != nil {
		out := t.clone()
		return &out
	}
	return nil
}

// ReadyToShare returns copies of the queued still-relevant thoughts in
// queue order.
func (m *Mind) ReadyToShare() []Thought {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectLocked(m.ready)
}

// HeldInsights returns copies of the held thoughts in queue order.
func (m *Mind) HeldInsights() []Thought {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectLocked(m.held)
}

// CleanupOldThoughts prunes the workspace: non-externalized thoughts older
// than maxAge, concluded streams, and empty abandoned streams older than
// maxAge. It returns how many thoughts were dropped.
func (m *Mind) CleanupOldThoughts(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	keepOrder := m.streamOrder[:0]
	for _, sid := range m.streamOrder {
		stream := m.streams[sid]

		switch {
		case stream.Status == StreamConcluded:
			dropped += m.dropStreamLocked(stream)
			continue
		case stream.Status == StreamAbandoned &&
			stream.ThoughtCount() == 0 && stream.CreatedAt.Before(cutoff):
			delete(m.streams, sid)
			continue
		}

		kept := stream.Thoughts[:0]
		for _, t := range stream.Thoughts {
			if !t.Externalized && t.CreatedAt.Before(cutoff) {
				m.forgetLocked(t.ID)
				dropped++
				continue
			}
			kept = append(kept, t)
		}
		stream.Thoughts = kept
		keepOrder = append(keepOrder, sid)
	}
	m.streamOrder = append([]string(nil), keepOrder...)

	for id, t := range m.loose {
		if !t.Externalized && t.CreatedAt.Before(cutoff) {
			delete(m.loose, id)
			m.held = removeID(m.held, id)
			m.ready = removeID(m.ready, id)
			dropped++
		}
	}

	if dropped > 0 {
		m.log.Info().Int("dropped", dropped).Msg("old thoughts cleaned up")
		if m.bus != nil {
			ev := bus.NewEvent(bus.EventCleanupCompleted)
			ev.AgentID = m.agentID
			ev.Count = dropped
			_ = m.bus.Publish(ev)
		}
	}
	return dropped
}

// Counters returns current workspace sizes.
func (m *Mind) Counters() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := len(m.loose)
	for _, s := range m.streams {
		active += s.ThoughtCount()
	}
	return Counters{
		ActiveThoughts: active,
		Streams:        len(m.streams),
		HeldInsights:   len(m.held),
		ReadyToShare:   len(m.ready),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// INTERNAL
// ─────────────────────────────────────────────────────────────────────────────

// relatedStreamLocked returns the first accepting stream whose topic shares
// a word with the given topic, in creation order. Caller holds m.mu.
func (m *Mind) relatedStreamLocked(topic string) *ThoughtStream {
	for _, sid := range m.streamOrder {
		s := m.streams[sid]
		if s.accepting() && TopicsRelated(s.Topic, topic) {
			return s
		}
	}
	return nil
}

// adoptLocked ensures a thought not belonging to any stream is tracked as a
// loose thought. Caller holds m.mu.
func (m *Mind) adoptLocked(t Thought) {
	if _, inStream := m.streamOf[t.ID]; inStream {
		return
	}
	if _, ok := m.loose[t.ID]; ok {
		return
	}
	owned := t.clone()
	m.loose[t.ID] = &owned
}

// findLocked returns the canonical live thought, wherever it is stored.
// The pointer is only valid while m.mu is held. Caller holds m.mu.
func (m *Mind) findLocked(id string) *Thought {
	if sid, ok := m.streamOf[id]; ok {
		if stream, ok := m.streams[sid]; ok {
			for i := range stream.Thoughts {
				if stream.Thoughts[i].ID == id {
					return &stream.Thoughts[i]
				}
			}
		}
	}
	return m.loose[id]
}

// collectLocked resolves a queue of IDs into thought copies. Caller holds
// m.mu.
func (m *Mind) collectLocked(ids []string) []Thought {
	out := make([]Thought, 0, len(ids))
	for _, id := range ids {
		if t := m.findLocked(id); t != nil {
			out = append(out, t.clone())
		}
	}
	return out
}

// dropStreamLocked removes a stream and all bookkeeping for its thoughts,
// returning how many thoughts went with it. Caller holds m.mu.
func (m *Mind) dropStreamLocked(stream *ThoughtStream) int {
	for _, t := range stream.Thoughts {
		m.forgetLocked(t.ID)
	}
	delete(m.streams, stream.ID)
	return stream.ThoughtCount()
}

// forgetLocked erases queue and index entries for one thought ID. Caller
// holds m.mu.
func (m *Mind) forgetLocked(id string) {
	delete(m.streamOf, id)
	m.held = removeID(m.held, id)
	m.ready = removeID(m.ready, id)
}

func (m *Mind) publishStreamStatus(stream *ThoughtStream) {
	if m.bus == nil {
		return
	}
	ev := bus.NewEvent(bus.EventStreamStatus)
	ev.AgentID = m.agentID
	ev.StreamID = stream.ID
	ev.Topic = stream.Topic
	ev.Reason = string(stream.Status)
	ev.Count = stream.ThoughtCount()
	_ = m.bus.Publish(ev)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
