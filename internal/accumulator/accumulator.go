// Package accumulator feeds low-urgency observations into the mind and
// synthesizes thought streams that have accumulated enough material. A
// synthesis is one INSIGHT thought that supersedes its sources; depending
// on its confidence it is queued for sharing or held back.
package accumulator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/cognitive"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/prompt"
)

// Observation processing is deliberately unhurried.
const (
	observationUrgency    = 0.2
	observationComplexity = 0.3
)

// Synthesis runs at moderate urgency over known-relevant material.
const (
	synthesisUrgency    = 0.3
	synthesisComplexity = 0.6
	synthesisRelevance  = 0.8
)

// shareConfidence is the minimum synthesis confidence for immediate
// sharing; weaker insights are held.
const shareConfidence = 0.6

// minStreamThoughts is the smallest stream worth synthesizing.
const minStreamThoughts = 2

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithBus publishes synthesis events to the given bus.
func WithBus(b *bus.Bus) Option {
	return func(a *Accumulator) { a.bus = b }
}

// Accumulator connects one agent's processor and mind. It holds both
// without owning either.
type Accumulator struct {
	agentID   string
	processor *cognitive.Processor
	mind      *mind.Mind
	bus       *bus.Bus
	log       zerolog.Logger
}

// New creates an accumulator over an existing processor and mind.
func New(processor *cognitive.Processor, m *mind.Mind, opts ...Option) *Accumulator {
	agentID := processor.Profile().AgentID
	a := &Accumulator{
		agentID:   agentID,
		processor: processor,
		mind:      m,
		log:       logging.Component("accumulator").With().Str("agent_id", agentID).Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessObservation runs the stimulus at observation depth and files the
// primary thought into the mind. It returns nil without error when
// processing produced no thought.
func (a *Accumulator) ProcessObservation(ctx context.Context, stimulus string, relevance float64, pctx prompt.Context) (*mind.Thought, error) {
	result, err := a.processor.Process(ctx, stimulus,
		observationUrgency, observationComplexity, relevance, "observation", pctx)
	if err != nil {
		return nil, err
	}
	if result.PrimaryThought == nil {
		return nil, nil
	}

	thought := *result.PrimaryThought
	stream := a.mind.AddThought(thought)
	a.log.Debug().
		Str("thought_id", thought.ID).
		Str("stream_id", stream.ID).
		Str("topic", stream.Topic).
		Msg("observation filed")
	return &thought, nil
}

// SynthesizeStream combines a stream's thoughts into one INSIGHT thought
// that supersedes them. Streams below the minimum size return nil without
// error.
func (a *Accumulator) SynthesizeStream(ctx context.Context, streamID string) (*mind.Thought, error) {
	stream := a.mind.GetStream(streamID)
	if stream == nil {
		return nil, fmt.Errorf("accumulator: stream %s not found", streamID)
	}
	if stream.ThoughtCount() < minStreamThoughts {
		return nil, nil
	}

	result, err := a.processor.Process(ctx, synthesisPrompt(stream),
		synthesisUrgency, synthesisComplexity, synthesisRelevance, "synthesis",
		prompt.Context{
			PriorThoughts: stream.Thoughts,
			StreamTopic:   stream.Topic,
			ThoughtCount:  stream.ThoughtCount(),
		})
	if err != nil {
		return nil, fmt.Errorf("synthesis of stream %s failed: %w", streamID, err)
	}
	if result.PrimaryThought == nil {
		return nil, nil
	}

	insight := *result.PrimaryThought
	insight.Type = mind.TypeInsight
	insight.Trigger = "synthesis"

	if err := a.mind.ConcludeStream(streamID, insight); err != nil {
		return nil, err
	}
	if insight.Confidence > shareConfidence {
		a.mind.PrepareToShare(insight)
	} else {
		a.mind.HoldInsight(insight)
	}

	a.log.Info().
		Str("stream_id", streamID).
		Str("insight_id", insight.ID).
		Float64("confidence", insight.Confidence).
		Int("sources", stream.ThoughtCount()).
		Msg("stream synthesized")
	if a.bus != nil {
		ev := bus.NewEvent(bus.EventSynthesisCompleted)
		ev.AgentID = a.agentID
		ev.StreamID = streamID
		ev.ThoughtID = insight.ID
		ev.Topic = stream.Topic
		ev.Confidence = insight.Confidence
		ev.Count = stream.ThoughtCount()
		_ = a.bus.Publish(ev)
	}
	return &insight, nil
}

// CheckStreamsForSynthesis synthesizes every stream flagged as needing it
// and returns the successful syntheses. Individual failures are logged and
// skipped.
func (a *Accumulator) CheckStreamsForSynthesis(ctx context.Context) []mind.Thought {
	var out []mind.Thought
	for _, stream := range a.mind.GetStreamsNeedingSynthesis() {
		insight, err := a.SynthesizeStream(ctx, stream.ID)
		if err != nil {
			a.log.Warn().Err(err).Str("stream_id", stream.ID).Msg("synthesis failed")
			continue
		}
		if insight != nil {
			out = append(out, *insight)
		}
	}
	return out
}

// synthesisPrompt lists the stream's thoughts as material to combine.
func synthesisPrompt(stream *mind.ThoughtStream) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You have accumulated %d related thoughts about %q. "+
		"Synthesize them into one coherent insight:\n",
		stream.ThoughtCount(), stream.Topic)
	for _, t := range stream.Thoughts {
		fmt.Fprintf(&sb, "- %s (confidence %.2f)\n", t.Content, t.Confidence)
	}
	return sb.String()
}
