package mind

import (
	"time"

	"github.com/google/uuid"
)

// StreamStatus is the lifecycle state of a thought stream. Valid
// transitions: ACTIVE -> NEEDS_SYNTHESIS -> CONCLUDED, or ACTIVE ->
// ABANDONED. PAUSED streams still accept related thoughts.
type StreamStatus string

const (
	StreamActive         StreamStatus = "ACTIVE"
	StreamPaused         StreamStatus = "PAUSED"
	StreamNeedsSynthesis StreamStatus = "NEEDS_SYNTHESIS"
	StreamConcluded      StreamStatus = "CONCLUDED"
	StreamAbandoned      StreamStatus = "ABANDONED"
)

// ThoughtStream groups topically related thoughts until they are
// synthesized into one insight.
type ThoughtStream struct {
	ID                 string       `json:"id"`
	Topic              string       `json:"topic"`
	Thoughts           []Thought    `json:"thoughts"`
	Status             StreamStatus `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
	SynthesizedOutput  *Thought     `json:"synthesized_output,omitempty"`
	ReadyToExternalize bool         `json:"ready_to_externalize"`
}

func newStream(topic string) *ThoughtStream {
	return &ThoughtStream{
		ID:        uuid.NewString(),
		Topic:     topic,
		Status:    StreamActive,
		CreatedAt: time.Now(),
	}
}

// ThoughtCount returns the number of thoughts accumulated in the stream.
func (s *ThoughtStream) ThoughtCount() int {
	return len(s.Thoughts)
}

// AvgConfidence returns the mean confidence across the stream's thoughts,
// zero when empty.
func (s *ThoughtStream) AvgConfidence() float64 {
	if len(s.Thoughts) == 0 {
		return 0
	}
	var sum float64
	for _, t := range s.Thoughts {
		sum += t.Confidence
	}
	return sum / float64(len(s.Thoughts))
}

// AvgCompleteness returns the mean completeness across the stream's
// thoughts, zero when empty.
func (s *ThoughtStream) AvgCompleteness() float64 {
	if len(s.Thoughts) == 0 {
		return 0
	}
	var sum float64
	for _, t := range s.Thoughts {
		sum += t.Completeness
	}
	return sum / float64(len(s.Thoughts))
}

// TimeSpan returns the duration between the first and last thought.
func (s *ThoughtStream) TimeSpan() time.Duration {
	if len(s.Thoughts) < 2 {
		return 0
	}
	return s.Thoughts[len(s.Thoughts)-1].CreatedAt.Sub(s.Thoughts[0].CreatedAt)
}

// needsSynthesis reports whether the stream has accumulated enough to be
// worth combining: three thoughts outright, or two spread over more than
// thirty seconds with solid average confidence.
func (s *ThoughtStream) needsSynthesis() bool {
	if s.ThoughtCount() >= 3 {
		return true
	}
	return s.ThoughtCount() >= 2 && s.TimeSpan() > 30*time.Second && s.AvgConfidence() > 0.6
}

// accepting reports whether the stream may still receive thoughts.
func (s *ThoughtStream) accepting() bool {
	return s.Status == StreamActive || s.Status == StreamPaused
}

// clone returns a deep copy of the stream.
func (s *ThoughtStream) clone() *ThoughtStream {
	out := *s
	out.Thoughts = make([]Thought, len(s.Thoughts))
	for i, t := range s.Thoughts {
		out.Thoughts[i] = t.clone()
	}
	if s.SynthesizedOutput != nil {
		syn := s.SynthesizedOutput.clone()
		out.SynthesizedOutput = &syn
	}
	return &out
}
