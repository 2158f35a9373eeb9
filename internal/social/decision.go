package social

// Intent is how strongly the agent should engage.
type Intent string

const (
	IntentMustRespond       Intent = "MUST_RESPOND"
	IntentShouldContribute  Intent = "SHOULD_CONTRIBUTE"
	IntentMayContribute     Intent = "MAY_CONTRIBUTE"
	IntentActiveListen      Intent = "ACTIVE_LISTEN"
	IntentPassiveAwareness  Intent = "PASSIVE_AWARENESS"
)

// ContributionType is the shape a contribution should take.
type ContributionType string

const (
	ContributionResponse     ContributionType = "RESPONSE"
	ContributionStatement    ContributionType = "STATEMENT"
	ContributionQuestion     ContributionType = "QUESTION"
	ContributionFacilitation ContributionType = "FACILITATION"
	ContributionChallenge    ContributionType = "CHALLENGE"
)

// Timing is when the contribution should land.
type Timing string

const (
	TimingImmediate    Timing = "IMMEDIATE"
	TimingNaturalPause Timing = "NATURAL_PAUSE"
	TimingWhenAsked    Timing = "WHEN_ASKED"
)

// Decision is the verdict of the externalization pipeline. Factors carries
// the intermediate quantities for observability.
type Decision struct {
	Intent           Intent             `json:"intent"`
	Confidence       float64            `json:"confidence"`
	Reason           string             `json:"reason"`
	ContributionType ContributionType   `json:"contribution_type,omitempty"`
	Timing           Timing             `json:"timing,omitempty"`
	Factors          map[string]float64 `json:"factors,omitempty"`
}
