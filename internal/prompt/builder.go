// Package prompt assembles plain-text prompts whose depth scales with the
// cognitive tier: a reflex prompt is two lines of identity and stimulus, a
// comprehensive prompt carries the full profile, gathered context, and a
// structured question template. Identity rendering is deterministic for a
// given profile.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/normanking/cogito/internal/agent"
	"github.com/normanking/cogito/internal/logging"
	"github.com/normanking/cogito/internal/mind"
	"github.com/normanking/cogito/internal/tier"
)

// charsPerToken is the truncation heuristic: context budgets are given in
// tokens, context text is measured in characters.
const charsPerToken = 4

// truncationSuffix marks context that was cut to fit the tier budget.
const truncationSuffix = "...[truncated]"

// maxPriorThoughts bounds how many earlier thoughts a prompt replays.
const maxPriorThoughts = 3

// defaultMaxWorkingTurns bounds how many recent conversation turns a
// prompt carries as working memory.
const defaultMaxWorkingTurns = 20

// MemoryContextProvider supplies remembered context for a tier and topic.
// Persistence is external; the builder only consumes the interface.
type MemoryContextProvider interface {
	GetContextForTier(ctx context.Context, t tier.CognitiveTier, topic string) (string, error)
}

// Context is the enumerated bag of optional context a caller may supply.
// Unknown context never reaches a prompt; these fields are the whole
// surface.
type Context struct {
	RecentTurns    []string
	RelevantMemory string
	PriorThoughts  []mind.Thought
	Patterns       string
	Relationships  string
	ProjectHistory string
	StreamTopic    string
	ThoughtCount   int
}

// Builder renders prompts for one agent profile.
type Builder struct {
	profile         *agent.Profile
	memory          MemoryContextProvider
	maxWorkingTurns int
	log             zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMemory wires a memory provider; deliberate and deeper prompts pull
// remembered context from it when the caller supplied none.
func WithMemory(provider MemoryContextProvider) Option {
	return func(b *Builder) { b.memory = provider }
}

// WithMaxWorkingTurns overrides how many recent conversation turns prompts
// carry. Non-positive values keep the default.
func WithMaxWorkingTurns(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxWorkingTurns = n
		}
	}
}

// NewBuilder creates a prompt builder for the given profile.
func NewBuilder(profile *agent.Profile, opts ...Option) *Builder {
	b := &Builder{
		profile:         profile,
		maxWorkingTurns: defaultMaxWorkingTurns,
		log:             logging.Component("prompt"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders the prompt for one tier run.
func (b *Builder) Build(ctx context.Context, t tier.CognitiveTier, stimulus string, pctx Context) string {
	if pctx.RelevantMemory == "" && b.memory != nil && t >= tier.Deliberate {
		memory, err := b.memory.GetContextForTier(ctx, t, mind.ExtractTopic(stimulus))
		if err != nil {
			b.log.Warn().Err(err).Str("tier", t.String()).Msg("memory context unavailable")
		} else {
			pctx.RelevantMemory = memory
		}
	}

	switch t {
	case tier.Reflex:
		return b.buildReflex(stimulus)
	case tier.Reactive:
		return b.buildReactive(stimulus, pctx)
	case tier.Deliberate:
		return b.buildDeliberate(stimulus, pctx)
	case tier.Analytical:
		return b.buildAnalytical(stimulus, pctx, false)
	case tier.Comprehensive:
		return b.buildAnalytical(stimulus, pctx, true)
	default:
		return b.buildReflex(stimulus)
	}
}

func (b *Builder) buildReflex(stimulus string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a %s.\n\n", b.profile.Name, b.profile.Role)
	fmt.Fprintf(&sb, "SITUATION: %s\n\n", stimulus)
	sb.WriteString("IMMEDIATE REACTION (one brief thought):")
	return sb.String()
}

func (b *Builder) buildReactive(stimulus string, pctx Context) string {
	p := b.profile
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a %s.\n", p.Name, p.Role)
	if skills := p.TopSkills(3); len(skills) > 0 {
		names := make([]string, len(skills))
		for i, s := range skills {
			names[i] = s.Name
		}
		fmt.Fprintf(&sb, "Your strongest skills: %s.\n", strings.Join(names, ", "))
	}
	sb.WriteString("\n")

	if turns := lastTurns(pctx.RecentTurns, b.maxWorkingTurns); len(turns) > 0 {
		sb.WriteString("RECENT CONVERSATION:\n")
		sb.WriteString(b.truncate(strings.Join(turns, "\n"), tier.Reactive))
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "SITUATION: %s\n\n", stimulus)
	sb.WriteString("Your quick assessment (2-3 sentences):")
	return sb.String()
}

func (b *Builder) buildDeliberate(stimulus string, pctx Context) string {
	var sb strings.Builder
	sb.WriteString(b.fullIdentity())
	sb.WriteString(b.socialStyle())
	b.writeContextSections(&sb, tier.Deliberate, pctx, false)

	fmt.Fprintf(&sb, "SITUATION: %s\n\n", stimulus)
	sb.WriteString("Provide your considered thoughts:")
	return sb.String()
}

func (b *Builder) buildAnalytical(stimulus string, pctx Context, comprehensive bool) string {
	t := tier.Analytical
	if comprehensive {
		t = tier.Comprehensive
	}

	var sb strings.Builder
	sb.WriteString(b.fullIdentity())
	sb.WriteString(b.socialStyle())
	if comprehensive {
		sb.WriteString(b.personalityStyle())
	}
	b.writeContextSections(&sb, t, pctx, true)

	fmt.Fprintf(&sb, "SITUATION: %s\n\n", stimulus)

	if comprehensive {
		sb.WriteString("Work through the situation comprehensively:\n")
		sb.WriteString("1. What exactly is happening, and what is the evidence?\n")
		sb.WriteString("2. What are the plausible causes, and which is most likely?\n")
		sb.WriteString("3. What are the options, with their tradeoffs?\n")
		sb.WriteString("4. What do you recommend, and why?\n")
		sb.WriteString("5. What are the risks of that recommendation?\n")
		sb.WriteString("6. Who are the stakeholders, and how does this affect each?\n")
		sb.WriteString("7. What are the concrete next steps, in order?")
		return sb.String()
	}

	sb.WriteString("Analyze the situation:\n")
	sb.WriteString("1. What exactly is happening, and what is the evidence?\n")
	sb.WriteString("2. What are the plausible causes, and which is most likely?\n")
	sb.WriteString("3. What are the options, with their tradeoffs?\n")
	sb.WriteString("4. What do you recommend, and why?\n")
	sb.WriteString("5. What are the risks of that recommendation?")
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// SECTIONS
// ─────────────────────────────────────────────────────────────────────────────

// fullIdentity renders the deep identity block: name, role, experience,
// top-5 skills with levels, backstory, knowledge domains, and
// communication style.
func (b *Builder) fullIdentity() string {
	p := b.profile
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, a %s", p.Name, p.Role)
	if p.YearsExperience > 0 {
		fmt.Fprintf(&sb, " with %d years of experience", p.YearsExperience)
	}
	sb.WriteString(".\n")

	if p.BackstorySummary != "" {
		fmt.Fprintf(&sb, "Background: %s\n", p.BackstorySummary)
	}
	if skills := p.TopSkills(5); len(skills) > 0 {
		parts := make([]string, len(skills))
		for i, s := range skills {
			parts[i] = fmt.Sprintf("%s (%d/10)", s.Name, s.Level)
		}
		fmt.Fprintf(&sb, "Key skills: %s.\n", strings.Join(parts, ", "))
	}
	if len(p.KnowledgeDomains) > 0 {
		fmt.Fprintf(&sb, "Knowledge domains: %s.\n", strings.Join(p.KnowledgeDomains, ", "))
	}
	fmt.Fprintf(&sb, "You communicate with %s vocabulary", p.CommunicationStyle.VocabularyLevel)
	if p.CommunicationStyle.SentenceStructure != "" {
		fmt.Fprintf(&sb, ", %s sentences", p.CommunicationStyle.SentenceStructure)
	}
	if p.CommunicationStyle.Formality != "" {
		fmt.Fprintf(&sb, ", %s in tone", p.CommunicationStyle.Formality)
	}
	sb.WriteString(".\n\n")
	return sb.String()
}

// socialStyle summarizes the markers that shape how the agent engages.
func (b *Builder) socialStyle() string {
	s := b.profile.SocialMarkers
	return fmt.Sprintf(
		"Social style: confidence %d/10, assertiveness %d/10, curiosity %d/10, deference %d/10.\n\n",
		s.Confidence, s.Assertiveness, s.Curiosity, s.Deference)
}

// personalityStyle summarizes the personality axes; only the deepest tier
// carries it.
func (b *Builder) personalityStyle() string {
	p := b.profile.PersonalityMarkers
	return fmt.Sprintf(
		"Personality: openness %d/10, conscientiousness %d/10, pragmatism %d/10, risk tolerance %d/10, perfectionism %d/10.\n\n",
		p.Openness, p.Conscientiousness, p.Pragmatism, p.RiskTolerance, p.Perfectionism)
}

// writeContextSections renders the optional context blocks. Analytical and
// deeper tiers also include patterns, relationships, and project history.
func (b *Builder) writeContextSections(sb *strings.Builder, t tier.CognitiveTier, pctx Context, deep bool) {
	if pctx.StreamTopic != "" {
		fmt.Fprintf(sb, "ONGOING THREAD: %s (%d thoughts so far)\n\n", pctx.StreamTopic, pctx.ThoughtCount)
	}
	if pctx.RelevantMemory != "" {
		fmt.Fprintf(sb, "RELEVANT MEMORY:\n%s\n\n", b.truncate(pctx.RelevantMemory, t))
	}
	if deep {
		if pctx.Patterns != "" {
			fmt.Fprintf(sb, "OBSERVED PATTERNS:\n%s\n\n", b.truncate(pctx.Patterns, t))
		}
		if pctx.Relationships != "" {
			fmt.Fprintf(sb, "RELATIONSHIPS:\n%s\n\n", b.truncate(pctx.Relationships, t))
		}
		if pctx.ProjectHistory != "" {
			fmt.Fprintf(sb, "PROJECT HISTORY:\n%s\n\n", b.truncate(pctx.ProjectHistory, t))
		}
	}
	if len(pctx.PriorThoughts) > 0 {
		sb.WriteString("YOUR PRIOR THOUGHTS:\n")
		sb.WriteString(FormatPriorThoughts(pctx.PriorThoughts))
		sb.WriteString("\n")
	}
}

// truncate cuts text to the tier's context budget, marking the cut. Cuts
// land on rune boundaries so multi-byte text never ends in a partial rune.
func (b *Builder) truncate(text string, t tier.CognitiveTier) string {
	limit := tier.Get(t).MaxContextTokens * charsPerToken
	if len(text) <= limit {
		return text
	}
	if limit <= len(truncationSuffix) {
		return text[:runeBoundary(text, limit)]
	}
	return text[:runeBoundary(text, limit-len(truncationSuffix))] + truncationSuffix
}

// runeBoundary backs a byte index up to the start of the rune it falls in.
func runeBoundary(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// lastTurns keeps the most recent n turns.
func lastTurns(turns []string, n int) []string {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// FormatPriorThoughts renders the last few thoughts as a bullet list.
func FormatPriorThoughts(thoughts []mind.Thought) string {
	if len(thoughts) > maxPriorThoughts {
		thoughts = thoughts[len(thoughts)-maxPriorThoughts:]
	}
	var sb strings.Builder
	for _, t := range thoughts {
		fmt.Fprintf(&sb, "- [%s] %s\n", strings.ToLower(string(t.Type)), t.Content)
	}
	return sb.String()
}
