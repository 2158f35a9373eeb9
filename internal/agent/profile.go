// Package agent defines the agent identity the engine consumes. The profile
// is a read-only value owned by the caller; the engine never mutates or
// persists it. A YAML loader with boundary validation ships alongside so the
// CLI and tests can construct profiles from files.
package agent

import (
	"sort"
	"strings"
)

// Profile describes one agent: who it is, what it knows, and how it carries
// itself socially. All marker axes run 0-10.
type Profile struct {
	AgentID          string `yaml:"agent_id" json:"agent_id"`
	Name             string `yaml:"name" json:"name"`
	Role             string `yaml:"role" json:"role"`
	BackstorySummary string `yaml:"backstory_summary" json:"backstory_summary"`
	YearsExperience  int    `yaml:"years_experience,omitempty" json:"years_experience,omitempty"`

	Skills             Skills             `yaml:"skills" json:"skills"`
	PersonalityMarkers PersonalityMarkers `yaml:"personality_markers" json:"personality_markers"`
	SocialMarkers      SocialMarkers      `yaml:"social_markers" json:"social_markers"`
	CommunicationStyle CommunicationStyle `yaml:"communication_style" json:"communication_style"`

	KnowledgeDomains []string `yaml:"knowledge_domains" json:"knowledge_domains"`
	KnowledgeGaps    []string `yaml:"knowledge_gaps" json:"knowledge_gaps"`
}

// Skills groups the agent's abilities by kind. Each skill maps name to a
// 0-10 level.
type Skills struct {
	Technical map[string]int `yaml:"technical" json:"technical"`
	Domains   map[string]int `yaml:"domains" json:"domains"`
	Soft      map[string]int `yaml:"soft" json:"soft"`
}

// PersonalityMarkers are the eight personality axes, 0-10.
type PersonalityMarkers struct {
	Openness          int `yaml:"openness" json:"openness"`
	Conscientiousness int `yaml:"conscientiousness" json:"conscientiousness"`
	Extraversion      int `yaml:"extraversion" json:"extraversion"`
	Agreeableness     int `yaml:"agreeableness" json:"agreeableness"`
	Neuroticism       int `yaml:"neuroticism" json:"neuroticism"`
	Perfectionism     int `yaml:"perfectionism" json:"perfectionism"`
	Pragmatism        int `yaml:"pragmatism" json:"pragmatism"`
	RiskTolerance     int `yaml:"risk_tolerance" json:"risk_tolerance"`
}

// SocialMarkers are the nine social-behavior axes, 0-10.
type SocialMarkers struct {
	Confidence           int `yaml:"confidence" json:"confidence"`
	Assertiveness        int `yaml:"assertiveness" json:"assertiveness"`
	Deference            int `yaml:"deference" json:"deference"`
	Curiosity            int `yaml:"curiosity" json:"curiosity"`
	SocialCalibration    int `yaml:"social_calibration" json:"social_calibration"`
	StatusSensitivity    int `yaml:"status_sensitivity" json:"status_sensitivity"`
	FacilitationInstinct int `yaml:"facilitation_instinct" json:"facilitation_instinct"`
	ComfortInSpotlight   int `yaml:"comfort_in_spotlight" json:"comfort_in_spotlight"`
	ComfortWithConflict  int `yaml:"comfort_with_conflict" json:"comfort_with_conflict"`
}

// VocabularyLevel is how technical the agent's word choice runs.
type VocabularyLevel string

const (
	VocabSimple    VocabularyLevel = "simple"
	VocabModerate  VocabularyLevel = "moderate"
	VocabTechnical VocabularyLevel = "technical"
	VocabAcademic  VocabularyLevel = "academic"
)

// Valid reports whether v is a defined vocabulary level.
func (v VocabularyLevel) Valid() bool {
	switch v {
	case VocabSimple, VocabModerate, VocabTechnical, VocabAcademic:
		return true
	}
	return false
}

// CommunicationStyle describes how the agent expresses itself.
type CommunicationStyle struct {
	VocabularyLevel   VocabularyLevel `yaml:"vocabulary_level" json:"vocabulary_level"`
	SentenceStructure string          `yaml:"sentence_structure" json:"sentence_structure"`
	Formality         string          `yaml:"formality" json:"formality"`
	Quirks            []string        `yaml:"quirks,omitempty" json:"quirks,omitempty"`
}

// Skill is one named ability with its level.
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// AllSkills returns every skill across the three kinds, highest level first.
// Names are lowercased; ties break alphabetically so the order is stable.
func (p *Profile) AllSkills() []Skill {
	var out []Skill
	for _, group := range []map[string]int{p.Skills.Technical, p.Skills.Domains, p.Skills.Soft} {
		for name, level := range group {
			out = append(out, Skill{Name: strings.ToLower(name), Level: level})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopSkills returns up to n of the agent's strongest skills.
func (p *Profile) TopSkills(n int) []Skill {
	all := p.AllSkills()
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	out := *p
	out.Skills = Skills{
		Technical: cloneIntMap(p.Skills.Technical),
		Domains:   cloneIntMap(p.Skills.Domains),
		Soft:      cloneIntMap(p.Skills.Soft),
	}
	out.CommunicationStyle.Quirks = append([]string(nil), p.CommunicationStyle.Quirks...)
	out.KnowledgeDomains = append([]string(nil), p.KnowledgeDomains...)
	out.KnowledgeGaps = append([]string(nil), p.KnowledgeGaps...)
	return &out
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
