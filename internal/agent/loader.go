package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads and validates a profile from a YAML file. Leading ~ is
// expanded to the user's home directory.
func LoadProfile(path string) (*Profile, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return LoadProfileYAML(data)
}

// LoadProfileYAML parses and validates YAML profile data. This is the
// validation boundary: packages past it assume the profile is complete.
func LoadProfileYAML(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

// Validate checks required fields and ranges.
func (p *Profile) Validate() error {
	if p.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Role == "" {
		return fmt.Errorf("role is required")
	}
	if p.CommunicationStyle.VocabularyLevel == "" {
		p.CommunicationStyle.VocabularyLevel = VocabModerate
	}
	if !p.CommunicationStyle.VocabularyLevel.Valid() {
		return fmt.Errorf("invalid vocabulary_level %q (valid: simple, moderate, technical, academic)",
			p.CommunicationStyle.VocabularyLevel)
	}
	for kind, group := range map[string]map[string]int{
		"technical": p.Skills.Technical,
		"domains":   p.Skills.Domains,
		"soft":      p.Skills.Soft,
	} {
		for name, level := range group {
			if level < 0 || level > 10 {
				return fmt.Errorf("skills.%s.%s level %d out of range 0-10", kind, name, level)
			}
		}
	}
	for name, v := range map[string]int{
		"openness":              p.PersonalityMarkers.Openness,
		"conscientiousness":     p.PersonalityMarkers.Conscientiousness,
		"extraversion":          p.PersonalityMarkers.Extraversion,
		"agreeableness":         p.PersonalityMarkers.Agreeableness,
		"neuroticism":           p.PersonalityMarkers.Neuroticism,
		"perfectionism":         p.PersonalityMarkers.Perfectionism,
		"pragmatism":            p.PersonalityMarkers.Pragmatism,
		"risk_tolerance":        p.PersonalityMarkers.RiskTolerance,
		"confidence":            p.SocialMarkers.Confidence,
		"assertiveness":         p.SocialMarkers.Assertiveness,
		"deference":             p.SocialMarkers.Deference,
		"curiosity":             p.SocialMarkers.Curiosity,
		"social_calibration":    p.SocialMarkers.SocialCalibration,
		"status_sensitivity":    p.SocialMarkers.StatusSensitivity,
		"facilitation_instinct": p.SocialMarkers.FacilitationInstinct,
		"comfort_in_spotlight":  p.SocialMarkers.ComfortInSpotlight,
		"comfort_with_conflict": p.SocialMarkers.ComfortWithConflict,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("marker %s value %d out of range 0-10", name, v)
		}
	}
	return nil
}
