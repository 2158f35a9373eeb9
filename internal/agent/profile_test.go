package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *Profile {
	return &Profile{
		AgentID:          "agent-1",
		Name:             "Rivera",
		Role:             "backend engineer",
		BackstorySummary: "Ten years building data pipelines.",
		YearsExperience:  10,
		Skills: Skills{
			Technical: map[string]int{"python": 9, "go": 7, "sql": 8},
			Domains:   map[string]int{"databases": 8},
			Soft:      map[string]int{"mentoring": 6},
		},
		SocialMarkers: SocialMarkers{
			Confidence:          7,
			Assertiveness:       6,
			Curiosity:           8,
			ComfortWithConflict: 5,
		},
		CommunicationStyle: CommunicationStyle{
			VocabularyLevel:   VocabTechnical,
			SentenceStructure: "direct",
			Formality:         "casual",
		},
		KnowledgeDomains: []string{"data infrastructure", "reliability"},
		KnowledgeGaps:    []string{"frontend"},
	}
}

func TestAllSkillsOrdering(t *testing.T) {
	p := testProfile()
	skills := p.AllSkills()
	require.Len(t, skills, 5)

	assert.Equal(t, Skill{Name: "python", Level: 9}, skills[0])
	// Equal levels break alphabetically.
	assert.Equal(t, "databases", skills[1].Name)
	assert.Equal(t, "sql", skills[2].Name)
}

func TestTopSkillsTruncates(t *testing.T) {
	p := testProfile()
	assert.Len(t, p.TopSkills(3), 3)
	assert.Len(t, p.TopSkills(100), 5)
}

func TestCloneIsDeep(t *testing.T) {
	p := testProfile()
	c := p.Clone()

	c.Skills.Technical["python"] = 1
	c.KnowledgeDomains[0] = "changed"

	assert.Equal(t, 9, p.Skills.Technical["python"])
	assert.Equal(t, "data infrastructure", p.KnowledgeDomains[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{"valid", func(p *Profile) {}, ""},
		{"missing id", func(p *Profile) { p.AgentID = "" }, "agent_id"},
		{"missing name", func(p *Profile) { p.Name = "" }, "name"},
		{"missing role", func(p *Profile) { p.Role = "" }, "role"},
		{"bad vocabulary", func(p *Profile) { p.CommunicationStyle.VocabularyLevel = "verbose" }, "vocabulary_level"},
		{"skill out of range", func(p *Profile) { p.Skills.Technical["python"] = 11 }, "out of range"},
		{"marker out of range", func(p *Profile) { p.SocialMarkers.Curiosity = -1 }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateDefaultsVocabulary(t *testing.T) {
	p := testProfile()
	p.CommunicationStyle.VocabularyLevel = ""
	require.NoError(t, p.Validate())
	assert.Equal(t, VocabModerate, p.CommunicationStyle.VocabularyLevel)
}

func TestLoadProfileYAML(t *testing.T) {
	data := []byte(`
agent_id: agent-2
name: Kim
role: data analyst
skills:
  technical:
    sql: 8
social_markers:
  curiosity: 9
communication_style:
  vocabulary_level: simple
`)
	p, err := LoadProfileYAML(data)
	require.NoError(t, err)
	assert.Equal(t, "agent-2", p.AgentID)
	assert.Equal(t, 8, p.Skills.Technical["sql"])
	assert.Equal(t, 9, p.SocialMarkers.Curiosity)
	assert.Equal(t, VocabSimple, p.CommunicationStyle.VocabularyLevel)
}

func TestLoadProfileYAMLRejectsInvalid(t *testing.T) {
	_, err := LoadProfileYAML([]byte("name: NoID\nrole: tester\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent_id")
}

func TestLoadProfileFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"agent_id: agent-3\nname: Sol\nrole: facilitator\n"), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "Sol", p.Name)

	_, err = LoadProfile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
