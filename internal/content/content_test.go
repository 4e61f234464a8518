package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubicle/internal/game"
)

const scenarioYAML = `
id: cubicle-ally
module_id: posh
title: Your Cubicle Ally
setup: A Monday morning in an open-plan office.
max_steps: 6
starting_hp: 100
allow_early_resolution: true
rubric:
  goal: Practice safe, effective bystander intervention.
  key_concepts:
    - name the behavior
    - support the target
  few_shot_examples:
    - choice: I quietly check in with Claire.
      score: 85
      reasoning: Supports the target without escalating.
characters:
  - id: marcus
    persona: The office jokester who does not notice lines.
    role: instigator
    personality: loud, deflecting
  - id: claire
    persona: A focused engineer new to the team.
    role: target
    personality: reserved
entry_turn:
  situation: Marcus leans over the cubicle wall with another comment about Claire's outfit.
  turn_order: [marcus]
  directives:
    marcus: open with the joke
  reactions:
    - character_id: marcus
      dialogue: "Another fashion show today, huh?"
  choices_offered:
    - label: Check in with Claire
      valence: positive
    - label: Keep working
      valence: neutral
    - label: Laugh along
      valence: negative
`

const skillYAML = `
id: deflection
name: Deflection
description: Redirects criticism with humor.
prompt_injection: When challenged, deflect with a joke before engaging.
conflicts_with: [directness]
`

func writeContentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "skills"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "posh", "scenarios"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skills", "deflection.yaml"), []byte(skillYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posh", "scenarios", "cubicle-ally.yaml"), []byte(scenarioYAML), 0644))
	return dir
}

func TestLoadScenario(t *testing.T) {
	loader, err := NewLoader(writeContentDir(t))
	require.NoError(t, err)

	s, err := loader.LoadScenario("posh", "cubicle-ally")
	require.NoError(t, err)
	assert.Equal(t, "Your Cubicle Ally", s.Title)
	assert.Equal(t, 6, s.MaxSteps)
	assert.Len(t, s.Characters, 2)
	assert.Len(t, s.EntryTurn.ChoicesOffered, 3)

	// Second load comes from cache and returns the same parsed value.
	again, err := loader.LoadScenario("posh", "cubicle-ally")
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestLoadScenarioNotFound(t *testing.T) {
	loader, err := NewLoader(writeContentDir(t))
	require.NoError(t, err)

	_, err = loader.LoadScenario("posh", "missing")
	assert.ErrorIs(t, err, ErrScenarioNotFound)
	_, err = loader.LoadScenario("ghost-module", "cubicle-ally")
	assert.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestListScenarios(t *testing.T) {
	loader, err := NewLoader(writeContentDir(t))
	require.NoError(t, err)

	ids, err := loader.ListScenarios("posh")
	require.NoError(t, err)
	assert.Equal(t, []string{"cubicle-ally"}, ids)

	none, err := loader.ListScenarios("ghost-module")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestScenarioValidate(t *testing.T) {
	base := func() *Scenario {
		loader, err := NewLoader(writeContentDir(t))
		require.NoError(t, err)
		s, err := loader.LoadScenario("posh", "cubicle-ally")
		require.NoError(t, err)
		clone := *s
		return &clone
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})
	t.Run("missing id", func(t *testing.T) {
		s := base()
		s.ID = " "
		assert.Error(t, s.Validate())
	})
	t.Run("bad starting hp", func(t *testing.T) {
		s := base()
		s.StartingHP = 150
		assert.Error(t, s.Validate())
	})
	t.Run("inverted band", func(t *testing.T) {
		s := base()
		s.Scoring.Great = &game.Band{Min: 10, Max: 0}
		assert.Error(t, s.Validate())
	})
	t.Run("unknown entry character", func(t *testing.T) {
		s := base()
		s.EntryTurn.TurnOrder = []string{"nobody"}
		assert.Error(t, s.Validate())
	})
	t.Run("wrong choice count", func(t *testing.T) {
		s := base()
		s.EntryTurn.ChoicesOffered = s.EntryTurn.ChoicesOffered[:2]
		assert.Error(t, s.Validate())
	})
}

func TestScoringConfigDefaults(t *testing.T) {
	s := &Scenario{}
	cfg := s.ScoringConfig()
	assert.Equal(t, game.DefaultScoring(), cfg)

	s.Scoring.Bad = &game.Band{Min: -60, Max: -30}
	cfg = s.ScoringConfig()
	assert.Equal(t, game.Band{Min: -60, Max: -30}, cfg.Bad)
	assert.Equal(t, game.DefaultScoring().Great, cfg.Great)

	min, max := cfg.Bounds()
	assert.Equal(t, -60, min)
	assert.Equal(t, 10, max)
}

func TestSkillRegistry(t *testing.T) {
	loader, err := NewLoader(writeContentDir(t))
	require.NoError(t, err)
	reg := loader.Skills()

	skill, ok := reg.Get("deflection")
	require.True(t, ok)
	assert.Equal(t, "Deflection", skill.Name)

	// Unknown ids are skipped, not fatal.
	got := reg.GetMany([]string{"deflection", "nonexistent"})
	assert.Len(t, got, 1)

	// deflection conflicts with directness, but directness is not loaded
	// as a skill here; a conflict only fires when both are present.
	assert.Empty(t, reg.ValidateCompatibility([]string{"deflection"}))
	assert.NotEmpty(t, reg.ValidateCompatibility([]string{"deflection", "directness"}))
}

func TestInitializerNewSession(t *testing.T) {
	loader, err := NewLoader(writeContentDir(t))
	require.NoError(t, err)
	init := NewInitializer(loader)

	profile := game.PlayerProfile{Name: "Jordan", Role: "engineer"}
	s, err := init.NewSession(profile, "posh", "cubicle-ally")
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, game.StatusActive, s.Status)
	assert.Equal(t, 100, s.PlayerHP)
	assert.Equal(t, 100, s.StartingHP)
	assert.Equal(t, 6, s.MaxSteps)
	assert.Equal(t, profile, s.PlayerProfile)
	assert.Len(t, s.Characters, 2)

	require.Len(t, s.History, 1)
	entry := s.History[0]
	assert.Equal(t, 0, entry.Step)
	assert.Empty(t, entry.PlayerChoice)
	assert.Nil(t, entry.Evaluation)
	assert.Equal(t, "entry", entry.NarrativeBranch)
	assert.Len(t, entry.ChoicesOffered, 3)
	assert.Equal(t, game.ValencePositive, entry.ChoicesOffered[0].Valence)

	// Two sessions never share an id.
	other, err := init.NewSession(profile, "posh", "cubicle-ally")
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)
}

func TestInitializerEntryTurn(t *testing.T) {
	loader, err := NewLoader(writeContentDir(t))
	require.NoError(t, err)
	init := NewInitializer(loader)

	entry, err := init.EntryTurn("posh", "cubicle-ally")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Step)
	assert.Contains(t, entry.Situation, "cubicle wall")
	require.Len(t, entry.Reactions, 1)
	assert.Equal(t, "marcus", entry.Reactions[0].CharacterID)
}
