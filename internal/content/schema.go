// Package content loads scenario and skill definitions from YAML and builds
// fresh sessions from them. Scenario authoring itself is out of scope for
// the engine; this package is the boundary where authored content becomes
// typed state.
package content

import (
	"fmt"
	"strings"

	"cubicle/internal/game"
)

// FewShotExample calibrates the judge with a worked example.
type FewShotExample struct {
	Choice    string `yaml:"choice"`
	Score     int    `yaml:"score"`
	Reasoning string `yaml:"reasoning"`
}

// Rubric is the scoring guidance for a scenario.
type Rubric struct {
	Goal            string           `yaml:"goal"`
	KeyConcepts     []string         `yaml:"key_concepts"`
	FewShotExamples []FewShotExample `yaml:"few_shot_examples"`
}

// CharacterDef describes one scenario character.
type CharacterDef struct {
	ID          string   `yaml:"id"`
	Persona     string   `yaml:"persona"`
	Role        string   `yaml:"role"`
	Personality string   `yaml:"personality"`
	Skills      []string `yaml:"skills"`
}

// EntryReaction is one scripted opening line.
type EntryReaction struct {
	CharacterID string `yaml:"character_id"`
	Dialogue    string `yaml:"dialogue"`
}

// EntryChoice is one scripted opening choice.
type EntryChoice struct {
	Label   string `yaml:"label"`
	Valence string `yaml:"valence"`
}

// EntryTurn is the scripted step-0 situation a session opens with.
type EntryTurn struct {
	Situation      string            `yaml:"situation"`
	TurnOrder      []string          `yaml:"turn_order"`
	Directives     map[string]string `yaml:"directives"`
	Reactions      []EntryReaction   `yaml:"reactions"`
	ChoicesOffered []EntryChoice     `yaml:"choices_offered"`
}

// ScoringDef mirrors game.ScoringConfig in YAML form. Zero value means the
// scenario takes the engine defaults.
type ScoringDef struct {
	Great *game.Band `yaml:"great"`
	Good  *game.Band `yaml:"good"`
	Poor  *game.Band `yaml:"poor"`
	Bad   *game.Band `yaml:"bad"`
}

// Scenario is one playable scenario definition.
type Scenario struct {
	ID                   string         `yaml:"id"`
	ModuleID             string         `yaml:"module_id"`
	Title                string         `yaml:"title"`
	Setup                string         `yaml:"setup"`
	MaxSteps             int            `yaml:"max_steps"`
	StartingHP           int            `yaml:"starting_hp"`
	AllowEarlyResolution bool           `yaml:"allow_early_resolution"`
	Scoring              ScoringDef     `yaml:"scoring"`
	Rubric               Rubric         `yaml:"rubric"`
	Characters           []CharacterDef `yaml:"characters"`
	EntryTurn            EntryTurn      `yaml:"entry_turn"`
}

// ScoringConfig resolves the scenario's bands over the engine defaults.
func (s *Scenario) ScoringConfig() game.ScoringConfig {
	cfg := game.DefaultScoring()
	if s.Scoring.Great != nil {
		cfg.Great = *s.Scoring.Great
	}
	if s.Scoring.Good != nil {
		cfg.Good = *s.Scoring.Good
	}
	if s.Scoring.Poor != nil {
		cfg.Poor = *s.Scoring.Poor
	}
	if s.Scoring.Bad != nil {
		cfg.Bad = *s.Scoring.Bad
	}
	return cfg
}

// Validate checks structural consistency of a loaded scenario: required
// fields, band ordering, entry-turn references to known characters.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("scenario id is required")
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("scenario %s: max_steps must be positive", s.ID)
	}
	if s.StartingHP <= 0 || s.StartingHP > 100 {
		return fmt.Errorf("scenario %s: starting_hp must be in (0, 100]", s.ID)
	}
	if len(s.Characters) == 0 {
		return fmt.Errorf("scenario %s: at least one character is required", s.ID)
	}

	cfg := s.ScoringConfig()
	for name, b := range map[string]game.Band{
		"great": cfg.Great, "good": cfg.Good, "poor": cfg.Poor, "bad": cfg.Bad,
	} {
		if b.Min > b.Max {
			return fmt.Errorf("scenario %s: scoring band %s has min > max", s.ID, name)
		}
	}

	known := make(map[string]bool, len(s.Characters))
	for _, c := range s.Characters {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("scenario %s: character with empty id", s.ID)
		}
		if known[c.ID] {
			return fmt.Errorf("scenario %s: duplicate character id %q", s.ID, c.ID)
		}
		known[c.ID] = true
	}
	for _, id := range s.EntryTurn.TurnOrder {
		if !known[id] {
			return fmt.Errorf("scenario %s: entry turn references unknown character %q", s.ID, id)
		}
	}
	for _, r := range s.EntryTurn.Reactions {
		if !known[r.CharacterID] {
			return fmt.Errorf("scenario %s: entry reaction references unknown character %q", s.ID, r.CharacterID)
		}
	}
	if len(s.EntryTurn.ChoicesOffered) != game.ChoiceCount {
		return fmt.Errorf("scenario %s: entry turn must offer exactly %d choices", s.ID, game.ChoiceCount)
	}
	return nil
}
