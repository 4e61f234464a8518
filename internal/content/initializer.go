package content

import (
	"fmt"

	"github.com/google/uuid"

	"cubicle/internal/game"
)

// Initializer builds fresh sessions from scenario content. Called once per
// session start and again on retry to rebuild the entry turn.
type Initializer struct {
	loader *Loader
}

// NewInitializer creates an Initializer over the given loader.
func NewInitializer(loader *Loader) *Initializer {
	return &Initializer{loader: loader}
}

// NewSession loads the scenario and builds a fresh session with the entry
// turn pre-seeded at step 0.
func (i *Initializer) NewSession(profile game.PlayerProfile, moduleID, scenarioID string) (*game.Session, error) {
	scenario, err := i.loader.LoadScenario(moduleID, scenarioID)
	if err != nil {
		return nil, err
	}

	for _, c := range scenario.Characters {
		if conflicts := i.loader.Skills().ValidateCompatibility(c.Skills); len(conflicts) > 0 {
			return nil, fmt.Errorf("scenario %s: character %s has conflicting skills: %v",
				scenarioID, c.ID, conflicts)
		}
	}

	characters := make([]game.Character, len(scenario.Characters))
	for idx, c := range scenario.Characters {
		characters[idx] = game.Character{
			ID:          c.ID,
			Persona:     c.Persona,
			Role:        c.Role,
			Personality: c.Personality,
			Skills:      c.Skills,
		}
	}

	return &game.Session{
		ID:                   uuid.NewString(),
		PlayerProfile:        profile,
		ModuleID:             moduleID,
		ScenarioID:           scenarioID,
		Characters:           characters,
		CurrentStep:          0,
		MaxSteps:             scenario.MaxSteps,
		StartingHP:           scenario.StartingHP,
		PlayerHP:             scenario.StartingHP,
		Scoring:              scenario.ScoringConfig(),
		AllowEarlyResolution: scenario.AllowEarlyResolution,
		History:              []game.Turn{i.entryTurn(scenario)},
		Status:               game.StatusActive,
	}, nil
}

// EntryTurn rebuilds the scripted step-0 turn for an existing session, used
// to re-seed after a reset.
func (i *Initializer) EntryTurn(moduleID, scenarioID string) (game.Turn, error) {
	scenario, err := i.loader.LoadScenario(moduleID, scenarioID)
	if err != nil {
		return game.Turn{}, err
	}
	return i.entryTurn(scenario), nil
}

func (i *Initializer) entryTurn(scenario *Scenario) game.Turn {
	entry := scenario.EntryTurn

	reactions := make([]game.CharacterReaction, len(entry.Reactions))
	for idx, r := range entry.Reactions {
		reactions[idx] = game.CharacterReaction{CharacterID: r.CharacterID, Dialogue: r.Dialogue}
	}
	choices := make([]game.Choice, len(entry.ChoicesOffered))
	for idx, c := range entry.ChoicesOffered {
		choices[idx] = game.Choice{Label: c.Label, Valence: game.Valence(c.Valence)}
	}

	return game.Turn{
		Step:            0,
		Situation:       entry.Situation,
		TurnOrder:       entry.TurnOrder,
		Directives:      entry.Directives,
		Reactions:       reactions,
		ChoicesOffered:  choices,
		NarrativeBranch: "entry",
	}
}
