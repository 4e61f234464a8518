// Package game defines the data model for a training session: the session
// aggregate, its turn history, judge evaluations, characters, and the
// scoring configuration. These types are pure data — every other package
// reads from and writes to them, so they carry no behavior beyond invariant
// helpers (HP clamping, status checks) and no external dependencies.
package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SessionStatus describes the lifecycle state of a session.
type SessionStatus string

const (
	// StatusActive means the session is in progress and accepts turns.
	StatusActive SessionStatus = "active"
	// StatusWon means the player completed the scenario.
	StatusWon SessionStatus = "won"
	// StatusLost means the player ran out of HP or critically failed.
	StatusLost SessionStatus = "lost"
)

// Valence is the moral framing of an offered choice.
type Valence string

const (
	ValencePositive Valence = "positive"
	ValenceNeutral  Valence = "neutral"
	ValenceNegative Valence = "negative"
)

// ChoiceCount is the number of choices offered to the player each turn.
const ChoiceCount = 3

// Choice is one option offered to the player at the end of a turn.
type Choice struct {
	Label   string  `json:"label"`
	Valence Valence `json:"valence"`
}

// Evaluation is the judge's verdict on a single player action.
// HPDelta here is the judge's original signed delta, kept verbatim for the
// debrief; the delta actually applied to HP lives on the Turn and may be
// clamped by the lifecycle manager.
type Evaluation struct {
	Score             int    `json:"score"`
	HPDelta           int    `json:"hp_delta"`
	Reasoning         string `json:"reasoning"`
	IsCriticalFailure bool   `json:"is_critical_failure"`
}

// CharacterReaction is one character's in-character line for a turn.
type CharacterReaction struct {
	CharacterID string `json:"character_id"`
	Dialogue    string `json:"dialogue"`
}

// Turn is one step of session history. A Turn is assembled in memory by the
// orchestrator and becomes immutable once appended to Session.History. The
// entry turn (step 0) is the only turn with an empty PlayerChoice and no
// Evaluation.
type Turn struct {
	Step            int                 `json:"step"`
	Situation       string              `json:"situation"`
	TurnOrder       []string            `json:"turn_order"`
	Directives      map[string]string   `json:"directives"`
	Reactions       []CharacterReaction `json:"reactions"`
	ChoicesOffered  []Choice            `json:"choices_offered"`
	PlayerChoice    string              `json:"player_choice"`
	Evaluation      *Evaluation         `json:"evaluation,omitempty"`
	HPDelta         int                 `json:"hp_delta"`
	NarrativeBranch string              `json:"narrative_branch"`
	ResolvedEarly   bool                `json:"resolved_early"`
}

// Evaluated reports whether this turn carries a completed evaluation.
// The entry turn never does.
func (t *Turn) Evaluated() bool {
	return t.Evaluation != nil
}

// ScenarioOutput is the narrator's decision for one turn: who acts next and
// in what order, their directives, the next narrative beat, the next three
// choices, and whether the scenario resolved early. It is transient pipeline
// data, never persisted as-is; the orchestrator folds it into the next Turn.
type ScenarioOutput struct {
	TurnOrder        []string          `json:"turn_order"`
	Directives       map[string]string `json:"directives"`
	SituationSummary string            `json:"situation_summary"`
	NextChoices      []Choice          `json:"next_choices"`
	BranchLabel      string            `json:"branch_label"`
	EarlyResolution  bool              `json:"early_resolution"`
}

// Message is one role-tagged entry in a character's rolling memory.
type Message struct {
	Role    string `json:"role"` // "user" | "model"
	Content string `json:"content"`
}

// Character is one scenario persona. Persona is unchanging; Role and
// Personality are scenario-specific; Memory and CurrentDirective are
// session-mutable and cleared only on reset.
type Character struct {
	ID               string    `json:"id"`
	Persona          string    `json:"persona"`
	Role             string    `json:"role"`
	Personality      string    `json:"personality"`
	Skills           []string  `json:"skills"`
	Memory           []Message `json:"memory"`
	CurrentDirective string    `json:"current_directive"`
}

// PlayerProfile captures who the player is. RawContext is free text
// (resume, job description) used only for prompt grounding.
type PlayerProfile struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Seniority  string `json:"seniority"`
	Domain     string `json:"domain"`
	RawContext string `json:"raw_context"`
}

// Band is an inclusive HP-delta range for one score tier.
type Band struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ScoringConfig maps score tiers to HP-delta bands. Tier boundaries:
// great >= 80, good 50-79, poor 20-49, bad < 20. The overall absolute
// delta bounds are [Bad.Min, Great.Max].
type ScoringConfig struct {
	Great Band `json:"great"`
	Good  Band `json:"good"`
	Poor  Band `json:"poor"`
	Bad   Band `json:"bad"`
}

// Bounds returns the absolute HP-delta bounds derived from the bands.
func (c ScoringConfig) Bounds() (min, max int) {
	return c.Bad.Min, c.Great.Max
}

// DefaultScoring returns the scoring bands used when a scenario does not
// configure its own.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Great: Band{Min: 0, Max: 10},
		Good:  Band{Min: -10, Max: 0},
		Poor:  Band{Min: -25, Max: -10},
		Bad:   Band{Min: -40, Max: -25},
	}
}

// Session is the root aggregate for one training run. It exclusively owns
// its Characters (and through them their memories). All mutation of
// persisted fields goes through the session lifecycle manager.
type Session struct {
	ID                   string        `json:"id"`
	PlayerProfile        PlayerProfile `json:"player_profile"`
	ModuleID             string        `json:"module_id"`
	ScenarioID           string        `json:"scenario_id"`
	Characters           []Character   `json:"characters"`
	CurrentStep          int           `json:"current_step"`
	MaxSteps             int           `json:"max_steps"`
	StartingHP           int           `json:"starting_hp"`
	PlayerHP             int           `json:"player_hp"`
	Scoring              ScoringConfig `json:"scoring"`
	AllowEarlyResolution bool          `json:"allow_early_resolution"`
	History              []Turn        `json:"history"`
	Status               SessionStatus `json:"status"`
}

// TurnContext is the projection of session state handed to the judge and
// narrator capabilities. It deliberately excludes the session id, HP, and
// status: capabilities see what they need to reason about the story, not
// the whole aggregate.
type TurnContext struct {
	ModuleID    string
	ScenarioID  string
	Profile     PlayerProfile
	Characters  []Character
	Scoring     ScoringConfig
	CurrentStep int
	MaxSteps    int
	History     []Turn
}

// Context builds the capability projection for this session.
func (s *Session) Context() TurnContext {
	return TurnContext{
		ModuleID:    s.ModuleID,
		ScenarioID:  s.ScenarioID,
		Profile:     s.PlayerProfile,
		Characters:  s.Characters,
		Scoring:     s.Scoring,
		CurrentStep: s.CurrentStep,
		MaxSteps:    s.MaxSteps,
		History:     s.History,
	}
}

// Character returns the character with the given id, or nil.
func (s *Session) Character(id string) *Character {
	for i := range s.Characters {
		if s.Characters[i].ID == id {
			return &s.Characters[i]
		}
	}
	return nil
}

// CharacterIDs returns the ids of every character in roster order.
func (s *Session) CharacterIDs() []string {
	ids := make([]string, len(s.Characters))
	for i, c := range s.Characters {
		ids[i] = c.ID
	}
	return ids
}

// CurrentTurn returns the last (unresolved) turn, or nil when the history
// is empty.
func (s *Session) CurrentTurn() *Turn {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

// OfferedChoices returns the choices currently on the table for the player.
func (s *Session) OfferedChoices() []Choice {
	if t := s.CurrentTurn(); t != nil {
		return t.ChoicesOffered
	}
	return nil
}

// IsOfferedChoice reports whether text matches one of the currently offered
// choice labels, ignoring case and surrounding whitespace. Predefined
// choices are inherently safe and skip the content screen.
func (s *Session) IsOfferedChoice(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, c := range s.OfferedChoices() {
		if strings.EqualFold(trimmed, strings.TrimSpace(c.Label)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the session. Mutating code paths copy first
// and publish only after a successful persist, so a failed write never
// leaves a half-mutated aggregate visible.
func (s *Session) Clone() *Session {
	blob, err := json.Marshal(s)
	if err != nil {
		// Session contains only plain data; marshal cannot fail in practice.
		panic(fmt.Sprintf("clone session %s: %v", s.ID, err))
	}
	var out Session
	if err := json.Unmarshal(blob, &out); err != nil {
		panic(fmt.Sprintf("clone session %s: %v", s.ID, err))
	}
	return &out
}

// ClampHP bounds an HP value to the valid [0, 100] range.
func ClampHP(hp int) int {
	if hp < 0 {
		return 0
	}
	if hp > 100 {
		return 100
	}
	return hp
}
