// Package agents implements the external capabilities the turn pipeline
// coordinates: the judge that scores player actions, the narrator that
// advances the story, the per-character actors, the input safety screen,
// and the debrief coach. Each capability accepts an explicit typed request
// — never the raw session aggregate — and returns structured output or an
// error. The Gemini-backed implementations live alongside the interfaces.
package agents

import (
	"context"

	"cubicle/internal/drift"
	"cubicle/internal/game"
)

// EvaluateRequest is the judge's input for one player action.
type EvaluateRequest struct {
	PlayerAction string
	Context      game.TurnContext
}

// Evaluator scores a player's free-text action against the scenario rubric.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluateRequest) (game.Evaluation, error)
}

// AdvanceRequest is the narrator's input for one turn.
type AdvanceRequest struct {
	PlayerAction string
	Evaluation   game.Evaluation
	Drift        drift.PlayerDrift
	Context      game.TurnContext
}

// Narrator decides who acts next, their directives, the next narrative
// beat, and the next choices.
type Narrator interface {
	Advance(ctx context.Context, req AdvanceRequest) (game.ScenarioOutput, error)
}

// ReactRequest is one character actor call: the situation as it stands and
// the directive the narrator assigned for this turn.
type ReactRequest struct {
	Situation string
	Directive string
}

// CharacterActor produces one in-character line per call. Implementations
// hold their own long-lived conversational memory; one actor exists per
// (session, character) and survives across turns.
type CharacterActor interface {
	React(ctx context.Context, req ReactRequest) (string, error)
}

// ActorFactory creates a CharacterActor for a character, resuming from the
// character's persisted memory when present.
type ActorFactory interface {
	NewActor(ctx context.Context, tc game.TurnContext, character game.Character) (CharacterActor, error)
}
