package agents

import (
	"context"
	"fmt"
	"time"

	"cubicle/internal/content"
	"cubicle/internal/game"
	"cubicle/internal/llm"
	"cubicle/internal/logging"
	"cubicle/internal/prompt"
)

// GeminiEvaluator judges player actions with a single structured
// completion per turn.
type GeminiEvaluator struct {
	client  llm.Client
	loader  *content.Loader
	builder *prompt.Builder
}

// NewGeminiEvaluator creates the judge capability.
func NewGeminiEvaluator(client llm.Client, loader *content.Loader, builder *prompt.Builder) *GeminiEvaluator {
	return &GeminiEvaluator{client: client, loader: loader, builder: builder}
}

type evaluationWire struct {
	Score             int    `json:"score"`
	HPDelta           int    `json:"hp_delta"`
	Reasoning         string `json:"reasoning"`
	IsCriticalFailure bool   `json:"is_critical_failure"`
}

// Evaluate scores one player action against the scenario rubric.
func (e *GeminiEvaluator) Evaluate(ctx context.Context, req EvaluateRequest) (game.Evaluation, error) {
	scenario, err := e.loader.LoadScenario(req.Context.ModuleID, req.Context.ScenarioID)
	if err != nil {
		return game.Evaluation{}, err
	}

	system := e.builder.EvaluatorSystemPrompt(scenario, req.Context)
	min, max := req.Context.Scoring.Bounds()
	user := fmt.Sprintf(
		"The player responded: %q\n\n"+
			"Return a JSON object with exactly these fields:\n"+
			"  score (int 0-100)\n"+
			"  hp_delta (int between %d and %d, negative means damage)\n"+
			"  reasoning (str, 1-2 sentences explaining the score)\n"+
			"  is_critical_failure (bool)",
		req.PlayerAction, min, max)

	start := time.Now()
	text, err := e.client.CompleteJSON(ctx, system, user)
	if err != nil {
		return game.Evaluation{}, fmt.Errorf("evaluator call: %w", err)
	}

	var wire evaluationWire
	if err := decodeJSON(text, &wire); err != nil {
		return game.Evaluation{}, fmt.Errorf("evaluator output: %w", err)
	}
	logging.Agents("evaluator scored %d (delta %d, critical=%v) in %s",
		wire.Score, wire.HPDelta, wire.IsCriticalFailure, time.Since(start).Round(time.Millisecond))

	return game.Evaluation{
		Score:             wire.Score,
		HPDelta:           wire.HPDelta,
		Reasoning:         wire.Reasoning,
		IsCriticalFailure: wire.IsCriticalFailure,
	}, nil
}
