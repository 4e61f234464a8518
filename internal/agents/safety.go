package agents

import (
	"context"
	"fmt"

	"cubicle/internal/guardrail"
	"cubicle/internal/llm"
	"cubicle/internal/logging"
	"cubicle/internal/prompt"
)

// GeminiSafety screens raw player input with a single yes/no completion.
type GeminiSafety struct {
	client llm.Client
}

// NewGeminiSafety creates the safety screen.
func NewGeminiSafety(client llm.Client) *GeminiSafety {
	return &GeminiSafety{client: client}
}

type safetyWire struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// Check screens one piece of player input against the current situation.
func (g *GeminiSafety) Check(ctx context.Context, req guardrail.SafetyRequest) (guardrail.SafetyVerdict, error) {
	user := fmt.Sprintf(
		"Current situation: %s\n\nPlayer input: %q\n\n"+
			"Return a JSON object: {\"passed\": bool, \"reason\": str}.",
		req.CurrentSituation, req.PlayerInput)

	text, err := g.client.CompleteJSON(ctx, prompt.SafetySystemPrompt, user)
	if err != nil {
		return guardrail.SafetyVerdict{}, fmt.Errorf("safety call: %w", err)
	}
	var wire safetyWire
	if err := decodeJSON(text, &wire); err != nil {
		return guardrail.SafetyVerdict{}, fmt.Errorf("safety output: %w", err)
	}
	if !wire.Passed {
		logging.AgentsWarn("safety screen flagged input: %s", wire.Reason)
	}
	return guardrail.SafetyVerdict{Passed: wire.Passed, Reason: wire.Reason}, nil
}
