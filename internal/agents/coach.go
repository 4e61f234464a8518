package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cubicle/internal/content"
	"cubicle/internal/game"
	"cubicle/internal/llm"
	"cubicle/internal/logging"
	"cubicle/internal/prompt"
)

// TurnBreakdown is one per-turn entry in a debrief.
type TurnBreakdown struct {
	Step       int    `json:"step"`
	WhatYouDid string `json:"what_you_did"`
	WhatWorked string `json:"what_worked"`
	WhatToTry  string `json:"what_to_try"`
}

// Debrief is the coach's post-scenario summary for the player.
type Debrief struct {
	Outcome             string          `json:"outcome"`
	OverallScore        int             `json:"overall_score"`
	Summary             string          `json:"summary"`
	TurnBreakdowns      []TurnBreakdown `json:"turn_breakdowns"`
	KeyConcepts         []string        `json:"key_concepts"`
	RecommendedFollowup string          `json:"recommended_followup"`
}

// DebriefRequest carries the finished session the coach reviews.
type DebriefRequest struct {
	Status  game.SessionStatus
	Context game.TurnContext
}

// Coach produces the post-scenario debrief.
type Coach interface {
	Debrief(ctx context.Context, req DebriefRequest) (Debrief, error)
}

// GeminiCoach reviews a finished session and writes the debrief.
type GeminiCoach struct {
	client llm.Client
	loader *content.Loader
}

// NewGeminiCoach creates the coach capability.
func NewGeminiCoach(client llm.Client, loader *content.Loader) *GeminiCoach {
	return &GeminiCoach{client: client, loader: loader}
}

// Debrief summarizes the whole playthrough for the player.
func (c *GeminiCoach) Debrief(ctx context.Context, req DebriefRequest) (Debrief, error) {
	scenario, err := c.loader.LoadScenario(req.Context.ModuleID, req.Context.ScenarioID)
	if err != nil {
		return Debrief{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scenario: %s\nLearning goal: %s\n", scenario.Title, scenario.Rubric.Goal)
	fmt.Fprintf(&sb, "Outcome: the player %s the scenario.\n\n", req.Status)
	sb.WriteString("Full playthrough:\n")
	sb.WriteString(prompt.RenderHistory(req.Context.History))
	sb.WriteString("\nReturn a JSON object with exactly these fields:\n")
	sb.WriteString("  outcome (str: \"won\" or \"lost\")\n")
	sb.WriteString("  overall_score (int 0-100)\n")
	sb.WriteString("  summary (str, 2-4 encouraging sentences)\n")
	sb.WriteString("  turn_breakdowns (list of {step, what_you_did, what_worked, what_to_try})\n")
	sb.WriteString("  key_concepts (list of str, the concepts this playthrough exercised)\n")
	sb.WriteString("  recommended_followup (str, one concrete next step)\n")

	start := time.Now()
	text, err := c.client.CompleteJSON(ctx, prompt.CoachSystemPrompt, sb.String())
	if err != nil {
		return Debrief{}, fmt.Errorf("coach call: %w", err)
	}
	var d Debrief
	if err := decodeJSON(text, &d); err != nil {
		return Debrief{}, fmt.Errorf("coach output: %w", err)
	}
	logging.Agents("coach debriefed %d turns in %s", len(d.TurnBreakdowns), time.Since(start).Round(time.Millisecond))
	return d, nil
}
