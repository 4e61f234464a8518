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

// GeminiNarrator advances the story one beat per turn.
type GeminiNarrator struct {
	client  llm.Client
	loader  *content.Loader
	builder *prompt.Builder
}

// NewGeminiNarrator creates the game-master capability.
func NewGeminiNarrator(client llm.Client, loader *content.Loader, builder *prompt.Builder) *GeminiNarrator {
	return &GeminiNarrator{client: client, loader: loader, builder: builder}
}

type scenarioWire struct {
	TurnOrder        []string          `json:"turn_order"`
	Directives       map[string]string `json:"directives"`
	SituationSummary string            `json:"situation_summary"`
	NextChoices      []choiceWire      `json:"next_choices"`
	BranchLabel      string            `json:"branch_label"`
	EarlyResolution  bool              `json:"early_resolution"`
}

type choiceWire struct {
	Text    string `json:"text"`
	Valence string `json:"valence"`
}

// Advance asks the narrator which characters act, what they should do, how
// the situation evolves, and what the player can do next.
func (n *GeminiNarrator) Advance(ctx context.Context, req AdvanceRequest) (game.ScenarioOutput, error) {
	scenario, err := n.loader.LoadScenario(req.Context.ModuleID, req.Context.ScenarioID)
	if err != nil {
		return game.ScenarioOutput{}, err
	}

	system := n.builder.NarratorSystemPrompt(scenario, req.Context, req.Drift)

	var sb strings.Builder
	fmt.Fprintf(&sb, "The player just did: %q\n", req.PlayerAction)
	fmt.Fprintf(&sb, "The judge scored it %d/100 (%s).\n\n", req.Evaluation.Score, req.Evaluation.Reasoning)
	sb.WriteString("Advance the scene. Return a JSON object with exactly these fields:\n")
	sb.WriteString("  turn_order (list of character ids who act this turn, in order)\n")
	sb.WriteString("  directives (object mapping each acting character id to a one-sentence instruction)\n")
	sb.WriteString("  situation_summary (str, at least one full sentence describing the new situation)\n")
	sb.WriteString("  next_choices (list of exactly 3 objects {text, valence}; valences must be one each of positive, neutral, negative)\n")
	sb.WriteString("  branch_label (short snake_case label for this narrative branch)\n")
	sb.WriteString("  early_resolution (bool, true only if the scenario has genuinely reached a successful resolution)\n")

	start := time.Now()
	text, err := n.client.CompleteJSON(ctx, system, sb.String())
	if err != nil {
		return game.ScenarioOutput{}, fmt.Errorf("narrator call: %w", err)
	}

	var wire scenarioWire
	if err := decodeJSON(text, &wire); err != nil {
		return game.ScenarioOutput{}, fmt.Errorf("narrator output: %w", err)
	}

	out := game.ScenarioOutput{
		TurnOrder:        wire.TurnOrder,
		Directives:       wire.Directives,
		SituationSummary: wire.SituationSummary,
		BranchLabel:      wire.BranchLabel,
		EarlyResolution:  wire.EarlyResolution,
	}
	for _, c := range wire.NextChoices {
		out.NextChoices = append(out.NextChoices, game.Choice{
			Label:   c.Text,
			Valence: game.Valence(c.Valence),
		})
	}
	logging.Agents("narrator advanced to branch %q (%d actors, early=%v) in %s",
		out.BranchLabel, len(out.TurnOrder), out.EarlyResolution, time.Since(start).Round(time.Millisecond))
	return out, nil
}
