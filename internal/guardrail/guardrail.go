// Package guardrail validates everything that flows through the turn
// pipeline, in both directions. The failure policy is asymmetric: inbound
// player input fails fast and the rejection is surfaced to the caller;
// outbound capability output is repaired in place wherever a safe default
// exists so a sloppy model never crashes a turn.
package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"cubicle/internal/game"
	"cubicle/internal/logging"
)

// ViolationCode identifies why player input was rejected.
type ViolationCode string

const (
	CodeEmptyInput      ViolationCode = "empty_input"
	CodeTooLong         ViolationCode = "too_long"
	CodeUnsafeContent   ViolationCode = "unsafe_content"
	CodeCriticalFailure ViolationCode = "critical_failure"
)

// Violation is the typed rejection returned for bad player input. It is an
// expected outcome, not an infrastructure failure: callers surface Reason to
// the player verbatim and the turn is fully rolled back.
type Violation struct {
	Code   ViolationCode
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("input rejected (%s): %s", v.Code, v.Reason)
}

// MaxInputRunes caps free-text player input length, in code points.
const MaxInputRunes = 600

// maxSituationRunes caps the situation excerpt passed to the safety
// screen, in code points.
const maxSituationRunes = 200

// minReasoningLen is the shortest evaluator reasoning accepted as-is.
const minReasoningLen = 5

// fallbackReasoning replaces missing or trivial evaluator reasoning.
const fallbackReasoning = "No reasoning provided."

// minSummaryLen is the shortest narrator situation summary accepted.
const minSummaryLen = 20

// Structural faults in narrator output. Each one fails the whole turn; they
// indicate an upstream capability violating its contract, not a condition
// worth repairing.
var (
	ErrUnknownCharacter = fmt.Errorf("turn order references unknown character")
	ErrMissingDirective = fmt.Errorf("acting character has no directive")
	ErrWrongChoiceCount = fmt.Errorf("narrator must offer exactly %d choices", game.ChoiceCount)
	ErrWrongValenceSet  = fmt.Errorf("choices must be one each of positive/neutral/negative")
	ErrShortSummary     = fmt.Errorf("situation summary is empty or too short")
)

// SafetyRequest is the minimal projection handed to the content screen.
type SafetyRequest struct {
	PlayerInput      string
	CurrentSituation string
}

// SafetyVerdict is the screen's decision.
type SafetyVerdict struct {
	Passed bool
	Reason string
}

// SafetyChecker screens free-write player input. Implementations may be
// slow network calls; the guardrail fails open when one errors.
type SafetyChecker interface {
	Check(ctx context.Context, req SafetyRequest) (SafetyVerdict, error)
}

// Guardrail holds the validation rules and the optional safety screen.
type Guardrail struct {
	safety SafetyChecker
}

// New creates a Guardrail. safety may be nil, in which case free-write
// input passes on the rule-based checks alone.
func New(safety SafetyChecker) *Guardrail {
	return &Guardrail{safety: safety}
}

// ValidatePlayerInput checks the player's submitted text. Returns a
// *Violation when the input must be rejected, nil when it may proceed.
//
// Rule order: empty check, length cap, offered-choice short-circuit (a
// predefined choice needs no semantic screening), then the content screen
// for free-write input. A screen infrastructure error fails open: blocking
// the player on a fault of ours is worse than skipping one extra layer of
// screening on already rule-filtered input.
func (g *Guardrail) ValidatePlayerInput(ctx context.Context, text string, s *game.Session) error {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return &Violation{Code: CodeEmptyInput, Reason: "Your response cannot be empty."}
	}
	if utf8.RuneCountInString(trimmed) > MaxInputRunes {
		return &Violation{
			Code:   CodeTooLong,
			Reason: fmt.Sprintf("Response is too long (max %d characters). Please be more concise.", MaxInputRunes),
		}
	}

	if s.IsOfferedChoice(trimmed) {
		logging.Guardrail("input matches offered choice %q, safety screen skipped", trimmed)
		return nil
	}

	if g.safety == nil {
		return nil
	}

	situation := ""
	if t := s.CurrentTurn(); t != nil {
		situation = t.Situation
		// Truncate by code points so a multi-byte rune is never split.
		if r := []rune(situation); len(r) > maxSituationRunes {
			situation = string(r[:maxSituationRunes])
		}
	}
	verdict, err := g.safety.Check(ctx, SafetyRequest{
		PlayerInput:      trimmed,
		CurrentSituation: situation,
	})
	if err != nil {
		logging.GuardrailWarn("safety check errored (%v) — allowing input", err)
		return nil
	}
	if !verdict.Passed {
		reason := verdict.Reason
		if reason == "" {
			reason = "Input did not pass the content safety check."
		}
		return &Violation{Code: CodeUnsafeContent, Reason: reason}
	}
	return nil
}

// narrationRe detects dialogue that opens as third-person narration.
var narrationRe = regexp.MustCompile(`^(?i)(she|he|they|her|his)\s+\w+`)

// quotedSpeechRe finds quoted speech of useful length inside narration.
var quotedSpeechRe = regexp.MustCompile(`"([^"]{5,})"`)

// FixActorDialogue repairs common formatting defects in character dialogue.
// Never fails — always returns a best-effort string.
func (g *Guardrail) FixActorDialogue(dialogue, characterID string) string {
	d := strings.TrimSpace(dialogue)
	if d == "" {
		logging.GuardrailWarn("character %s returned empty dialogue", characterID)
		return d
	}

	// Strip a single wrapping quote pair (common model habit).
	if strings.HasPrefix(d, `"`) && strings.HasSuffix(d, `"`) && len(d) > 2 {
		d = strings.TrimSpace(d[1 : len(d)-1])
	}

	if !narrationRe.MatchString(d) {
		return d
	}

	// Narration detected. Salvage embedded quoted speech if any exists,
	// folding the narrated preamble into a bracketed thought.
	if m := quotedSpeechRe.FindStringSubmatchIndex(d); m != nil {
		quote := d[m[2]:m[3]]
		preamble := strings.TrimRight(strings.TrimSpace(d[:m[0]]), ",. ")
		fixed := quote
		if preamble != "" {
			fixed = "[" + preamble + "] " + quote
		}
		logging.GuardrailWarn("character %s produced narration — extracted spoken part: %.80q", characterID, fixed)
		return fixed
	}

	logging.GuardrailWarn("character %s produced narration with no extractable speech: %.80q", characterID, d)
	return d
}

// FixEvaluatorOutput clamps evaluator output to valid ranges rather than
// crashing. The HP delta bounds derive from the session's scoring
// configuration, not a hardcoded constant. Idempotent: a valid evaluation
// comes back unchanged.
func (g *Guardrail) FixEvaluatorOutput(eval game.Evaluation, scoring game.ScoringConfig) game.Evaluation {
	if eval.Score < 0 || eval.Score > 100 {
		logging.GuardrailWarn("evaluator score out of range (%d) — clamping to [0, 100]", eval.Score)
		eval.Score = clamp(eval.Score, 0, 100)
	}

	min, max := scoring.Bounds()
	if eval.HPDelta < min || eval.HPDelta > max {
		logging.GuardrailWarn("hp_delta out of bounds (%d) — clamping to [%d, %d]", eval.HPDelta, min, max)
		eval.HPDelta = clamp(eval.HPDelta, min, max)
	}

	if len(strings.TrimSpace(eval.Reasoning)) < minReasoningLen {
		logging.GuardrailWarn("evaluator reasoning missing or too short — using fallback")
		eval.Reasoning = fallbackReasoning
	}
	return eval
}

// ValidateScenarioOutput performs structural checks on the narrator's
// output. Any violation is an upstream contract violation that fails the
// whole turn.
func (g *Guardrail) ValidateScenarioOutput(out game.ScenarioOutput, validCharacterIDs []string) error {
	known := make(map[string]bool, len(validCharacterIDs))
	for _, id := range validCharacterIDs {
		known[id] = true
	}

	for _, id := range out.TurnOrder {
		if !known[id] {
			return fmt.Errorf("%w: %q (valid: %v)", ErrUnknownCharacter, id, validCharacterIDs)
		}
	}
	for _, id := range out.TurnOrder {
		if strings.TrimSpace(out.Directives[id]) == "" {
			return fmt.Errorf("%w: %q", ErrMissingDirective, id)
		}
	}

	if len(out.NextChoices) != game.ChoiceCount {
		return fmt.Errorf("%w, got %d", ErrWrongChoiceCount, len(out.NextChoices))
	}
	seen := make(map[game.Valence]int, game.ChoiceCount)
	for _, c := range out.NextChoices {
		seen[c.Valence]++
	}
	if seen[game.ValencePositive] != 1 || seen[game.ValenceNeutral] != 1 || seen[game.ValenceNegative] != 1 {
		return fmt.Errorf("%w, got %v", ErrWrongValenceSet, valences(out.NextChoices))
	}

	if len(strings.TrimSpace(out.SituationSummary)) < minSummaryLen {
		return ErrShortSummary
	}
	return nil
}

func valences(choices []game.Choice) []game.Valence {
	out := make([]game.Valence, len(choices))
	for i, c := range choices {
		out[i] = c.Valence
	}
	return out
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
