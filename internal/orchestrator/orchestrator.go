// Package orchestrator runs the turn pipeline: validate the player's
// input, score it, compute drift, advance the narrative, collect character
// reactions, and commit the finished turn to the session in one step.
// Nothing is persisted until the whole pipeline succeeds, so a failed
// model call leaves the session exactly as it was.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cubicle/internal/agents"
	"cubicle/internal/drift"
	"cubicle/internal/game"
	"cubicle/internal/guardrail"
	"cubicle/internal/logging"
	"cubicle/internal/session"
)

// Config wires the orchestrator's collaborators.
type Config struct {
	Sessions  *session.Manager
	Guard     *guardrail.Guardrail
	Evaluator agents.Evaluator
	Narrator  agents.Narrator
	Actors    *ActorCache
}

// Orchestrator drives one full turn per ProcessTurn call. Turns for the
// same session are strictly serialized; turns for different sessions run
// concurrently.
type Orchestrator struct {
	sessions  *session.Manager
	guard     *guardrail.Guardrail
	evaluator agents.Evaluator
	narrator  agents.Narrator
	actors    *ActorCache

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// New creates an orchestrator from its collaborators.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		sessions:  cfg.Sessions,
		guard:     cfg.Guard,
		evaluator: cfg.Evaluator,
		narrator:  cfg.Narrator,
		actors:    cfg.Actors,
		locks:     make(map[string]*sessionLock),
	}
}

// ErrSessionFinished is returned when a turn is submitted to a session
// that has already ended.
var ErrSessionFinished = fmt.Errorf("session is no longer active")

// sessionLock is a refcounted per-session mutex. The last releaser removes
// the map entry, so the lock table stays proportional to in-flight turns
// rather than to every session ever seen.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (o *Orchestrator) lockSession(id string) (release func()) {
	o.mu.Lock()
	l, ok := o.locks[id]
	if !ok {
		l = &sessionLock{}
		o.locks[id] = l
	}
	l.refs++
	o.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, id)
		}
		o.mu.Unlock()
	}
}

// ProcessTurn runs one complete turn for a session and returns the session
// as committed. A *guardrail.Violation error means the input was rejected
// and the session is unchanged; any other error also leaves the session
// unchanged.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, playerInput string) (*game.Session, error) {
	release := o.lockSession(sessionID)
	defer release()

	start := time.Now()
	// Get hands back a private working copy; all mid-turn mutation
	// (directives, character memory) happens on it and becomes durable
	// only through ApplyTurn.
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != game.StatusActive {
		return nil, fmt.Errorf("session %s (status=%s): %w", sessionID, s.Status, ErrSessionFinished)
	}

	if err := o.guard.ValidatePlayerInput(ctx, playerInput, s); err != nil {
		logging.Turn("session %s rejected input: %v", sessionID, err)
		return nil, err
	}

	tc := s.Context()
	eval, err := o.evaluator.Evaluate(ctx, agents.EvaluateRequest{
		PlayerAction: playerInput,
		Context:      tc,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate turn: %w", err)
	}
	eval = o.guard.FixEvaluatorOutput(eval, s.Scoring)
	logging.TurnDebug("session %s evaluated score=%d delta=%d critical=%v",
		sessionID, eval.Score, eval.HPDelta, eval.IsCriticalFailure)
	if eval.IsCriticalFailure {
		logging.Turn("session %s critical failure: %s", sessionID, eval.Reasoning)
		return nil, &guardrail.Violation{
			Code:   guardrail.CodeCriticalFailure,
			Reason: eval.Reasoning,
		}
	}

	d := drift.Compute(s.History)
	logging.Drift("session %s level=%s avg=%.1f poor=%d bad=%d hp_trend=%d",
		sessionID, d.Level, d.RollingAverage, d.ConsecutivePoor, d.ConsecutiveBad, d.HPTrend)
	out, err := o.narrator.Advance(ctx, agents.AdvanceRequest{
		PlayerAction: playerInput,
		Evaluation:   eval,
		Drift:        d,
		Context:      tc,
	})
	if err != nil {
		return nil, fmt.Errorf("advance scenario: %w", err)
	}
	if err := o.guard.ValidateScenarioOutput(out, s.CharacterIDs()); err != nil {
		return nil, fmt.Errorf("scenario output for session %s: %w", sessionID, err)
	}

	reactions, err := o.collectReactions(ctx, s, out)
	if err != nil {
		// Cached chat actors may already hold part of the aborted
		// exchange; drop them so the next turn rebuilds from
		// committed memory.
		o.actors.Drop(sessionID)
		return nil, err
	}

	turn := game.Turn{
		Step:            s.CurrentStep + 1,
		Situation:       out.SituationSummary,
		TurnOrder:       out.TurnOrder,
		Directives:      out.Directives,
		Reactions:       reactions,
		ChoicesOffered:  out.NextChoices,
		PlayerChoice:    playerInput,
		Evaluation:      &eval,
		HPDelta:         eval.HPDelta,
		NarrativeBranch: out.BranchLabel,
		ResolvedEarly:   out.EarlyResolution && s.AllowEarlyResolution,
	}

	committed, err := o.sessions.ApplyTurn(ctx, s, turn)
	if err != nil {
		return nil, fmt.Errorf("commit turn: %w", err)
	}
	if committed.Status != game.StatusActive {
		o.actors.Drop(sessionID)
	}
	logging.Turn("session %s step %d committed (score=%d hp=%d status=%s) in %s",
		sessionID, committed.CurrentStep, eval.Score, committed.PlayerHP,
		committed.Status, time.Since(start).Round(time.Millisecond))
	return committed, nil
}

// collectReactions runs the acting characters strictly in narrator order.
// Each actor sees the new situation and its own directive, and the
// character's memory is extended so a rebuilt actor resumes mid-voice.
func (o *Orchestrator) collectReactions(ctx context.Context, s *game.Session, out game.ScenarioOutput) ([]game.CharacterReaction, error) {
	tc := s.Context()
	reactions := make([]game.CharacterReaction, 0, len(out.TurnOrder))
	for _, id := range out.TurnOrder {
		ch := s.Character(id)
		if ch == nil {
			return nil, fmt.Errorf("%w: %s", guardrail.ErrUnknownCharacter, id)
		}
		ch.CurrentDirective = out.Directives[id]

		actor, err := o.actors.GetOrCreate(ctx, s.ID, tc, *ch)
		if err != nil {
			return nil, fmt.Errorf("actor for %s: %w", id, err)
		}
		line, err := actor.React(ctx, agents.ReactRequest{
			Situation: out.SituationSummary,
			Directive: ch.CurrentDirective,
		})
		if err != nil {
			return nil, fmt.Errorf("reaction from %s: %w", id, err)
		}
		line = o.guard.FixActorDialogue(line, id)

		ch.Memory = append(ch.Memory,
			game.Message{Role: "user", Content: out.SituationSummary},
			game.Message{Role: "model", Content: line},
		)
		reactions = append(reactions, game.CharacterReaction{
			CharacterID: id,
			Dialogue:    line,
		})
	}
	return reactions, nil
}

// DropActors discards any cached actors for a session. Call after a reset
// so rebuilt actors start from the cleared character memory.
func (o *Orchestrator) DropActors(sessionID string) {
	o.actors.Drop(sessionID)
}
