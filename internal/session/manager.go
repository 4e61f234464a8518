// Package session owns session lifecycle: creation, lookup through a
// read-through cache, applying completed turns, retry/reset, and deletion.
// It is the only package permitted to mutate a session's persisted fields.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cubicle/internal/game"
	"cubicle/internal/logging"
	"cubicle/internal/store"
)

var (
	// ErrNotFound indicates an unknown session id.
	ErrNotFound = store.ErrNotFound
	// ErrResetNotAllowed indicates a reset on a session that is not lost.
	// Won sessions are terminal; active sessions have nothing to reset.
	ErrResetNotAllowed = errors.New("session can only be reset after a loss")
	// ErrAlreadySeeded indicates a seed attempt on a non-empty history.
	ErrAlreadySeeded = errors.New("session already has an entry turn")
)

// Manager coordinates all reads and writes of session state. Lookups are
// cache-first with fallback to the store; every mutation is persisted before
// it is visible to callers.
type Manager struct {
	backend store.Store

	mu    sync.RWMutex
	cache map[string]*game.Session
}

// NewManager creates a Manager over the given store.
func NewManager(backend store.Store) *Manager {
	return &Manager{
		backend: backend,
		cache:   make(map[string]*game.Session),
	}
}

// Create persists a brand-new session and caches it. The cache keeps its
// own copy, so later mutations of the argument never leak into reads.
func (m *Manager) Create(ctx context.Context, s *game.Session) (*game.Session, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	c := s.Clone()
	if err := m.backend.Put(ctx, c); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[c.ID] = c
	m.mu.Unlock()
	logging.Session("created session %s module=%s scenario=%s hp=%d",
		s.ID, s.ModuleID, s.ScenarioID, s.PlayerHP)
	return s, nil
}

// Get returns an independent copy of the session with the given id,
// cache-first. Mutating the returned session has no effect until the copy
// is committed through ApplyTurn; the cache and store only ever hold
// committed state.
func (m *Manager) Get(ctx context.Context, id string) (*game.Session, error) {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// lookup returns the shared cached session, loading from the store on a
// miss. Callers must clone before mutating.
func (m *Manager) lookup(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	if s, ok := m.cache[id]; ok {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	s, err := m.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[id] = s
	m.mu.Unlock()
	logging.SessionDebug("cache miss for session %s, loaded from store", id)
	return s, nil
}

// ApplyTurn appends a completed turn to the caller's working copy of the
// session, updates HP and step counters, evaluates end conditions, and
// persists the result. The working copy carries whatever character memory
// and directive updates were made while producing the turn; those become
// durable here and only here; a turn that fails before ApplyTurn leaves
// the committed state untouched.
//
// The effective HP delta is clamped to be non-positive regardless of what
// the evaluation said: a correct action avoids further damage, it never
// heals. The evaluation keeps the judge's original delta for the debrief;
// Turn.HPDelta is overwritten with the delta actually applied.
func (m *Manager) ApplyTurn(ctx context.Context, working *game.Session, turn game.Turn) (*game.Session, error) {
	if working == nil || working.ID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	s := working.Clone()

	effective := turn.HPDelta
	if effective > 0 {
		effective = 0
	}
	turn.HPDelta = effective

	s.History = append(s.History, turn)
	s.PlayerHP = game.ClampHP(s.PlayerHP + effective)
	s.CurrentStep++

	switch {
	case s.PlayerHP <= 0:
		s.Status = game.StatusLost
	case turn.Evaluation != nil && turn.Evaluation.IsCriticalFailure:
		s.Status = game.StatusLost
	case s.CurrentStep >= s.MaxSteps || turn.ResolvedEarly:
		s.Status = game.StatusWon
	}

	if err := m.persist(ctx, s); err != nil {
		return nil, err
	}
	logging.Session("applied turn %d to session %s delta=%d hp=%d status=%s",
		turn.Step, s.ID, effective, s.PlayerHP, s.Status)
	return s, nil
}

// Reset restarts a lost session. HP returns to the configured starting
// value, the step counter and history are cleared, every character's memory
// and directive are wiped, and the status goes back to active. Session id,
// player profile, and scenario identifiers are untouched. The caller is
// responsible for re-seeding the entry turn (SeedEntry) and for dropping
// any cached character agents.
func (m *Manager) Reset(ctx context.Context, id string) (*game.Session, error) {
	current, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s := current.Clone()
	if s.Status != game.StatusLost {
		return nil, fmt.Errorf("reset session %s (status=%s): %w", id, s.Status, ErrResetNotAllowed)
	}

	s.PlayerHP = s.StartingHP
	s.CurrentStep = 0
	s.History = nil
	s.Status = game.StatusActive
	for i := range s.Characters {
		s.Characters[i].Memory = nil
		s.Characters[i].CurrentDirective = ""
	}

	if err := m.persist(ctx, s); err != nil {
		return nil, err
	}
	logging.Session("reset session %s hp=%d", id, s.PlayerHP)
	return s, nil
}

// SeedEntry installs the scenario's entry turn (step 0) on a session with an
// empty history. Used at session start and after a reset. The entry turn
// carries no player choice and no evaluation, so step counters are not
// advanced and no end condition is evaluated.
func (m *Manager) SeedEntry(ctx context.Context, id string, entry game.Turn) (*game.Session, error) {
	current, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	s := current.Clone()
	if len(s.History) > 0 {
		return nil, fmt.Errorf("seed session %s: %w", id, ErrAlreadySeeded)
	}

	entry.Step = 0
	entry.PlayerChoice = ""
	entry.Evaluation = nil
	s.History = []game.Turn{entry}

	if err := m.persist(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes the session from cache and store. Idempotent.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.cache, id)
	m.mu.Unlock()
	return m.backend.Delete(ctx, id)
}

func (m *Manager) persist(ctx context.Context, s *game.Session) error {
	if err := m.backend.Put(ctx, s); err != nil {
		return err
	}
	m.mu.Lock()
	m.cache[s.ID] = s
	m.mu.Unlock()
	return nil
}
