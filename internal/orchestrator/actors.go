package orchestrator

import (
	"context"
	"sync"

	"cubicle/internal/agents"
	"cubicle/internal/game"
)

// ActorCache holds live character actors keyed by session. Actors carry
// conversational state across turns, so they outlive a single ProcessTurn
// call and are dropped only when the session ends or resets.
type ActorCache struct {
	factory agents.ActorFactory

	mu       sync.Mutex
	sessions map[string]*sessionActors
}

type sessionActors struct {
	mu     sync.Mutex
	actors map[string]agents.CharacterActor
}

// NewActorCache creates an actor cache backed by factory.
func NewActorCache(factory agents.ActorFactory) *ActorCache {
	return &ActorCache{
		factory:  factory,
		sessions: make(map[string]*sessionActors),
	}
}

// GetOrCreate returns the live actor for (sessionID, character), creating
// it from the character's persisted memory if none exists yet.
func (c *ActorCache) GetOrCreate(ctx context.Context, sessionID string, tc game.TurnContext, character game.Character) (agents.CharacterActor, error) {
	c.mu.Lock()
	entry, ok := c.sessions[sessionID]
	if !ok {
		entry = &sessionActors{actors: make(map[string]agents.CharacterActor)}
		c.sessions[sessionID] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if a, ok := entry.actors[character.ID]; ok {
		return a, nil
	}
	a, err := c.factory.NewActor(ctx, tc, character)
	if err != nil {
		return nil, err
	}
	entry.actors[character.ID] = a
	return a, nil
}

// Drop discards all actors for a session. The next turn rebuilds them from
// persisted character memory.
func (c *ActorCache) Drop(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}
