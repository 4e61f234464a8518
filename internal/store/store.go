// Package store persists sessions as opaque serialized blobs keyed by
// session id. The contract is deliberately narrow: point lookup, full
// upsert, delete. No partial or field-level updates — the lifecycle manager
// always writes the whole aggregate.
package store

import (
	"context"
	"errors"

	"cubicle/internal/game"
)

// ErrNotFound indicates no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// Store is the durable backing for session state.
type Store interface {
	// Get loads the session with the given id. Returns ErrNotFound when
	// the id is unknown.
	Get(ctx context.Context, id string) (*game.Session, error)
	// Put upserts the full session record.
	Put(ctx context.Context, session *game.Session) error
	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// Close releases underlying resources.
	Close() error
}
