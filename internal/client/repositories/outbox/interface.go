// Package outbox implements the durable queue of pending write-intents.
// Intents survive process restarts and leave the queue only when the remote
// gateway acknowledges them.
package outbox

import (
	"context"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
)

// Repository is the mutation outbox contract.
//
// Ordering: intents are returned strictly in creation order (FIFO), so
// intents for the same entity replay remotely in the order they happened
// locally. The outbox never reorders or coalesces.
type Repository interface {
	// Enqueue appends an intent. It fails only when the store is unavailable,
	// which is fatal to the domain write it belongs to.
	Enqueue(ctx context.Context, m *models.Mutation) error

	// PeekPending returns up to limit intents, oldest first.
	PeekPending(ctx context.Context, limit int) ([]models.Mutation, error)

	// MarkApplied deletes an acknowledged intent. Calling it for an id that is
	// already gone is not an error.
	MarkApplied(ctx context.Context, id string) error

	// MarkFailed increments the attempt counter and records the error; the
	// intent stays eligible for the next cycle.
	MarkFailed(ctx context.Context, id string, cause error) error

	// HasPendingFor reports whether any intent targets the given entity.
	HasPendingFor(ctx context.Context, entityID string) (bool, error)

	// CountPending returns the number of queued intents.
	CountPending(ctx context.Context) (int, error)

	// Clear drops every pending intent. Used only when the active user
	// session ends.
	Clear(ctx context.Context) error
}
