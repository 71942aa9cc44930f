// Package cursor persists the replication watermark returned by the remote
// sync service. Exactly one value exists at a time; it is replaced atomically
// and only after a successful pull.
package cursor

import "context"

// Repository is the sync-cursor contract. Get returns an empty string when no
// cursor is stored, which callers treat as "full resync".
type Repository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, cursor string) error

	// Clear removes the watermark. Invoked on logout so the next login never
	// resumes another identity's cursor.
	Clear(ctx context.Context) error
}
