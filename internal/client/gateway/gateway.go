// Package gateway is the narrow network contract to the remote sync service:
// pull changes since a cursor, push pending mutation intents, and probe
// reachability. Authentication token issuance and refresh are external
// collaborators; the gateway only attaches the token it is given.
package gateway

import (
	"context"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
)

// PullResponse is the change set returned by the remote service. Absent
// collections mean "no changes"; Cursor is the new watermark to persist once
// the whole response has been applied.
type PullResponse struct {
	Cursor        string                     `json:"cursor"`
	CashSessions  []models.CashSession       `json:"cash_sessions,omitempty"`
	MttSessions   []models.TournamentSession `json:"mtt_sessions,omitempty"`
	LedgerEntries []models.LedgerEntry       `json:"ledger_entries,omitempty"`
	Policies      []models.Policy            `json:"policies,omitempty"`
	SimRuns       []models.SimRun            `json:"sim_runs,omitempty"`
}

// PushResponse acknowledges a mutation batch. Applied lists the intent ids
// the service accepted; an intent missing from it was rejected or lost and
// stays in the outbox. Cursor, when present, moved because of our own push.
type PushResponse struct {
	Applied []string `json:"applied"`
	Cursor  string   `json:"cursor,omitempty"`
}

// Gateway is the remote sync contract consumed by the engine.
type Gateway interface {
	// Ping probes connectivity. A non-nil error means the service is
	// unreachable and a sync cycle must not start.
	Ping(ctx context.Context) error

	// Pull fetches changes since cursor; an empty cursor requests a full
	// resync.
	Pull(ctx context.Context, cursor string) (*PullResponse, error)

	// Push submits pending intents in order as one batch.
	Push(ctx context.Context, mutations []models.Mutation) (*PushResponse, error)
}

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource returning a fixed token. Useful in tests and
// for short-lived CLI invocations.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }
