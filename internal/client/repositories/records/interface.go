// Package records implements the typed entity repository over the local
// SQLite store. All entity reads and writes funnel through it so column
// encoding (booleans as integers, tags and payloads as JSON text) stays in
// one place.
package records

import (
	"context"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
)

// Repository lists and upserts every synced collection.
//
// Upsert has replace semantics keyed by id: writing the same id twice
// overwrites in place and never duplicates. List returns tombstoned rows too
// (callers filter); a row whose JSON columns fail to decode is skipped and
// reported through the returned error, which wraps common.ErrCorruptRecord,
// without aborting the rest of the listing.
type Repository interface {
	ListCashSessions(ctx context.Context) ([]models.CashSession, error)
	UpsertCashSession(ctx context.Context, s *models.CashSession) error

	ListTournamentSessions(ctx context.Context) ([]models.TournamentSession, error)
	UpsertTournamentSession(ctx context.Context, s *models.TournamentSession) error

	ListLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
	UpsertLedgerEntry(ctx context.Context, e *models.LedgerEntry) error

	ListPolicies(ctx context.Context) ([]models.Policy, error)
	UpsertPolicy(ctx context.Context, p *models.Policy) error

	ListSimRuns(ctx context.Context) ([]models.SimRun, error)
	UpsertSimRun(ctx context.Context, r *models.SimRun) error

	ListAttachments(ctx context.Context) ([]models.Attachment, error)
	UpsertAttachment(ctx context.Context, a *models.Attachment) error
}
