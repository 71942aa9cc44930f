// Package services contains the domain-facing operations built on top of the
// store and the projections: tracked writes that pair every entity change
// with an outbox intent, attachment uploads, and session export.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/client/projections"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/outbox"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/records"
	"github.com/feltkeeper/feltkeeper/internal/common"
	"github.com/feltkeeper/feltkeeper/internal/dbx"
)

// TrackerService is the write path for every synced collection. Each call
// persists the entity and its outbox intent in one transaction, then updates
// the projections; on rollback neither the row nor the intent exists.
type TrackerService interface {
	SaveCashSession(ctx context.Context, s *models.CashSession) error
	DeleteCashSession(ctx context.Context, id string) error

	SaveTournamentSession(ctx context.Context, s *models.TournamentSession) error
	DeleteTournamentSession(ctx context.Context, id string) error

	SaveLedgerEntry(ctx context.Context, e *models.LedgerEntry) error
	DeleteLedgerEntry(ctx context.Context, id string) error

	SavePolicy(ctx context.Context, p *models.Policy) error
	DeletePolicy(ctx context.Context, id string) error

	SaveSimRun(ctx context.Context, r *models.SimRun) error

	// RegisterAttachment records a locally captured attachment and flags it
	// for upload to remote storage.
	RegisterAttachment(ctx context.Context, a *models.Attachment) error
}

type trackerService struct {
	db     *sql.DB
	proj   *projections.Projections
	userID string
	now    func() string
}

func NewTrackerService(db *sql.DB, proj *projections.Projections, userID string) TrackerService {
	return &trackerService{db: db, proj: proj, userID: userID, now: models.NowISO}
}

// prepare stamps the shared columns for a local write and decides the intent
// operation. A missing id means this is a brand-new entity.
func (s *trackerService) prepare(b *models.BaseModel) models.Operation {
	op := models.OpUpdate
	if b.ID == "" {
		b.ID = uuid.NewString()
		op = models.OpInsert
	}
	if b.UserID == "" {
		b.UserID = s.userID
	}
	b.UpdatedAt = s.now()
	b.Dirty = true
	return op
}

func (s *trackerService) write(ctx context.Context, table string, op models.Operation,
	entityID string, entity any, upsert func(context.Context, dbx.DBTX) error) error {
	return writeTracked(ctx, s.db, table, op, entityID, entity, upsert)
}

// writeTracked runs the two-write unit: entity upsert plus intent enqueue,
// atomic. On rollback neither the row nor the intent exists.
func writeTracked(ctx context.Context, db *sql.DB, table string, op models.Operation,
	entityID string, entity any, upsert func(context.Context, dbx.DBTX) error) error {

	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	m := models.NewMutation(table, op, entityID, payload, models.NowISO())

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := upsert(ctx, tx); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).Enqueue(ctx, m)
	})
	if err != nil {
		return fmt.Errorf("tracked write: %w", err)
	}
	return nil
}

func (s *trackerService) SaveCashSession(ctx context.Context, sess *models.CashSession) error {
	op := s.prepare(&sess.BaseModel)
	err := s.write(ctx, models.TableCashSessions, op, sess.ID, sess,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertCashSession(ctx, sess)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyCashSessions(*sess)
	return nil
}

func (s *trackerService) DeleteCashSession(ctx context.Context, id string) error {
	sess, ok := s.proj.CashSession(id)
	if !ok {
		return fmt.Errorf("cash session %s: %w", id, common.ErrNotFound)
	}
	s.tombstone(&sess.BaseModel)
	err := s.write(ctx, models.TableCashSessions, models.OpDelete, id, &sess,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertCashSession(ctx, &sess)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyCashSessions(sess)
	return nil
}

func (s *trackerService) SaveTournamentSession(ctx context.Context, sess *models.TournamentSession) error {
	op := s.prepare(&sess.BaseModel)
	err := s.write(ctx, models.TableMttSessions, op, sess.ID, sess,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertTournamentSession(ctx, sess)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyTournamentSessions(*sess)
	return nil
}

func (s *trackerService) DeleteTournamentSession(ctx context.Context, id string) error {
	sess, ok := s.proj.TournamentSession(id)
	if !ok {
		return fmt.Errorf("tournament session %s: %w", id, common.ErrNotFound)
	}
	s.tombstone(&sess.BaseModel)
	err := s.write(ctx, models.TableMttSessions, models.OpDelete, id, &sess,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertTournamentSession(ctx, &sess)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyTournamentSessions(sess)
	return nil
}

func (s *trackerService) SaveLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	op := s.prepare(&entry.BaseModel)
	err := s.write(ctx, models.TableLedgerEntries, op, entry.ID, entry,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertLedgerEntry(ctx, entry)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyLedgerEntries(*entry)
	return nil
}

func (s *trackerService) DeleteLedgerEntry(ctx context.Context, id string) error {
	entry, ok := s.proj.LedgerEntry(id)
	if !ok {
		return fmt.Errorf("ledger entry %s: %w", id, common.ErrNotFound)
	}
	s.tombstone(&entry.BaseModel)
	err := s.write(ctx, models.TableLedgerEntries, models.OpDelete, id, &entry,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertLedgerEntry(ctx, &entry)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyLedgerEntries(entry)
	return nil
}

func (s *trackerService) SavePolicy(ctx context.Context, pol *models.Policy) error {
	op := s.prepare(&pol.BaseModel)
	err := s.write(ctx, models.TablePolicies, op, pol.ID, pol,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertPolicy(ctx, pol)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyPolicies(*pol)
	return nil
}

func (s *trackerService) DeletePolicy(ctx context.Context, id string) error {
	pol, ok := s.proj.Policy(id)
	if !ok {
		return fmt.Errorf("policy %s: %w", id, common.ErrNotFound)
	}
	s.tombstone(&pol.BaseModel)
	err := s.write(ctx, models.TablePolicies, models.OpDelete, id, &pol,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertPolicy(ctx, &pol)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyPolicies(pol)
	return nil
}

func (s *trackerService) SaveSimRun(ctx context.Context, run *models.SimRun) error {
	op := s.prepare(&run.BaseModel)
	if run.CreatedAt == "" {
		run.CreatedAt = run.UpdatedAt
	}
	err := s.write(ctx, models.TableSimRuns, op, run.ID, run,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertSimRun(ctx, run)
		})
	if err != nil {
		return err
	}
	s.proj.ApplySimRuns(*run)
	return nil
}

func (s *trackerService) RegisterAttachment(ctx context.Context, a *models.Attachment) error {
	op := s.prepare(&a.BaseModel)
	if a.CreatedAt == "" {
		a.CreatedAt = a.UpdatedAt
	}
	a.UploadRequired = true
	err := s.write(ctx, models.TableAttachments, op, a.ID, a,
		func(ctx context.Context, tx dbx.DBTX) error {
			return records.NewSQLiteRepository(tx).UpsertAttachment(ctx, a)
		})
	if err != nil {
		return err
	}
	s.proj.ApplyAttachments(*a)
	return nil
}

func (s *trackerService) tombstone(b *models.BaseModel) {
	ts := s.now()
	b.DeletedAt = &ts
	b.UpdatedAt = ts
	b.Dirty = true
}
