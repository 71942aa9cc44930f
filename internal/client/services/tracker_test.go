package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/feltkeeper/feltkeeper/internal/client/migrations"
	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/client/projections"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/outbox"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/records"
	"github.com/feltkeeper/feltkeeper/internal/common"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

func newTracker(t *testing.T) (TrackerService, *sql.DB, *projections.Projections) {
	t.Helper()
	db := setupDB(t)
	proj := projections.New()
	return NewTrackerService(db, proj, "u1"), db, proj
}

func pendingIntents(t *testing.T, db *sql.DB) []models.Mutation {
	t.Helper()
	ms, err := outbox.NewSQLiteRepository(db).PeekPending(context.Background(), 100)
	require.NoError(t, err)
	return ms
}

func TestSaveCashSession_AssignsIDAndEnqueuesInsert(t *testing.T) {
	ctx := context.Background()
	tracker, db, proj := newTracker(t)

	sess := &models.CashSession{
		StartTs:    "2026-08-01T18:00:00Z",
		SbCents:    100,
		BbCents:    200,
		BuyinCents: 20000,
	}
	require.NoError(t, tracker.SaveCashSession(ctx, sess))

	assert.NotEmpty(t, sess.ID, "new session gets a client-generated id")
	assert.Equal(t, "u1", sess.UserID)
	assert.True(t, sess.Dirty)

	stored, err := records.NewSQLiteRepository(db).ListCashSessions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, sess.ID, stored[0].ID)

	intents := pendingIntents(t, db)
	require.Len(t, intents, 1)
	assert.Equal(t, models.OpInsert, intents[0].Operation)
	assert.Equal(t, models.TableCashSessions, intents[0].TableName)
	assert.Equal(t, sess.ID, intents[0].EntityID)

	var snapshot models.CashSession
	require.NoError(t, json.Unmarshal(intents[0].Payload, &snapshot))
	assert.Equal(t, sess.BuyinCents, snapshot.BuyinCents)

	require.Len(t, proj.CashSessions(), 1)
}

func TestSaveCashSession_SecondWriteEnqueuesUpdate(t *testing.T) {
	ctx := context.Background()
	tracker, db, _ := newTracker(t)

	sess := &models.CashSession{StartTs: "2026-08-01T18:00:00Z", BuyinCents: 20000}
	require.NoError(t, tracker.SaveCashSession(ctx, sess))
	firstUpdated := sess.UpdatedAt

	cashout := int64(35000)
	sess.CashoutCents = &cashout
	require.NoError(t, tracker.SaveCashSession(ctx, sess))

	assert.NotEqual(t, firstUpdated, sess.UpdatedAt, "updatedAt advances on every write")

	intents := pendingIntents(t, db)
	require.Len(t, intents, 2)
	assert.Equal(t, models.OpInsert, intents[0].Operation)
	assert.Equal(t, models.OpUpdate, intents[1].Operation)
	assert.Equal(t, sess.ID, intents[1].EntityID, "id is never reassigned")
}

func TestDeleteCashSession_TombstonesAndEnqueuesDelete(t *testing.T) {
	ctx := context.Background()
	tracker, db, proj := newTracker(t)

	sess := &models.CashSession{StartTs: "2026-08-01T18:00:00Z", BuyinCents: 20000}
	require.NoError(t, tracker.SaveCashSession(ctx, sess))

	require.NoError(t, tracker.DeleteCashSession(ctx, sess.ID))

	stored, err := records.NewSQLiteRepository(db).ListCashSessions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1, "tombstoned row is retained for sync")
	assert.NotNil(t, stored[0].DeletedAt)

	intents := pendingIntents(t, db)
	require.Len(t, intents, 2)
	assert.Equal(t, models.OpDelete, intents[1].Operation)

	assert.Empty(t, proj.CashSessions(), "tombstone disappears from the read path")
}

func TestDeleteCashSession_UnknownID(t *testing.T) {
	tracker, _, _ := newTracker(t)
	err := tracker.DeleteCashSession(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveLedgerEntry_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tracker, db, proj := newTracker(t)

	entry := &models.LedgerEntry{
		Type:        models.LedgerDeposit,
		AmountCents: 50000,
		Currency:    "USD",
		OccurredAt:  "2026-08-01T10:00:00Z",
	}
	require.NoError(t, tracker.SaveLedgerEntry(ctx, entry))

	intents := pendingIntents(t, db)
	require.Len(t, intents, 1)
	assert.Equal(t, models.TableLedgerEntries, intents[0].TableName)
	require.Len(t, proj.LedgerEntries(), 1)
}

func TestSavePolicyAndDelete(t *testing.T) {
	ctx := context.Background()
	tracker, db, proj := newTracker(t)

	pol := &models.Policy{
		Name:    "shot taking",
		Kind:    models.PolicyAggressive,
		Payload: map[string]any{"stop_loss_bb": float64(300)},
	}
	require.NoError(t, tracker.SavePolicy(ctx, pol))
	require.NoError(t, tracker.DeletePolicy(ctx, pol.ID))

	intents := pendingIntents(t, db)
	require.Len(t, intents, 2)
	assert.Equal(t, models.OpDelete, intents[1].Operation)
	assert.Empty(t, proj.Policies())
}

func TestRegisterAttachment_FlagsUpload(t *testing.T) {
	ctx := context.Background()
	tracker, _, proj := newTracker(t)

	a := &models.Attachment{
		Filename:   "receipt.png",
		ContentUri: "file:///receipts/r1.png",
	}
	require.NoError(t, tracker.RegisterAttachment(ctx, a))

	assert.True(t, a.UploadRequired)
	assert.NotEmpty(t, a.CreatedAt)
	require.Len(t, proj.PendingUploads(), 1)
}

// A failed outbox insert must roll back the entity write: no row, no intent.
func TestTrackedWrite_RollbackLeavesNoOrphan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cash_sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sync_outbox").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	tracker := NewTrackerService(db, projections.New(), "u1")
	sess := &models.CashSession{StartTs: "2026-08-01T18:00:00Z", BuyinCents: 20000}
	err = tracker.SaveCashSession(context.Background(), sess)
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
