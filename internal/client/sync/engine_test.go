package sync

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/feltkeeper/feltkeeper/internal/client/gateway"
	"github.com/feltkeeper/feltkeeper/internal/client/migrations"
	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/client/projections"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/cursor"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/outbox"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/records"
	"github.com/feltkeeper/feltkeeper/internal/common"
	"github.com/feltkeeper/feltkeeper/internal/logging"
)

// fakeGateway scripts each remote call; nil funcs default to success with
// everything applied and no remote changes.
type fakeGateway struct {
	pingErr  error
	pullFn   func(cursor string) (*gateway.PullResponse, error)
	pushFn   func(ms []models.Mutation) (*gateway.PushResponse, error)
	pulls    []string
	pushed   [][]models.Mutation
	pingLogs int
}

func (f *fakeGateway) Ping(ctx context.Context) error {
	f.pingLogs++
	return f.pingErr
}

func (f *fakeGateway) Pull(ctx context.Context, cur string) (*gateway.PullResponse, error) {
	f.pulls = append(f.pulls, cur)
	if f.pullFn != nil {
		return f.pullFn(cur)
	}
	return &gateway.PullResponse{Cursor: cur}, nil
}

func (f *fakeGateway) Push(ctx context.Context, ms []models.Mutation) (*gateway.PushResponse, error) {
	f.pushed = append(f.pushed, ms)
	if f.pushFn != nil {
		return f.pushFn(ms)
	}
	applied := make([]string, len(ms))
	for i, m := range ms {
		applied[i] = m.ID
	}
	return &gateway.PushResponse{Applied: applied}, nil
}

// faultyRecords delegates to a real repository but lets a test fail
// individual listings.
type faultyRecords struct {
	records.Repository
	cashErr   error
	ledgerErr error
}

func (f *faultyRecords) ListCashSessions(ctx context.Context) ([]models.CashSession, error) {
	if f.cashErr != nil {
		return nil, f.cashErr
	}
	return f.Repository.ListCashSessions(ctx)
}

func (f *faultyRecords) ListLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	if f.ledgerErr != nil {
		return nil, f.ledgerErr
	}
	return f.Repository.ListLedgerEntries(ctx)
}

type fixture struct {
	gw      *fakeGateway
	records *records.SQLiteRepository
	outbox  *outbox.SQLiteRepository
	cursor  *cursor.SQLiteRepository
	proj    *projections.Projections
	engine  *Engine
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))

	f := &fixture{
		gw:      &fakeGateway{},
		records: records.NewSQLiteRepository(db),
		outbox:  outbox.NewSQLiteRepository(db),
		cursor:  cursor.NewSQLiteRepository(db),
		proj:    projections.New(),
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.engine = NewEngine(f.gw, f.records, f.outbox, f.cursor, f.proj, log, opts...)
	return f
}

func enqueueInsert(t *testing.T, f *fixture, s *models.CashSession) *models.Mutation {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.records.UpsertCashSession(ctx, s))
	payload, err := json.Marshal(s)
	require.NoError(t, err)
	m := models.NewMutation(models.TableCashSessions, models.OpInsert, s.ID, payload, s.UpdatedAt)
	require.NoError(t, f.outbox.Enqueue(ctx, m))
	return m
}

func localSession(id string) *models.CashSession {
	return &models.CashSession{
		BaseModel: models.BaseModel{
			ID:        id,
			UserID:    "u1",
			UpdatedAt: models.NowISO(),
			Dirty:     true,
		},
		StartTs:    "2026-08-01T18:00:00Z",
		SbCents:    100,
		BbCents:    200,
		BuyinCents: 20000,
	}
}

func TestSyncNow_OfflineShortCircuit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.gw.pingErr = common.ErrNetworkUnavailable
	enqueueInsert(t, f, localSession("s1"))

	err := f.engine.SyncNow(ctx)
	require.ErrorIs(t, err, common.ErrNetworkUnavailable)

	status, _, errMsg := f.engine.Status()
	assert.Equal(t, StatusOffline, status)
	assert.Empty(t, errMsg, "offline is a state, not an error")
	assert.Empty(t, f.gw.pushed, "nothing may be pushed while offline")
	assert.Empty(t, f.gw.pulls)

	n, err := f.outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "intent must survive for the next cycle")
}

func TestSyncNow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	local := localSession("s1")
	enqueueInsert(t, f, local)

	// The service echoes our session back clean and hands out a cursor.
	f.gw.pullFn = func(cur string) (*gateway.PullResponse, error) {
		remote := *local
		remote.Dirty = false
		remote.UpdatedAt = models.NowISO()
		return &gateway.PullResponse{Cursor: "c1", CashSessions: []models.CashSession{remote}}, nil
	}

	require.NoError(t, f.engine.SyncNow(ctx))

	status, lastSynced, errMsg := f.engine.Status()
	assert.Equal(t, StatusIdle, status)
	assert.False(t, lastSynced.IsZero())
	assert.Empty(t, errMsg)

	require.Len(t, f.gw.pushed, 1)
	require.Len(t, f.gw.pushed[0], 1)
	assert.Equal(t, "s1", f.gw.pushed[0][0].EntityID)

	n, err := f.outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "acknowledged intent must leave the outbox")

	cur, err := f.cursor.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", cur)

	stored, err := f.records.ListCashSessions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Dirty, "pulled record with no pending intent is clean")

	got := f.proj.CashSessions()
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
}

func TestSyncNow_FirstPullSendsEmptyCursor(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.NoError(t, f.engine.SyncNow(ctx))
	require.Equal(t, []string{""}, f.gw.pulls, "no stored cursor means full resync")
}

func TestSyncNow_PushTransportFailureKeepsOutbox(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	m := enqueueInsert(t, f, localSession("s1"))

	f.gw.pushFn = func([]models.Mutation) (*gateway.PushResponse, error) {
		return nil, errors.New("connection reset")
	}

	err := f.engine.SyncNow(ctx)
	require.Error(t, err)

	status, _, errMsg := f.engine.Status()
	assert.Equal(t, StatusError, status)
	assert.Contains(t, errMsg, "connection reset")
	assert.Empty(t, f.gw.pulls, "a failed push must not advance to pull")

	pending, err := f.outbox.PeekPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Contains(t, *pending[0].LastError, "connection reset")
}

func TestSyncNow_RejectedIntentStaysQueued(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	ok := enqueueInsert(t, f, localSession("s1"))
	bad := enqueueInsert(t, f, localSession("s2"))

	f.gw.pushFn = func(ms []models.Mutation) (*gateway.PushResponse, error) {
		return &gateway.PushResponse{Applied: []string{ok.ID}}, nil
	}

	err := f.engine.SyncNow(ctx)
	require.ErrorIs(t, err, common.ErrGatewayFailure)

	pending, err := f.outbox.PeekPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "only the rejected intent remains")
	assert.Equal(t, bad.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
}

func TestSyncNow_PushDrainsInBatches(t *testing.T) {
	ctx := context.Background()
	f := setup(t, WithBatchSize(2))

	for _, id := range []string{"s1", "s2", "s3"} {
		enqueueInsert(t, f, localSession(id))
	}

	require.NoError(t, f.engine.SyncNow(ctx))

	require.Len(t, f.gw.pushed, 2)
	assert.Len(t, f.gw.pushed[0], 2)
	assert.Len(t, f.gw.pushed[1], 1)
	assert.Equal(t, "s1", f.gw.pushed[0][0].EntityID, "oldest intent goes first")
}

func TestPull_PendingIntentKeepsDirtyFlag(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	local := localSession("s1")
	enqueueInsert(t, f, local)

	// The intent is still queued (no push ran), yet a pull already returns a
	// version of the same entity.
	f.gw.pullFn = func(cur string) (*gateway.PullResponse, error) {
		r := *local
		r.Dirty = false
		return &gateway.PullResponse{Cursor: "c1", CashSessions: []models.CashSession{r}}, nil
	}
	require.NoError(t, f.engine.pull(ctx))

	stored, err := f.records.ListCashSessions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Dirty, "dirty survives while an intent is still queued")
}

func TestPull_CursorAdvancesOnlyAfterApply(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	f.gw.pullFn = func(cur string) (*gateway.PullResponse, error) {
		return nil, common.ErrGatewayFailure
	}

	err := f.engine.SyncNow(ctx)
	require.ErrorIs(t, err, common.ErrGatewayFailure)

	cur, err := f.cursor.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur, "failed pull must not move the cursor")
}

func TestSyncNow_CoalescesWhileCycleInFlight(t *testing.T) {
	f := setup(t)

	f.engine.cycleMu.Lock()
	defer f.engine.cycleMu.Unlock()

	require.NoError(t, f.engine.SyncNow(context.Background()))
	assert.Zero(t, f.gw.pingLogs, "coalesced call must not start a second cycle")
}

func TestLogout_ClearsSyncState(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	enqueueInsert(t, f, localSession("s1"))
	require.NoError(t, f.cursor.Set(ctx, "c9"))
	require.NoError(t, f.engine.Hydrate(ctx))
	require.NotEmpty(t, f.proj.CashSessions())

	require.NoError(t, f.engine.Logout(ctx))

	n, err := f.outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	cur, err := f.cursor.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)
	assert.Empty(t, f.proj.CashSessions())

	status, lastSynced, _ := f.engine.Status()
	assert.Equal(t, StatusIdle, status)
	assert.True(t, lastSynced.IsZero())
}

func TestHydrate_CorruptRowsDowngradeToWarning(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec := &faultyRecords{
		Repository: f.records,
		cashErr:    errors.Join(fmt.Errorf("row bad1: %w", common.ErrCorruptRecord)),
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e := NewEngine(f.gw, rec, f.outbox, f.cursor, f.proj, log)

	require.NoError(t, e.Hydrate(ctx), "corrupt rows alone must not abort hydration")
}

func TestHydrate_StorageFailureNotMaskedByCorruptRows(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec := &faultyRecords{
		Repository: f.records,
		cashErr:    errors.Join(fmt.Errorf("row bad1: %w", common.ErrCorruptRecord)),
		ledgerErr:  fmt.Errorf("list ledger entries: %w: disk I/O error", common.ErrStorageUnavailable),
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e := NewEngine(f.gw, rec, f.outbox, f.cursor, f.proj, log)

	err := e.Hydrate(ctx)
	require.ErrorIs(t, err, common.ErrStorageUnavailable,
		"a storage failure joined with corrupt rows must surface")
}

func TestPush_WarnsWhenIntentKeepsFailing(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	m := enqueueInsert(t, f, localSession("s1"))

	for i := 0; i < failWarnAttempts-1; i++ {
		require.NoError(t, f.outbox.MarkFailed(ctx, m.ID, errors.New("gateway timeout")))
	}

	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	e := NewEngine(f.gw, f.records, f.outbox, f.cursor, f.proj, log)

	f.gw.pushFn = func([]models.Mutation) (*gateway.PushResponse, error) {
		return &gateway.PushResponse{}, nil
	}

	err := e.SyncNow(ctx)
	require.ErrorIs(t, err, common.ErrGatewayFailure)
	assert.Contains(t, buf.String(), "repeatedly failing")
	assert.Contains(t, buf.String(), "attempts=5")
}

func TestRun_KickTriggersCycle(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.engine.Run(ctx, time.Hour)
	}()

	f.engine.Kick()
	require.Eventually(t, func() bool {
		status, lastSynced, _ := f.engine.Status()
		return status == StatusIdle && !lastSynced.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
