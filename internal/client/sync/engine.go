// Package sync drives reconciliation between the local store and the remote
// service. One cycle is: connectivity probe, push the outbox in FIFO batches,
// pull remote changes since the stored cursor, apply them store-first with
// remote-wins conflict resolution, then advance the cursor.
//
// The engine never blocks local reads or writes: the UI keeps working against
// the projections and the store while a cycle runs, and a cycle that cannot
// reach the service simply leaves everything in place for the next attempt.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/feltkeeper/feltkeeper/internal/client/gateway"
	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/client/projections"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/cursor"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/outbox"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/records"
	"github.com/feltkeeper/feltkeeper/internal/common"
	"github.com/feltkeeper/feltkeeper/internal/logging"
)

// Status is the externally visible engine state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// DefaultBatchSize is how many outbox intents go into one push request when
// the caller does not configure a size.
const DefaultBatchSize = 50

// failWarnAttempts is the attempt count at which a repeatedly failing intent
// gets surfaced with a warning instead of just a debug-level retry.
const failWarnAttempts = 5

// Uploader sends locally captured attachment bytes to remote storage. It is
// invoked after a successful push; failures are logged and retried on the
// next cycle, never failing the cycle itself.
type Uploader interface {
	UploadPending(ctx context.Context) error
}

// Engine owns the sync state machine. All exported methods are safe for
// concurrent use; at most one cycle runs at a time and concurrent SyncNow
// calls coalesce into the cycle already in flight.
type Engine struct {
	gw      gateway.Gateway
	records records.Repository
	outbox  outbox.Repository
	cursor  cursor.Repository
	proj    *projections.Projections
	log     logging.Logger

	batchSize int
	uploader  Uploader
	now       func() time.Time

	cycleMu stdsync.Mutex

	stateMu      stdsync.RWMutex
	status       Status
	lastSyncedAt time.Time
	errMsg       string

	kick chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithBatchSize overrides the push batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) { e.batchSize = n }
}

// WithUploader attaches an attachment uploader run after successful pushes.
func WithUploader(u Uploader) Option {
	return func(e *Engine) { e.uploader = u }
}

// WithClock overrides the engine clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(gw gateway.Gateway, rec records.Repository, ob outbox.Repository,
	cur cursor.Repository, proj *projections.Projections, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		gw:        gw,
		records:   rec,
		outbox:    ob,
		cursor:    cur,
		proj:      proj,
		log:       log,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		status:    StatusIdle,
		kick:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the current engine state, the time the last cycle finished
// successfully (zero if never), and the message of the last cycle error.
func (e *Engine) Status() (Status, time.Time, string) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.status, e.lastSyncedAt, e.errMsg
}

func (e *Engine) setStatus(s Status, errMsg string) {
	e.stateMu.Lock()
	e.status = s
	e.errMsg = errMsg
	if s == StatusIdle {
		e.lastSyncedAt = e.now()
	}
	e.stateMu.Unlock()
}

// Hydrate bulk-loads the projections from the store. Rows the store reports
// as corrupt are logged and skipped; everything readable is served. Any other
// failure, even one joined alongside corrupt rows, aborts hydration.
func (e *Engine) Hydrate(ctx context.Context) error {
	err := e.proj.Hydrate(ctx, e.records)
	if err == nil {
		return nil
	}
	if corruptOnly(err) {
		e.log.Warn(ctx, "hydration skipped corrupt rows", "error", err)
		return nil
	}
	return fmt.Errorf("hydrate: %w", err)
}

// corruptOnly reports whether every leaf of a possibly joined error wraps
// ErrCorruptRecord. A joined tree with any other failure in it must not be
// downgraded to a warning.
func corruptOnly(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, sub := range joined.Unwrap() {
			if !corruptOnly(sub) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, common.ErrCorruptRecord)
}

// Logout tears down the active identity's sync state: pending intents,
// cursor and projections all go, so the next login starts from a clean full
// resync and never sees another user's data.
func (e *Engine) Logout(ctx context.Context) error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	if err := e.outbox.Clear(ctx); err != nil {
		return fmt.Errorf("clear outbox: %w", err)
	}
	if err := e.cursor.Clear(ctx); err != nil {
		return fmt.Errorf("clear cursor: %w", err)
	}
	e.proj.Clear()

	e.stateMu.Lock()
	e.status = StatusIdle
	e.lastSyncedAt = time.Time{}
	e.errMsg = ""
	e.stateMu.Unlock()
	return nil
}

// SyncNow runs one cycle. When a cycle is already in flight the call
// coalesces into it and returns nil immediately.
func (e *Engine) SyncNow(ctx context.Context) error {
	if !e.cycleMu.TryLock() {
		e.log.Debug(ctx, "sync already in flight, coalescing")
		return nil
	}
	defer e.cycleMu.Unlock()
	return e.runCycle(ctx)
}

// Kick requests a cycle from the scheduler without blocking. Used by the
// foreground hook and by services right after a tracked write.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Run is the scheduler loop: a cycle every interval, plus whenever Kick is
// called. It returns when ctx is cancelled. Cycle errors are reflected in
// Status and logged, never fatal to the loop.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.kick:
		}
		if err := e.SyncNow(ctx); err != nil {
			e.log.Warn(ctx, "sync cycle failed", "error", err)
		}
	}
}

// runCycle executes one full cycle. Caller holds cycleMu.
func (e *Engine) runCycle(ctx context.Context) error {
	e.setStatus(StatusSyncing, "")

	if err := e.gw.Ping(ctx); err != nil {
		e.log.Info(ctx, "service unreachable, staying offline", "error", err)
		e.setStatus(StatusOffline, "")
		return fmt.Errorf("connectivity: %w", err)
	}

	if err := e.push(ctx); err != nil {
		e.setStatus(StatusError, err.Error())
		return err
	}

	if e.uploader != nil {
		if err := e.uploader.UploadPending(ctx); err != nil {
			e.log.Warn(ctx, "attachment upload incomplete", "error", err)
		}
	}

	if err := e.pull(ctx); err != nil {
		e.setStatus(StatusError, err.Error())
		return err
	}

	e.setStatus(StatusIdle, "")
	e.log.Debug(ctx, "sync cycle finished")
	return nil
}

// push drains the outbox in FIFO batches. Intents the service acknowledges
// as applied are deleted; everything else keeps its place in the queue with
// an incremented attempt count. A batch with rejected intents stops the
// drain so ordering per entity is preserved for the next cycle.
func (e *Engine) push(ctx context.Context) error {
	for {
		batch, err := e.outbox.PeekPending(ctx, e.batchSize)
		if err != nil {
			return fmt.Errorf("read outbox: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		resp, err := e.gw.Push(ctx, batch)
		if err != nil {
			for i := range batch {
				if ferr := e.outbox.MarkFailed(ctx, batch[i].ID, err); ferr != nil {
					e.log.Error(ctx, "record push failure", "intent", batch[i].ID, "error", ferr)
				}
				e.warnStuckIntent(ctx, &batch[i])
			}
			return fmt.Errorf("push batch: %w", err)
		}

		applied := make(map[string]bool, len(resp.Applied))
		for _, id := range resp.Applied {
			applied[id] = true
		}

		var rejected int
		for i := range batch {
			m := &batch[i]
			if applied[m.ID] {
				if err := e.outbox.MarkApplied(ctx, m.ID); err != nil {
					return fmt.Errorf("ack intent %s: %w", m.ID, err)
				}
				continue
			}
			rejected++
			cause := fmt.Errorf("%w: intent not in applied set", common.ErrGatewayFailure)
			if err := e.outbox.MarkFailed(ctx, m.ID, cause); err != nil {
				e.log.Error(ctx, "record push rejection", "intent", m.ID, "error", err)
			}
			e.warnStuckIntent(ctx, m)
		}
		if rejected > 0 {
			return fmt.Errorf("push batch: %w: %d of %d intents rejected",
				common.ErrGatewayFailure, rejected, len(batch))
		}

		e.log.Debug(ctx, "pushed outbox batch", "count", len(batch))
	}
}

// warnStuckIntent flags an intent whose attempt count, including the failure
// just recorded, has reached failWarnAttempts.
func (e *Engine) warnStuckIntent(ctx context.Context, m *models.Mutation) {
	if attempts := m.AttemptCount + 1; attempts >= failWarnAttempts {
		e.log.Warn(ctx, "intent repeatedly failing to push",
			"intent", m.ID, "table", m.TableName, "entity", m.EntityID, "attempts", attempts)
	}
}

// pull fetches remote changes since the stored cursor and applies them,
// store first, projections second, cursor last. The remote version wins
// wholesale per id; the dirty flag survives only while an intent for that
// entity is still queued.
func (e *Engine) pull(ctx context.Context) error {
	cur, err := e.cursor.Get(ctx)
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}

	resp, err := e.gw.Pull(ctx, cur)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	if err := e.applyPull(ctx, resp); err != nil {
		return err
	}

	// The cursor moves only once the whole response is in the store, so a
	// crash mid-apply replays the same window instead of skipping it.
	if resp.Cursor != "" && resp.Cursor != cur {
		if err := e.cursor.Set(ctx, resp.Cursor); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
	}
	return nil
}

func (e *Engine) applyPull(ctx context.Context, resp *gateway.PullResponse) error {
	for i := range resp.CashSessions {
		s := &resp.CashSessions[i]
		if err := e.stamp(ctx, &s.BaseModel); err != nil {
			return err
		}
		if err := e.records.UpsertCashSession(ctx, s); err != nil {
			return fmt.Errorf("apply cash session %s: %w", s.ID, err)
		}
	}
	for i := range resp.MttSessions {
		s := &resp.MttSessions[i]
		if err := e.stamp(ctx, &s.BaseModel); err != nil {
			return err
		}
		if err := e.records.UpsertTournamentSession(ctx, s); err != nil {
			return fmt.Errorf("apply tournament session %s: %w", s.ID, err)
		}
	}
	for i := range resp.LedgerEntries {
		en := &resp.LedgerEntries[i]
		if err := e.stamp(ctx, &en.BaseModel); err != nil {
			return err
		}
		if err := e.records.UpsertLedgerEntry(ctx, en); err != nil {
			return fmt.Errorf("apply ledger entry %s: %w", en.ID, err)
		}
	}
	for i := range resp.Policies {
		p := &resp.Policies[i]
		if err := e.stamp(ctx, &p.BaseModel); err != nil {
			return err
		}
		if err := e.records.UpsertPolicy(ctx, p); err != nil {
			return fmt.Errorf("apply policy %s: %w", p.ID, err)
		}
	}
	for i := range resp.SimRuns {
		r := &resp.SimRuns[i]
		if err := e.stamp(ctx, &r.BaseModel); err != nil {
			return err
		}
		if err := e.records.UpsertSimRun(ctx, r); err != nil {
			return fmt.Errorf("apply sim run %s: %w", r.ID, err)
		}
	}

	e.proj.ApplyCashSessions(resp.CashSessions...)
	e.proj.ApplyTournamentSessions(resp.MttSessions...)
	e.proj.ApplyLedgerEntries(resp.LedgerEntries...)
	e.proj.ApplyPolicies(resp.Policies...)
	e.proj.ApplySimRuns(resp.SimRuns...)
	return nil
}

// stamp normalizes a pulled record before it is stored: the remote copy is
// clean unless a local intent for the same entity is still waiting to push,
// in which case the dirty flag stays up so the UI keeps showing the pending
// marker.
func (e *Engine) stamp(ctx context.Context, b *models.BaseModel) error {
	pending, err := e.outbox.HasPendingFor(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("check pending intents for %s: %w", b.ID, err)
	}
	b.Dirty = pending
	return nil
}
