// Package projections holds the in-memory caches the UI reads from. They are
// hydrated once from the durable store at session start and then kept current
// by the sync engine and the domain services; the store itself is never
// queried on the read path.
package projections

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/client/repositories/records"
)

// Entity is the minimal surface shared by every cached model.
type Entity interface {
	EntityID() string
	Deleted() bool
}

// Projections caches every synced collection keyed by entity id. Tombstoned
// records are stored (so a late pull can still overwrite them) but filtered
// from every accessor. All methods are safe for concurrent use.
type Projections struct {
	mu          sync.RWMutex
	cash        map[string]models.CashSession
	mtt         map[string]models.TournamentSession
	ledger      map[string]models.LedgerEntry
	policies    map[string]models.Policy
	simRuns     map[string]models.SimRun
	attachments map[string]models.Attachment

	observers map[int]func()
	nextObs   int
}

func New() *Projections {
	p := &Projections{observers: map[int]func(){}}
	p.reset()
	return p
}

// reset replaces every collection with an empty one. Caller holds mu.
func (p *Projections) reset() {
	p.cash = map[string]models.CashSession{}
	p.mtt = map[string]models.TournamentSession{}
	p.ledger = map[string]models.LedgerEntry{}
	p.policies = map[string]models.Policy{}
	p.simRuns = map[string]models.SimRun{}
	p.attachments = map[string]models.Attachment{}
}

// Subscribe registers a callback invoked after every hydration, apply or
// clear. Callbacks run synchronously on the mutating goroutine and must not
// call back into Projections mutators. The returned function cancels the
// subscription.
func (p *Projections) Subscribe(fn func()) func() {
	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Projections) notify() {
	p.mu.RLock()
	fns := make([]func(), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Hydrate bulk-loads every collection from the repository, replacing whatever
// was cached. Rows the repository reports as corrupt are absent from the
// result but do not abort hydration; their errors are joined and returned
// after the caches are populated.
func (p *Projections) Hydrate(ctx context.Context, repo records.Repository) error {
	var errs []error

	cash, err := repo.ListCashSessions(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	mtt, err := repo.ListTournamentSessions(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	ledger, err := repo.ListLedgerEntries(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	policies, err := repo.ListPolicies(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	simRuns, err := repo.ListSimRuns(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	attachments, err := repo.ListAttachments(ctx)
	if err != nil {
		errs = append(errs, err)
	}

	p.mu.Lock()
	p.reset()
	put(p.cash, cash)
	put(p.mtt, mtt)
	put(p.ledger, ledger)
	put(p.policies, policies)
	put(p.simRuns, simRuns)
	put(p.attachments, attachments)
	p.mu.Unlock()

	p.notify()
	return errors.Join(errs...)
}

// Clear empties every collection. Called on logout so the next identity never
// sees the previous one's records.
func (p *Projections) Clear() {
	p.mu.Lock()
	p.reset()
	p.mu.Unlock()
	p.notify()
}

// ApplyCashSessions overwrites the cached versions of the given sessions.
// The newest write wins wholesale per id; observers fire once per call.
func (p *Projections) ApplyCashSessions(ss ...models.CashSession) {
	if len(ss) == 0 {
		return
	}
	p.mu.Lock()
	put(p.cash, ss)
	p.mu.Unlock()
	p.notify()
}

func (p *Projections) ApplyTournamentSessions(ss ...models.TournamentSession) {
	if len(ss) == 0 {
		return
	}
	p.mu.Lock()
	put(p.mtt, ss)
	p.mu.Unlock()
	p.notify()
}

func (p *Projections) ApplyLedgerEntries(es ...models.LedgerEntry) {
	if len(es) == 0 {
		return
	}
	p.mu.Lock()
	put(p.ledger, es)
	p.mu.Unlock()
	p.notify()
}

func (p *Projections) ApplyPolicies(ps ...models.Policy) {
	if len(ps) == 0 {
		return
	}
	p.mu.Lock()
	put(p.policies, ps)
	p.mu.Unlock()
	p.notify()
}

func (p *Projections) ApplySimRuns(rs ...models.SimRun) {
	if len(rs) == 0 {
		return
	}
	p.mu.Lock()
	put(p.simRuns, rs)
	p.mu.Unlock()
	p.notify()
}

func (p *Projections) ApplyAttachments(as ...models.Attachment) {
	if len(as) == 0 {
		return
	}
	p.mu.Lock()
	put(p.attachments, as)
	p.mu.Unlock()
	p.notify()
}

// CashSessions returns live (non-tombstoned) cash sessions, newest start
// first.
func (p *Projections) CashSessions() []models.CashSession {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := live(p.cash)
	sort.Slice(out, func(i, j int) bool { return out[i].StartTs > out[j].StartTs })
	return out
}

// TournamentSessions returns live tournament sessions, newest start first.
func (p *Projections) TournamentSessions() []models.TournamentSession {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := live(p.mtt)
	sort.Slice(out, func(i, j int) bool { return out[i].StartTs > out[j].StartTs })
	return out
}

// LedgerEntries returns live ledger entries, most recent movement first.
func (p *Projections) LedgerEntries() []models.LedgerEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := live(p.ledger)
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt > out[j].OccurredAt })
	return out
}

// Policies returns live policies ordered by name.
func (p *Projections) Policies() []models.Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := live(p.policies)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SimRuns returns live simulation runs, newest first.
func (p *Projections) SimRuns() []models.SimRun {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := live(p.simRuns)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// Attachments returns live attachments, newest first.
func (p *Projections) Attachments() []models.Attachment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := live(p.attachments)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// CashSession looks up a live cash session by id.
func (p *Projections) CashSession(id string) (models.CashSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.cash[id]
	return s, ok && !s.Deleted()
}

// TournamentSession looks up a live tournament session by id.
func (p *Projections) TournamentSession(id string) (models.TournamentSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.mtt[id]
	return s, ok && !s.Deleted()
}

// LedgerEntry looks up a live ledger entry by id.
func (p *Projections) LedgerEntry(id string) (models.LedgerEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.ledger[id]
	return e, ok && !e.Deleted()
}

// Policy looks up a live policy by id.
func (p *Projections) Policy(id string) (models.Policy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pl, ok := p.policies[id]
	return pl, ok && !pl.Deleted()
}

// PendingUploads returns live attachments whose bytes still have to be sent
// to remote storage.
func (p *Projections) PendingUploads() []models.Attachment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []models.Attachment
	for _, a := range p.attachments {
		if a.UploadRequired && !a.Deleted() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

func put[T Entity](m map[string]T, rows []T) {
	for _, r := range rows {
		m[r.EntityID()] = r
	}
}

func live[T Entity](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, r := range m {
		if !r.Deleted() {
			out = append(out, r)
		}
	}
	return out
}
