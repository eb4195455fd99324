// Package memstore provides in-process implementations of the relational
// and time-series adapters, mirroring the in-memory fallbacks already
// present for the vector and cache adapters (internal/storage/vector,
// internal/storage/cache). They back unit tests for every package that
// consumes storage.RelationalAdapter / storage.TimeSeriesAdapter without
// requiring a live PostgreSQL instance, and serve as the default adapter for
// local runs when no relational DSN is configured.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

type holdingKey struct{ userID, ticker string }

// Relational is an in-process implementation of storage.RelationalAdapter.
type Relational struct {
	mu          sync.Mutex
	episodic    map[string]memory.Episodic
	emotional   map[string]memory.Emotional
	procedural  map[string]memory.Procedural
	identity    map[string]memory.Identity
	holdings    map[holdingKey]portfolio.Holding
	txs         []portfolio.Transaction
	intents     map[string]intent.ScheduledIntent
	executions  []intent.Execution
	locks       map[string]time.Time
}

// NewRelational constructs an empty in-process relational adapter.
func NewRelational() *Relational {
	return &Relational{
		episodic:   make(map[string]memory.Episodic),
		emotional:  make(map[string]memory.Emotional),
		procedural: make(map[string]memory.Procedural),
		identity:   make(map[string]memory.Identity),
		holdings:   make(map[holdingKey]portfolio.Holding),
		intents:    make(map[string]intent.ScheduledIntent),
		locks:      make(map[string]time.Time),
	}
}

var _ storage.RelationalAdapter = (*Relational)(nil)

func (r *Relational) UpsertEpisodic(_ context.Context, e memory.Episodic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodic[e.MemoryID] = e
	return nil
}

func (r *Relational) UpsertEmotional(_ context.Context, e memory.Emotional) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emotional[e.MemoryID] = e
	return nil
}

func (r *Relational) UpsertProcedural(_ context.Context, p memory.Procedural) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procedural[p.MemoryID] = p
	return nil
}

func (r *Relational) GetIdentity(_ context.Context, userID string) (memory.Identity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.identity[userID]
	return i, ok, nil
}

func (r *Relational) UpsertIdentity(_ context.Context, i memory.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity[i.UserID] = i
	return nil
}

func (r *Relational) DeleteTypedByMemoryID(_ context.Context, memoryID string, episodic, emotional, procedural bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if episodic {
		delete(r.episodic, memoryID)
	}
	if emotional {
		delete(r.emotional, memoryID)
	}
	if procedural {
		delete(r.procedural, memoryID)
	}
	return nil
}

// GetEpisodic exposes a direct lookup for maintenance jobs and tests.
func (r *Relational) GetEpisodic(memoryID string) (memory.Episodic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.episodic[memoryID]
	return e, ok
}

// GetEmotional exposes a direct lookup for maintenance jobs and tests.
func (r *Relational) GetEmotional(memoryID string) (memory.Emotional, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.emotional[memoryID]
	return e, ok
}

func (r *Relational) UpsertHolding(_ context.Context, h portfolio.Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holdings[holdingKey{h.UserID, h.Ticker}] = h
	return nil
}

func (r *Relational) GetHolding(_ context.Context, userID, ticker string) (portfolio.Holding, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holdings[holdingKey{userID, ticker}]
	return h, ok, nil
}

func (r *Relational) ListHoldings(_ context.Context, userID string) ([]portfolio.Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []portfolio.Holding
	for k, h := range r.holdings {
		if k.userID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *Relational) DeleteHolding(_ context.Context, userID, ticker string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.holdings, holdingKey{userID, ticker})
	return nil
}

func (r *Relational) AppendTransaction(_ context.Context, tx portfolio.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, tx)
	return nil
}

func (r *Relational) ListTransactions(_ context.Context, userID, ticker string) ([]portfolio.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []portfolio.Transaction
	for _, tx := range r.txs {
		if tx.UserID == userID && tx.Ticker == ticker {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *Relational) CreateIntent(_ context.Context, si intent.ScheduledIntent) (intent.ScheduledIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	si.CreatedAt, si.UpdatedAt = now, now
	r.intents[si.ID] = si
	return si, nil
}

func (r *Relational) UpdateIntent(_ context.Context, si intent.ScheduledIntent) (intent.ScheduledIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	si.UpdatedAt = time.Now().UTC()
	r.intents[si.ID] = si
	return si, nil
}

func (r *Relational) GetIntent(_ context.Context, id string) (intent.ScheduledIntent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	si, ok := r.intents[id]
	return si, ok, nil
}

func (r *Relational) ListIntents(_ context.Context, userID string) ([]intent.ScheduledIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []intent.ScheduledIntent
	for _, si := range r.intents {
		if userID == "" || si.UserID == userID {
			out = append(out, si)
		}
	}
	return out, nil
}

func (r *Relational) DeleteIntent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.intents, id)
	return nil
}

func (r *Relational) PendingIntents(_ context.Context, userID string, now time.Time) ([]intent.ScheduledIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []intent.ScheduledIntent
	for _, si := range r.intents {
		if !si.Enabled || si.NextCheck == nil || si.NextCheck.After(now) {
			continue
		}
		if userID != "" && si.UserID != userID {
			continue
		}
		out = append(out, si)
	}
	sortIntentsByNextCheck(out)
	return out, nil
}

func sortIntentsByNextCheck(intents []intent.ScheduledIntent) {
	for i := 1; i < len(intents); i++ {
		for j := i; j > 0 && intents[j].NextCheck.Before(*intents[j-1].NextCheck); j-- {
			intents[j], intents[j-1] = intents[j-1], intents[j]
		}
	}
}

func (r *Relational) ClaimIntents(_ context.Context, ids []string, claimTTL time.Duration) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var claimed []string
	for _, id := range ids {
		si, ok := r.intents[id]
		if !ok {
			continue
		}
		if si.ClaimedAt != nil && now.Before(si.ClaimedAt.Add(claimTTL)) {
			continue
		}
		claimedAt := now
		si.ClaimedAt = &claimedAt
		r.intents[id] = si
		claimed = append(claimed, id)
	}
	return claimed, nil
}

func (r *Relational) RecordExecution(_ context.Context, exec intent.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions = append(r.executions, exec)
	return nil
}

func (r *Relational) ListExecutions(_ context.Context, intentID string, limit int) ([]intent.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []intent.Execution
	for i := len(r.executions) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.executions[i].IntentID == intentID {
			out = append(out, r.executions[i])
		}
	}
	return out, nil
}

func (r *Relational) AcquireLock(_ context.Context, name string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if until, ok := r.locks[name]; ok && now.Before(until) {
		return false, nil
	}
	r.locks[name] = now.Add(ttl)
	return true, nil
}

func (r *Relational) ReleaseLock(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, name)
	return nil
}

func (r *Relational) ForceUnlock(ctx context.Context, name string) error {
	return r.ReleaseLock(ctx, name)
}

func (r *Relational) Health(_ context.Context) storage.Health {
	return storage.Health{OK: true}
}
