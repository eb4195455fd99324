// Package maintenance runs the scheduled upkeep jobs described in
// spec.md §4.6: consolidation, forgetting, compaction, promotion, and
// reconciliation, each idempotent and safely re-runnable, guarded by a
// per-user compare-and-set lock row.
package maintenance

import (
	"context"
	"time"

	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

const lockTTL = 5 * time.Minute

// Report tallies what each job did, returned to the maintenance endpoint /
// CLI subcommand for operator visibility.
type Report struct {
	ConsolidationReplayed int
	ForgettingArchived    int
	ForgettingDecayed     int
	CompactionMerged      int
	PromotionPromoted     int
	ReconciliationApplied int
}

// Engine runs the jobs over a single user's memories.
type Engine struct {
	vector     storage.VectorAdapter
	relational storage.RelationalAdapter
	synth      llmclient.Synthesizer
	embedder   llmclient.Embedder
	log        *logging.Logger
	now        func() time.Time
}

func New(vector storage.VectorAdapter, relational storage.RelationalAdapter, synth llmclient.Synthesizer, embedder llmclient.Embedder, log *logging.Logger) *Engine {
	return &Engine{vector: vector, relational: relational, synth: synth, embedder: embedder, log: log, now: time.Now}
}

// WithClock overrides the engine's clock (test hook).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run acquires the per-user lock, runs every job in order, and releases the
// lock. Returns errors.Conflict if the lock is already held by a concurrent
// run (spec §4.6 "Concurrency control").
func (e *Engine) Run(ctx context.Context, userID string) (Report, error) {
	lockName := "maintenance:" + userID
	acquired, err := e.relational.AcquireLock(ctx, lockName, lockTTL)
	if err != nil {
		return Report{}, apperrors.StorageFailure("relational", err)
	}
	if !acquired {
		return Report{}, apperrors.Conflict("maintenance run already in progress for this user")
	}
	defer e.relational.ReleaseLock(ctx, lockName)

	var report Report

	replayed, err := e.consolidate(ctx, userID)
	if err != nil {
		return report, err
	}
	report.ConsolidationReplayed = replayed

	archived, decayed, err := e.forget(ctx, userID)
	if err != nil {
		return report, err
	}
	report.ForgettingArchived = archived
	report.ForgettingDecayed = decayed

	merged, err := e.compact(ctx, userID)
	if err != nil {
		return report, err
	}
	report.CompactionMerged = merged

	promoted, err := e.promote(ctx, userID)
	if err != nil {
		return report, err
	}
	report.PromotionPromoted = promoted

	applied, err := e.reconcile(ctx, userID)
	if err != nil {
		return report, err
	}
	report.ReconciliationApplied = applied

	if e.log != nil {
		e.log.LogMaintenanceRun(ctx, userID, "consolidation", report.ConsolidationReplayed, nil)
		e.log.LogMaintenanceRun(ctx, userID, "forgetting_archived", report.ForgettingArchived, nil)
		e.log.LogMaintenanceRun(ctx, userID, "forgetting_decayed", report.ForgettingDecayed, nil)
		e.log.LogMaintenanceRun(ctx, userID, "compaction", report.CompactionMerged, nil)
		e.log.LogMaintenanceRun(ctx, userID, "promotion", report.PromotionPromoted, nil)
		e.log.LogMaintenanceRun(ctx, userID, "reconciliation", report.ReconciliationApplied, nil)
	}
	return report, nil
}

// ForceUnlock clears a stale lock row (spec §4.6: "a force-unlock path
// exists for stale lock recovery").
func (e *Engine) ForceUnlock(ctx context.Context, userID string) error {
	return e.relational.ForceUnlock(ctx, "maintenance:"+userID)
}

func (e *Engine) scanUser(ctx context.Context, userID string) ([]storage.VectorMatch, error) {
	matches, _, err := e.vector.Scan(ctx, storage.VectorFilter{UserID: userID}, 0, 0)
	if err != nil {
		return nil, apperrors.StorageFailure("vector", err)
	}
	return matches, nil
}

func metaString(md map[string]interface{}, key string) string {
	v, _ := md[key].(string)
	return v
}

func metaFloat(md map[string]interface{}, key string) float64 {
	switch v := md[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func metaInt(md map[string]interface{}, key string) int {
	switch v := md[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func metaTime(md map[string]interface{}, key string) time.Time {
	if v, ok := md[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}
