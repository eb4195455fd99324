// Package persistence implements the write-plan fan-out described in
// spec.md §4.2: vector write required, typed-store writes best-effort with
// retry, one PersistenceOutcome entry per attempted adapter.
package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	"github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

// AdapterName identifies one attempted write in a PersistenceOutcome.
type AdapterName string

const (
	AdapterVector     AdapterName = "vector"
	AdapterEpisodic   AdapterName = "episodic"
	AdapterEmotional  AdapterName = "emotional"
	AdapterProcedural AdapterName = "procedural"
	AdapterPortfolio  AdapterName = "portfolio"
)

// AttemptOutcome is one adapter's result within a PersistenceOutcome.
type AttemptOutcome struct {
	Adapter   AdapterName
	OK        bool
	ErrorKind string
	LatencyMS int64
}

// PersistenceOutcome is the result of fanning a WritePlan out to adapters.
type PersistenceOutcome struct {
	MemoryID      string
	OK            bool // false only if the required vector write failed
	Attempts      []AttemptOutcome
	CorrelationID string
}

// WritePlan is derived from a memory's typed fields (spec.md §4.2 "write
// plan rules").
type WritePlan struct {
	Mem       memory.Memory
	Episodic  *memory.Episodic
	Emotional *memory.Emotional
	Procedural *memory.Procedural
	Holding   *portfolio.Holding
}

// DerivePlan builds a WritePlan from a memory and its optional typed
// projections, following the rules in spec.md §4.2.
func DerivePlan(m memory.Memory, episodic *memory.Episodic, emotional *memory.Emotional, procedural *memory.Procedural, holding *portfolio.Holding) WritePlan {
	plan := WritePlan{Mem: m}
	if episodic != nil && !episodic.EventTimestamp.IsZero() {
		plan.Episodic = episodic
	}
	if emotional != nil && emotional.EmotionalState != "" {
		plan.Emotional = emotional
	}
	if procedural != nil && procedural.SkillName != "" {
		plan.Procedural = procedural
	}
	if holding != nil {
		plan.Holding = holding
	}
	return plan
}

// Orchestrator fans write plans out to the configured adapters.
type Orchestrator struct {
	vector     storage.VectorAdapter
	relational storage.RelationalAdapter
	log        *logging.Logger
}

func New(vector storage.VectorAdapter, relational storage.RelationalAdapter, log *logging.Logger) *Orchestrator {
	return &Orchestrator{vector: vector, relational: relational, log: log}
}

const (
	retryInitial = 100 * time.Millisecond
	retryFactor  = 2.0
	retryCap     = 2 * time.Second
	retryMax     = 3
)

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitial
	b.Multiplier = retryFactor
	b.MaxInterval = retryCap
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, retryMax-1)
}

// Persist fans plan out: vector write first and required, then typed writes
// best-effort, serialized per spec.md §5 "writes to different stores for a
// single memory are serialized (vector first, then typed)".
func (o *Orchestrator) Persist(ctx context.Context, plan WritePlan) (PersistenceOutcome, error) {
	outcome := PersistenceOutcome{MemoryID: plan.Mem.ID, CorrelationID: logging.GetTraceID(ctx)}

	vectorStart := time.Now()
	metadata := buildMetadata(plan)
	err := o.vector.Upsert(ctx, plan.Mem.ID, plan.Mem.Embedding, plan.Mem.Content, metadata)
	vectorAttempt := AttemptOutcome{Adapter: AdapterVector, LatencyMS: time.Since(vectorStart).Milliseconds()}
	if err != nil {
		vectorAttempt.ErrorKind = "storage_error"
		outcome.Attempts = append(outcome.Attempts, vectorAttempt)
		outcome.OK = false
		if o.log != nil {
			o.log.LogPersistenceOutcome(ctx, plan.Mem.ID, map[string]bool{string(AdapterVector): false}, err)
		}
		return outcome, errors.StorageFailure("vector", err)
	}
	vectorAttempt.OK = true
	outcome.Attempts = append(outcome.Attempts, vectorAttempt)
	outcome.OK = true

	results := map[string]bool{string(AdapterVector): true}

	if plan.Episodic != nil {
		attempt := o.attemptBestEffort(ctx, AdapterEpisodic, func(ctx context.Context) error {
			return o.relational.UpsertEpisodic(ctx, *plan.Episodic)
		})
		outcome.Attempts = append(outcome.Attempts, attempt)
		results[string(AdapterEpisodic)] = attempt.OK
	}
	if plan.Emotional != nil {
		attempt := o.attemptBestEffort(ctx, AdapterEmotional, func(ctx context.Context) error {
			return o.relational.UpsertEmotional(ctx, *plan.Emotional)
		})
		outcome.Attempts = append(outcome.Attempts, attempt)
		results[string(AdapterEmotional)] = attempt.OK
	}
	if plan.Procedural != nil {
		attempt := o.attemptBestEffort(ctx, AdapterProcedural, func(ctx context.Context) error {
			return o.relational.UpsertProcedural(ctx, *plan.Procedural)
		})
		outcome.Attempts = append(outcome.Attempts, attempt)
		results[string(AdapterProcedural)] = attempt.OK
	}
	if plan.Holding != nil {
		attempt := o.attemptBestEffort(ctx, AdapterPortfolio, func(ctx context.Context) error {
			return o.relational.UpsertHolding(ctx, *plan.Holding)
		})
		outcome.Attempts = append(outcome.Attempts, attempt)
		results[string(AdapterPortfolio)] = attempt.OK
	}

	if o.log != nil {
		o.log.LogPersistenceOutcome(ctx, plan.Mem.ID, results, nil)
	}
	return outcome, nil
}

func (o *Orchestrator) attemptBestEffort(ctx context.Context, adapter AdapterName, fn func(context.Context) error) AttemptOutcome {
	start := time.Now()
	err := backoff.Retry(func() error {
		return fn(ctx)
	}, newBackoff())
	attempt := AttemptOutcome{Adapter: adapter, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		attempt.ErrorKind = "storage_error"
		return attempt
	}
	attempt.OK = true
	return attempt
}

// buildMetadata constructs the vector-store metadata, recording the
// stored_in_* routing flags per spec.md §4.2 so delete can target only the
// stores actually used.
func buildMetadata(plan WritePlan) map[string]interface{} {
	md := map[string]interface{}{
		"user_id":     plan.Mem.UserID,
		"layer":       string(plan.Mem.Layer),
		"type":        string(plan.Mem.Type),
		"importance":  plan.Mem.Importance,
		"confidence":  plan.Mem.Confidence,
		"created_at":  plan.Mem.CreatedAt,
		"source":      string(plan.Mem.Source),
	}
	md[memory.MetaStoredInEpisodic] = plan.Episodic != nil
	md[memory.MetaStoredInEmotional] = plan.Emotional != nil
	md[memory.MetaStoredInProcedural] = plan.Procedural != nil
	if len(plan.Mem.Tags) > 0 {
		md["tags"] = plan.Mem.Tags
	}
	if len(plan.Mem.PersonaTags) > 0 {
		md["persona_tags"] = plan.Mem.PersonaTags
	}

	// Typed payloads ride along on the vector record so a reconciliation pass
	// can re-derive and re-apply a typed write without a round trip through
	// the extraction pipeline (spec.md §4.6 "Reconciliation").
	if plan.Episodic != nil {
		md["episodic_payload"] = *plan.Episodic
	}
	if plan.Emotional != nil {
		md["emotional_payload"] = *plan.Emotional
	}
	if plan.Procedural != nil {
		md["procedural_payload"] = *plan.Procedural
	}
	return md
}
