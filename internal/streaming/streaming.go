// Package streaming implements the streaming orchestrator described in
// spec.md §4.8: a bounded per-conversation buffer that flushes to the
// extraction pipeline on an explicit flush, a size threshold, or idle
// timeout, and returns deduped hybrid-retrieval injections for the latest
// turn. Mutex-guarded map-of-buffers mirrors the teacher's Scheduler
// pattern in services/automation/automation_service.go (single mutex
// guarding a map of per-entity state, touched only by the owning caller).
package streaming

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/extraction"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/retrieval"
)

const (
	defaultBufferThreshold = 32
	idleFlushAfter         = 2 * time.Second
	dedupeTTL              = 10 * time.Minute
	injectionTopK          = 5
)

type conversationState struct {
	mu         sync.Mutex
	userID     string
	buffer     []llmclient.Turn
	lastAppend time.Time
	dedupe     map[string]time.Time
}

// Injection is one hybrid-retrieval result surfaced to the caller after a
// flush, filtered against the per-conversation dedupe cache.
type Injection struct {
	MemoryID string
	Document string
	Score    float64
}

// FlushOutcome is returned from Append when a flush occurred.
type FlushOutcome struct {
	Flushed    bool
	Extraction extraction.Output
	Injections []Injection
}

// Orchestrator owns the per-conversation buffers.
type Orchestrator struct {
	mu            sync.Mutex
	conversations map[string]*conversationState
	pipeline      *extraction.Pipeline
	retrieval     *retrieval.Engine
	threshold     int
	now           func() time.Time
}

func New(pipeline *extraction.Pipeline, retr *retrieval.Engine) *Orchestrator {
	return &Orchestrator{
		conversations: make(map[string]*conversationState),
		pipeline:      pipeline,
		retrieval:     retr,
		threshold:     defaultBufferThreshold,
		now:           time.Now,
	}
}

// WithThreshold overrides the buffer flush threshold (test hook / config).
func (o *Orchestrator) WithThreshold(n int) *Orchestrator {
	o.threshold = n
	return o
}

// WithClock overrides the orchestrator's clock (test hook).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

func (o *Orchestrator) stateFor(conversationID string) *conversationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	cs, ok := o.conversations[conversationID]
	if !ok {
		cs = &conversationState{dedupe: make(map[string]time.Time)}
		o.conversations[conversationID] = cs
	}
	return cs
}

// Append adds a turn to the conversation's buffer and flushes it to the
// extraction pipeline when flush is requested, the buffer exceeds the
// threshold, or the conversation has been idle >= 2s (spec.md §4.8).
func (o *Orchestrator) Append(ctx context.Context, userID, conversationID string, turn llmclient.Turn, flush bool) (FlushOutcome, error) {
	cs := o.stateFor(conversationID)

	cs.mu.Lock()
	now := o.now()
	idle := !cs.lastAppend.IsZero() && now.Sub(cs.lastAppend) >= idleFlushAfter
	cs.userID = userID
	cs.buffer = append(cs.buffer, turn)
	cs.lastAppend = now
	shouldFlush := flush || len(cs.buffer) > o.threshold || idle

	if !shouldFlush {
		cs.mu.Unlock()
		return FlushOutcome{}, nil
	}

	history := cs.buffer
	cs.buffer = nil
	cs.mu.Unlock()

	out, err := o.pipeline.Run(ctx, extraction.Input{UserID: userID, History: history})
	if err != nil {
		return FlushOutcome{}, apperrors.DependencyUnavailable("extraction pipeline", err)
	}

	injections, err := o.injectionsFor(ctx, userID, turn, cs)
	if err != nil {
		return FlushOutcome{}, err
	}

	return FlushOutcome{Flushed: true, Extraction: out, Injections: injections}, nil
}

// SweepIdle flushes every conversation that has been idle for at least
// idleFlushAfter without a new Append, implementing the background
// orchestrator batch-flush timer named in spec.md §9 "Background work".
func (o *Orchestrator) SweepIdle(ctx context.Context) ([]FlushOutcome, error) {
	now := o.now()

	o.mu.Lock()
	var due []string
	for id, cs := range o.conversations {
		cs.mu.Lock()
		idle := len(cs.buffer) > 0 && now.Sub(cs.lastAppend) >= idleFlushAfter
		cs.mu.Unlock()
		if idle {
			due = append(due, id)
		}
	}
	o.mu.Unlock()

	outcomes := make([]FlushOutcome, 0, len(due))
	for _, conversationID := range due {
		cs := o.stateFor(conversationID)

		cs.mu.Lock()
		history := cs.buffer
		userID := cs.userID
		cs.buffer = nil
		cs.mu.Unlock()

		if len(history) == 0 {
			continue
		}

		out, err := o.pipeline.Run(ctx, extraction.Input{UserID: userID, History: history})
		if err != nil {
			return outcomes, apperrors.DependencyUnavailable("extraction pipeline", err)
		}
		outcomes = append(outcomes, FlushOutcome{Flushed: true, Extraction: out})
	}
	return outcomes, nil
}

// injectionsFor retrieves top-K hybrid results for the latest turn and
// filters out anything already surfaced within the last 10 minutes for this
// conversation (spec.md §4.8).
func (o *Orchestrator) injectionsFor(ctx context.Context, userID string, latest llmclient.Turn, cs *conversationState) ([]Injection, error) {
	if o.retrieval == nil || latest.Content == "" {
		return nil, nil
	}

	res, err := o.retrieval.Retrieve(ctx, userID, latest.Content, retrieval.Filters{}, injectionTopK, 0, retrieval.Options{})
	if err != nil {
		return nil, apperrors.DependencyUnavailable("retrieval engine", err)
	}

	now := o.now()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for id, expiry := range cs.dedupe {
		if now.After(expiry) {
			delete(cs.dedupe, id)
		}
	}

	var out []Injection
	for _, m := range res.Memories {
		if _, suppressed := cs.dedupe[m.ID]; suppressed {
			continue
		}
		cs.dedupe[m.ID] = now.Add(dedupeTTL)
		out = append(out, Injection{MemoryID: m.ID, Document: m.Document, Score: m.FinalScore})
	}
	return out, nil
}
