// Package storage declares the four adapter capability interfaces the
// persistence orchestrator and hybrid retrieval engine depend on. Adapters
// are pure: no cross-store logic lives here (spec §4.1).
package storage

import (
	"context"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
)

// Health is the result of an adapter's readiness probe, surfaced at startup
// and via /health/full.
type Health struct {
	OK        bool
	LatencyMS int64
	Detail    string
}

// VectorFilter narrows a vector query or scan to a subset of metadata.
type VectorFilter struct {
	UserID string
	Layer  string
	Type   string
	Tags   []string
	Since  *time.Time
	Until  *time.Time
}

// VectorMatch is one scored hit from a vector query. Embedding is populated
// on Get (and available on Query/Scan results) so callers that need to
// compare two records directly — compaction's near-duplicate pass, chiefly
// — don't need a second round trip.
type VectorMatch struct {
	ID        string
	Score     float64 // 1 - cosine_distance
	Document  string
	Metadata  map[string]interface{}
	Embedding []float32
}

// VectorAdapter is the single source of truth for memory content + embedding.
type VectorAdapter interface {
	Upsert(ctx context.Context, id string, embedding []float32, document string, metadata map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, ids []string) ([]VectorMatch, error)
	Query(ctx context.Context, embedding []float32, filter VectorFilter, topK int) ([]VectorMatch, error)
	Scan(ctx context.Context, filter VectorFilter, offset, limit int) ([]VectorMatch, int, error)
	// UpdateMetadata replaces an existing record's whole metadata map, leaving
	// its embedding and document untouched. Used by the maintenance engine's
	// forgetting/compaction/promotion jobs, which adjust routing and decay
	// fields without re-embedding content.
	UpdateMetadata(ctx context.Context, id string, metadata map[string]interface{}) error
	Health(ctx context.Context) Health
}

// TimeSeriesRow is a single append-only, time-indexed record.
type TimeSeriesRow struct {
	UserID    string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// RangePredicate narrows a range_scan to a table/user/time-window.
type RangePredicate struct {
	Table  string
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
}

// TimeSeriesAdapter backs episodic_memories/emotional_memories/portfolio_snapshots.
type TimeSeriesAdapter interface {
	Insert(ctx context.Context, table string, row TimeSeriesRow) error
	Delete(ctx context.Context, table string, predicate func(TimeSeriesRow) bool) error
	RangeScan(ctx context.Context, p RangePredicate) ([]TimeSeriesRow, error)
	Health(ctx context.Context) Health
}

// RelationalAdapter is CRUD + parameterized queries + the claim_rows primitive
// (spec §4.1) used by the scheduled-intent engine and maintenance locks.
type RelationalAdapter interface {
	UpsertEpisodic(ctx context.Context, e memory.Episodic) error
	UpsertEmotional(ctx context.Context, e memory.Emotional) error
	UpsertProcedural(ctx context.Context, p memory.Procedural) error
	GetIdentity(ctx context.Context, userID string) (memory.Identity, bool, error)
	UpsertIdentity(ctx context.Context, i memory.Identity) error
	DeleteTypedByMemoryID(ctx context.Context, memoryID string, episodic, emotional, procedural bool) error

	UpsertHolding(ctx context.Context, h portfolio.Holding) error
	GetHolding(ctx context.Context, userID, ticker string) (portfolio.Holding, bool, error)
	ListHoldings(ctx context.Context, userID string) ([]portfolio.Holding, error)
	DeleteHolding(ctx context.Context, userID, ticker string) error
	AppendTransaction(ctx context.Context, tx portfolio.Transaction) error
	ListTransactions(ctx context.Context, userID, ticker string) ([]portfolio.Transaction, error)

	CreateIntent(ctx context.Context, si intent.ScheduledIntent) (intent.ScheduledIntent, error)
	UpdateIntent(ctx context.Context, si intent.ScheduledIntent) (intent.ScheduledIntent, error)
	GetIntent(ctx context.Context, id string) (intent.ScheduledIntent, bool, error)
	ListIntents(ctx context.Context, userID string) ([]intent.ScheduledIntent, error)
	DeleteIntent(ctx context.Context, id string) error
	PendingIntents(ctx context.Context, userID string, now time.Time) ([]intent.ScheduledIntent, error)
	ClaimIntents(ctx context.Context, ids []string, claimTTL time.Duration) ([]string, error)
	RecordExecution(ctx context.Context, exec intent.Execution) error
	ListExecutions(ctx context.Context, intentID string, limit int) ([]intent.Execution, error)

	// AcquireLock implements the compare-and-set lock row used by the
	// maintenance engine (spec §4.6 "Concurrency control").
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
	ForceUnlock(ctx context.Context, name string) error

	Health(ctx context.Context) Health
}

// CacheAdapter backs the retrieval engine's synthesis memoization; the
// streaming dedupe cache is an in-process map and does not use it.
type CacheAdapter interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	ListPushBounded(ctx context.Context, key, value string, maxLen int) error
	ListRange(ctx context.Context, key string) ([]string, error)
	Health(ctx context.Context) Health
}

// GraphEdgeKind is a memory-to-memory relation type (spec §9 design notes).
type GraphEdgeKind string

const (
	EdgeSimilarTo GraphEdgeKind = "SIMILAR_TO"
	EdgeLedTo     GraphEdgeKind = "LED_TO"
)

// GraphEdge connects two memories; traversal depth is bounded at 2 hops.
type GraphEdge struct {
	SrcID    string
	DstID    string
	Relation GraphEdgeKind
	Weight   float64
}

// GraphAdapter is optional; when not configured, graph_proximity scores 0
// uniformly (spec §9).
type GraphAdapter interface {
	AddEdge(ctx context.Context, e GraphEdge) error
	Neighbors(ctx context.Context, memoryID string, depth int) (map[string]int, error) // memory id -> hop distance
	Health(ctx context.Context) Health
}
