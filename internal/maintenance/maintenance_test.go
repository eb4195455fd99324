package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/vector"
)

func newTestEngine(clock func() time.Time) (*Engine, *vector.Store, *memstore.Relational) {
	v := vector.New()
	rel := memstore.NewRelational()
	stub := llmclient.NewStub(16)
	e := New(v, rel, stub, stub, nil).WithClock(clock)
	return e, v, rel
}

func seedMemory(t *testing.T, ctx context.Context, v *vector.Store, stub *llmclient.Stub, id, userID, content, layer string, md map[string]interface{}) {
	t.Helper()
	emb, err := stub.Embed(ctx, content)
	require.NoError(t, err)
	full := map[string]interface{}{"user_id": userID, "layer": layer}
	for k, val := range md {
		full[k] = val
	}
	require.NoError(t, v.Upsert(ctx, id, emb, content, full))
}

func TestRun_AcquiresAndReleasesLock(t *testing.T) {
	ctx := context.Background()
	e, _, rel := newTestEngine(time.Now)

	_, err := e.Run(ctx, "u1")
	require.NoError(t, err)

	acquired, err := rel.AcquireLock(ctx, "maintenance:u1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestConsolidate_ReplaysHighSignificanceOnly(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, v, _ := newTestEngine(func() time.Time { return now })
	stub := llmclient.NewStub(16)

	seedMemory(t, ctx, v, stub, "mem_hi", "u1", "high significance content", "episodic", map[string]interface{}{
		"importance": 0.9, "created_at": now, "last_accessed_at": now,
	})
	seedMemory(t, ctx, v, stub, "mem_lo", "u1", "low significance content", "episodic", map[string]interface{}{
		"importance": 0.1, "created_at": now, "last_accessed_at": now,
	})

	n, err := e.consolidate(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := v.Get(ctx, []string{"mem_hi"})
	require.NoError(t, err)
	require.Equal(t, 1, len(got))
	require.Equal(t, 1, got[0].Metadata["replay_count"])
}

func TestForget_ArchivesEpisodicBelowThreshold(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, v, _ := newTestEngine(func() time.Time { return now })
	stub := llmclient.NewStub(16)

	old := now.Add(-100 * 24 * time.Hour)
	seedMemory(t, ctx, v, stub, "mem_stale", "u1", "a memory nobody revisited", "episodic", map[string]interface{}{
		"importance": 0.3, "created_at": old, "last_accessed_at": old, "confidence": 0.8,
	})

	archived, decayed, err := e.forget(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, archived)
	require.Equal(t, 0, decayed)

	got, err := v.Get(ctx, []string{"mem_stale"})
	require.NoError(t, err)
	require.Equal(t, true, got[0].Metadata["archived"])

	all, _, err := v.Scan(ctx, storage.VectorFilter{UserID: "u1"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2) // original (archived) + new semantic essence
}

func TestForget_DecaysSemanticConfidence(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, v, _ := newTestEngine(func() time.Time { return now })
	stub := llmclient.NewStub(16)

	old := now.Add(-200 * 24 * time.Hour)
	seedMemory(t, ctx, v, stub, "mem_sem", "u1", "a fact that faded", "semantic", map[string]interface{}{
		"importance": 0.3, "created_at": old, "last_accessed_at": old, "confidence": 1.0,
	})

	archived, decayed, err := e.forget(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, archived)
	require.Equal(t, 1, decayed)

	got, err := v.Get(ctx, []string{"mem_sem"})
	require.NoError(t, err)
	require.Less(t, got[0].Metadata["confidence"].(float64), 1.0)
}

func TestForget_SemanticDecayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, v, _ := newTestEngine(func() time.Time { return now })
	stub := llmclient.NewStub(16)

	old := now.Add(-200 * 24 * time.Hour)
	seedMemory(t, ctx, v, stub, "mem_sem", "u1", "a fact that faded", "semantic", map[string]interface{}{
		"importance": 0.3, "created_at": old, "last_accessed_at": old, "confidence": 1.0,
	})

	_, decayed, err := e.forget(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, decayed)

	got, err := v.Get(ctx, []string{"mem_sem"})
	require.NoError(t, err)
	firstConfidence := got[0].Metadata["confidence"].(float64)

	// Running forget again back-to-back, with nothing about the memory
	// changed, must leave its confidence untouched (spec §4.6 "all jobs
	// idempotent"): the one-shot "decayed" marker skips it this time.
	_, decayed, err = e.forget(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, decayed)

	got, err = v.Get(ctx, []string{"mem_sem"})
	require.NoError(t, err)
	require.Equal(t, firstConfidence, got[0].Metadata["confidence"].(float64))
}

func TestForget_RecentMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, v, _ := newTestEngine(func() time.Time { return now })
	stub := llmclient.NewStub(16)

	seedMemory(t, ctx, v, stub, "mem_fresh", "u1", "just happened", "episodic", map[string]interface{}{
		"importance": 0.5, "created_at": now, "last_accessed_at": now,
	})

	archived, decayed, err := e.forget(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, archived)
	require.Equal(t, 0, decayed)
}

func TestCompact_MergesNearDuplicatesSameLayer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, v, _ := newTestEngine(func() time.Time { return now })
	stub := llmclient.NewStub(16)

	seedMemory(t, ctx, v, stub, "mem_dup1", "u1", "identical phrase", "episodic", map[string]interface{}{
		"importance": 0.4, "access_count": 1, "created_at": now,
	})
	seedMemory(t, ctx, v, stub, "mem_dup2", "u1", "identical phrase", "episodic", map[string]interface{}{
		"importance": 0.8, "access_count": 2, "created_at": now,
	})

	n, err := e.compact(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	all, _, err := v.Scan(ctx, storage.VectorFilter{UserID: "u1"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "mem_dup2", all[0].ID)
	require.Equal(t, 3, all[0].Metadata["access_count"])
}

func TestCompact_DifferentLayersNotMerged(t *testing.T) {
	ctx := context.Background()
	e, v, _ := newTestEngine(time.Now)
	stub := llmclient.NewStub(16)

	seedMemory(t, ctx, v, stub, "mem_a", "u1", "identical phrase", "episodic", map[string]interface{}{"importance": 0.5})
	seedMemory(t, ctx, v, stub, "mem_b", "u1", "identical phrase", "semantic", map[string]interface{}{"importance": 0.5})

	n, err := e.compact(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestPromote_ShortTermMeetingThresholds(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e, v, _ := newTestEngine(func() time.Time { return now })
	stub := llmclient.NewStub(16)

	seedMemory(t, ctx, v, stub, "mem_promote", "u1", "well trodden fact", "short-term", map[string]interface{}{
		"access_count": 5, "created_at": now.Add(-48 * time.Hour),
	})
	seedMemory(t, ctx, v, stub, "mem_stay", "u1", "fresh fact", "short-term", map[string]interface{}{
		"access_count": 5, "created_at": now,
	})

	n, err := e.promote(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := v.Get(ctx, []string{"mem_promote"})
	require.NoError(t, err)
	require.Equal(t, string(memory.LayerSemantic), got[0].Metadata["layer"])
}

func TestReconcile_ReappliesFlaggedTypedRows(t *testing.T) {
	ctx := context.Background()
	e, v, rel := newTestEngine(time.Now)
	stub := llmclient.NewStub(16)

	payload := memory.Episodic{MemoryID: "mem_ep1", UserID: "u1", EventType: "trip"}
	seedMemory(t, ctx, v, stub, "mem_ep1", "u1", "went on a trip", "episodic", map[string]interface{}{
		memory.MetaStoredInEpisodic: true,
		"episodic_payload":          payload,
	})

	n, err := e.reconcile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_ = rel
}

func TestRetention_DecaysOverTimeAndRecoversWithReplay(t *testing.T) {
	low := retention(100, 0.3, 0)
	high := retention(100, 0.3, 10)
	require.Less(t, low, high)

	fresh := retention(0, 0.5, 0)
	require.InDelta(t, 1.0, fresh, 1e-9)
}
