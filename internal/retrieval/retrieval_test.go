package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/cache"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/vector"
)

func portfolioHolding(userID, ticker string) portfolio.Holding {
	return portfolio.Holding{UserID: userID, Ticker: ticker, Shares: 10, AvgPrice: 100, LastUpdated: time.Now()}
}

func seedMemory(t *testing.T, ctx context.Context, v *vector.Store, stub *llmclient.Stub, userID, content, layer string, importance float64, at time.Time) string {
	t.Helper()
	emb, err := stub.Embed(ctx, content)
	require.NoError(t, err)
	id := "mem_" + content
	err = v.Upsert(ctx, id, emb, content, map[string]interface{}{
		"user_id": userID, "layer": layer, "importance": importance, "created_at": at,
	})
	require.NoError(t, err)
	return id
}

func TestRetrieve_SemanticMatchAboveCutoff(t *testing.T) {
	ctx := context.Background()
	v := vector.New()
	stub := llmclient.NewStub(64)
	rel := memstore.NewRelational()
	eng := New(v, rel, nil, nil, stub, stub, nil)

	seedMemory(t, ctx, v, stub, "u1", "I love hiking in the mountains every weekend", "short-term", 0.6, time.Now())

	res, err := eng.Retrieve(ctx, "u1", "I love hiking in the mountains every weekend", Filters{}, 10, 0, Options{})
	require.NoError(t, err)
	require.Len(t, res.Memories, 1)
	require.GreaterOrEqual(t, res.Memories[0].FinalScore, scoreCutoff)
}

func TestRetrieve_EmptyQuerySortsByTimestamp(t *testing.T) {
	ctx := context.Background()
	v := vector.New()
	stub := llmclient.NewStub(64)
	rel := memstore.NewRelational()
	eng := New(v, rel, nil, nil, stub, stub, nil)

	older := time.Now().Add(-48 * time.Hour)
	newer := time.Now()
	seedMemory(t, ctx, v, stub, "u1", "older note about groceries", "short-term", 0.3, older)
	seedMemory(t, ctx, v, stub, "u1", "newer note about groceries", "short-term", 0.3, newer)

	res, err := eng.Retrieve(ctx, "u1", "", Filters{}, 10, 0, Options{})
	require.NoError(t, err)
	require.Len(t, res.Memories, 2)
	require.Equal(t, "mem_newer note about groceries", res.Memories[0].ID)
}

func TestRetrieve_FinanceFlaggedAttachesPortfolio(t *testing.T) {
	ctx := context.Background()
	v := vector.New()
	stub := llmclient.NewStub(64)
	rel := memstore.NewRelational()
	eng := New(v, rel, nil, nil, stub, stub, nil)

	require.NoError(t, rel.UpsertHolding(ctx, portfolioHolding("u1", "NVDA")))

	res, err := eng.Retrieve(ctx, "u1", "how is NVDA doing", Filters{}, 10, 0, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Finance)
	require.Len(t, res.Finance.Holdings, 1)
}

func TestRetrieve_GraphUnconfiguredIsDegradedOnlyWhenAnchorRequested(t *testing.T) {
	ctx := context.Background()
	v := vector.New()
	stub := llmclient.NewStub(64)
	eng := New(v, nil, nil, nil, stub, stub, nil)

	seedMemory(t, ctx, v, stub, "u1", "a plain note with enough tokens to pass worthiness", "short-term", 0.5, time.Now())

	res, err := eng.Retrieve(ctx, "u1", "a plain note with enough tokens to pass worthiness", Filters{}, 10, 0, Options{AnchorMemoryID: "mem_anchor"})
	require.NoError(t, err)
	require.Contains(t, res.Diagnostics.Degraded, "graph")
}

func TestRetrieve_SynthesisIsCached(t *testing.T) {
	ctx := context.Background()
	v := vector.New()
	stub := llmclient.NewStub(64)
	c := cache.NewMemoryStore()
	eng := New(v, nil, nil, c, stub, stub, nil)

	seedMemory(t, ctx, v, stub, "u1", "my favorite vacation was in Kyoto last spring", "short-term", 0.6, time.Now())

	res1, err := eng.Retrieve(ctx, "u1", "my favorite vacation was in Kyoto last spring", Filters{}, 10, 0, Options{Synthesize: true})
	require.NoError(t, err)
	require.NotNil(t, res1.Synthesis)
	require.False(t, res1.Synthesis.Cached)

	res2, err := eng.Retrieve(ctx, "u1", "my favorite vacation was in Kyoto last spring", Filters{}, 10, 0, Options{Synthesize: true})
	require.NoError(t, err)
	require.NotNil(t, res2.Synthesis)
	require.True(t, res2.Synthesis.Cached)
}

func TestSynthesisCacheKey_Deterministic(t *testing.T) {
	k1 := SynthesisCacheKey("u1", "query", []string{"a", "b"})
	k2 := SynthesisCacheKey("u1", "query", []string{"a", "b"})
	k3 := SynthesisCacheKey("u1", "other", []string{"a", "b"})
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}
