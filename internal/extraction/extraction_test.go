package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/orchestrator/persistence"
	"github.com/ankitaa186/agentic-memories-sub004/internal/retrieval"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/vector"
)

func memoryFixture(content, layer string, importance float64) []memory.Memory {
	return []memory.Memory{{
		ID: "mem_" + content, UserID: "u1", Content: content,
		Layer: memory.Layer(layer), Type: memory.KindImplicit,
		Importance: importance, Confidence: 0.6,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
		Metadata: map[string]interface{}{},
	}}
}

func newTestPipeline() (*Pipeline, *vector.Store) {
	v := vector.New()
	rel := memstore.NewRelational()
	stub := llmclient.NewStub(32)
	retr := retrieval.New(v, rel, nil, nil, stub, stub, nil)
	orch := persistence.New(v, rel, nil)
	return New(stub, stub, stub, retr, orch, v, nil), v
}

func TestRun_EmptyHistory_ZeroCounters(t *testing.T) {
	p, _ := newTestPipeline()
	out, err := p.Run(context.Background(), Input{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, Counters{}, out.Counters)
	require.Empty(t, out.Memories)
}

func TestRun_AllTrivialTurns_NotWorthy(t *testing.T) {
	p, _ := newTestPipeline()
	out, err := p.Run(context.Background(), Input{
		UserID: "u1",
		History: []llmclient.Turn{
			{Role: "user", Content: "ok"},
			{Role: "user", Content: "thanks"},
		},
	})
	require.NoError(t, err)
	require.Empty(t, out.Memories)
}

func TestRun_CreatesMemoryFromSubstantiveTurn(t *testing.T) {
	p, v := newTestPipeline()
	out, err := p.Run(context.Background(), Input{
		UserID: "u1",
		History: []llmclient.Turn{
			{Role: "user", Content: "I started learning the guitar this week and it has been great"},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Memories, 1)
	require.Equal(t, 1, out.Counters.MemoriesCreated)
	require.Equal(t, 0, out.Counters.UpdatesMade)

	matches, err := v.Get(context.Background(), []string{out.Memories[0].ID})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

// TestRun_RepeatedContentCountsAsUpdate runs without a retrieval engine so the
// digest stays empty and the extractor never suppresses the repeat as a
// near-duplicate — isolating the memory-exists branch in Run from
// digest suppression.
func TestRun_RepeatedContentCountsAsUpdate(t *testing.T) {
	v := vector.New()
	rel := memstore.NewRelational()
	stub := llmclient.NewStub(32)
	orch := persistence.New(v, rel, nil)
	p := New(stub, stub, stub, nil, orch, v, nil)
	p.WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC) })

	history := []llmclient.Turn{{Role: "user", Content: "I started learning the guitar this week and it has been great"}}

	out1, err := p.Run(context.Background(), Input{UserID: "u1", History: history})
	require.NoError(t, err)
	require.Equal(t, 1, out1.Counters.MemoriesCreated)

	out2, err := p.Run(context.Background(), Input{UserID: "u1", History: history})
	require.NoError(t, err)
	require.Equal(t, 1, out2.Counters.UpdatesMade)
	require.Equal(t, 0, out2.Counters.MemoriesCreated)
}

func TestStripPII_RedactsCreditCardAndSSN(t *testing.T) {
	redacted := stripPII("my card is 4111 1111 1111 1111 and ssn is 123-45-6789")
	require.Contains(t, redacted, "[REDACTED]")
	require.NotContains(t, redacted, "4111 1111 1111 1111")
	require.NotContains(t, redacted, "123-45-6789")
}

func TestDedupeBatch_KeepsHigherImportance(t *testing.T) {
	mems := []memoryFixture("same content here", "short-term", 0.4)
	mems = append(mems, memoryFixture("same content here", "short-term", 0.9)...)

	kept, dropped := dedupeBatch(mems)
	require.Equal(t, 1, dropped)
	require.Len(t, kept, 1)
	require.Equal(t, 0.9, kept[0].Importance)
}

func TestEnrich_InfersPersonaTagsAndNormalizesTicker(t *testing.T) {
	m := memoryFixture("I'm thinking about buying more NVDA shares for my portfolio", "short-term", 0.5)[0]
	m.Metadata["ticker"] = "nvda"
	enrich(&m)
	require.Contains(t, m.PersonaTags, "finance")
	require.Equal(t, "NVDA", m.Metadata["ticker"])
}

func TestEnrich_RejectsInvalidTicker(t *testing.T) {
	m := memoryFixture("talking about stocks", "short-term", 0.5)[0]
	m.Metadata["ticker"] = "NOTATICKERNAME"
	enrich(&m)
	_, ok := m.Metadata["ticker"]
	require.False(t, ok)
}
