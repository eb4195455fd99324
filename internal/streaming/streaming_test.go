package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ankitaa186/agentic-memories-sub004/internal/extraction"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/orchestrator/persistence"
	"github.com/ankitaa186/agentic-memories-sub004/internal/retrieval"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/vector"
)

func newTestOrchestrator(clock func() time.Time) *Orchestrator {
	v := vector.New()
	rel := memstore.NewRelational()
	stub := llmclient.NewStub(16)
	persist := persistence.New(v, rel, nil)
	pipeline := extraction.New(stub, stub, stub, nil, persist, v, nil).WithClock(clock)
	retr := retrieval.New(v, rel, nil, nil, stub, stub, nil)
	return New(pipeline, retr).WithClock(clock)
}

func TestAppend_DoesNotFlushBelowThreshold(t *testing.T) {
	o := newTestOrchestrator(time.Now).WithThreshold(32)
	out, err := o.Append(context.Background(), "u1", "c1", llmclient.Turn{Role: "user", Content: "hello there"}, false)
	require.NoError(t, err)
	require.False(t, out.Flushed)
}

func TestAppend_ExplicitFlushRunsPipeline(t *testing.T) {
	o := newTestOrchestrator(time.Now).WithThreshold(32)
	out, err := o.Append(context.Background(), "u1", "c1", llmclient.Turn{
		Role: "user", Content: "I just adopted a golden retriever puppy named Biscuit",
	}, true)
	require.NoError(t, err)
	require.True(t, out.Flushed)
}

func TestAppend_ThresholdTriggersFlush(t *testing.T) {
	o := newTestOrchestrator(time.Now).WithThreshold(2)
	ctx := context.Background()

	out1, err := o.Append(ctx, "u1", "c1", llmclient.Turn{Role: "user", Content: "turn one"}, false)
	require.NoError(t, err)
	require.False(t, out1.Flushed)

	out2, err := o.Append(ctx, "u1", "c1", llmclient.Turn{Role: "user", Content: "turn two"}, false)
	require.NoError(t, err)
	require.False(t, out2.Flushed)

	out3, err := o.Append(ctx, "u1", "c1", llmclient.Turn{Role: "user", Content: "turn three"}, false)
	require.NoError(t, err)
	require.True(t, out3.Flushed)
}

func TestAppend_IdleGapTriggersFlush(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o := newTestOrchestrator(func() time.Time { return now }).WithThreshold(32)
	ctx := context.Background()

	out1, err := o.Append(ctx, "u1", "c1", llmclient.Turn{Role: "user", Content: "turn one"}, false)
	require.NoError(t, err)
	require.False(t, out1.Flushed)

	now = now.Add(3 * time.Second)
	out2, err := o.Append(ctx, "u1", "c1", llmclient.Turn{Role: "user", Content: "turn two"}, false)
	require.NoError(t, err)
	require.True(t, out2.Flushed)
}

func TestAppend_SeparateConversationsDoNotShareBuffers(t *testing.T) {
	o := newTestOrchestrator(time.Now).WithThreshold(2)
	ctx := context.Background()

	_, err := o.Append(ctx, "u1", "c1", llmclient.Turn{Role: "user", Content: "turn one"}, false)
	require.NoError(t, err)
	out, err := o.Append(ctx, "u1", "c2", llmclient.Turn{Role: "user", Content: "turn one"}, false)
	require.NoError(t, err)
	require.False(t, out.Flushed)
}

func TestInjections_DedupeSuppressesRepeatWithinTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	o := newTestOrchestrator(func() time.Time { return now }).WithThreshold(32)

	_, err := o.Append(ctx, "u1", "c1", llmclient.Turn{
		Role: "user", Content: "I love hiking in the mountains every weekend with my dog",
	}, true)
	require.NoError(t, err)

	out, err := o.Append(ctx, "u1", "c1", llmclient.Turn{
		Role: "user", Content: "I love hiking in the mountains every weekend with my dog",
	}, true)
	require.NoError(t, err)
	require.True(t, out.Flushed)
	require.Empty(t, out.Injections)
}
