package narrative

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/retrieval"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/vector"
)

func seed(t *testing.T, ctx context.Context, v *vector.Store, stub *llmclient.Stub, content, layer string, at time.Time, tags []string) {
	t.Helper()
	emb, err := stub.Embed(ctx, content)
	require.NoError(t, err)
	require.NoError(t, v.Upsert(ctx, "mem_"+content, emb, content, map[string]interface{}{
		"user_id": "u1", "layer": layer, "created_at": at, "tags": tags,
	}))
}

func TestBuild_ClustersByTemporalProximity(t *testing.T) {
	ctx := context.Background()
	v := vector.New()
	stub := llmclient.NewStub(32)
	rel := memstore.NewRelational()
	retr := retrieval.New(v, rel, nil, nil, stub, stub, nil)
	b := New(retr, stub)

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	seed(t, ctx, v, stub, "had coffee at the usual cafe this morning", "episodic", base, []string{"routine"})
	seed(t, ctx, v, stub, "walked to the office right after", "episodic", base.Add(1*time.Hour), []string{"routine"})
	seed(t, ctx, v, stub, "flew to Tokyo for a conference next month", "episodic", base.Add(30*24*time.Hour), []string{"travel"})

	result, err := b.Build(ctx, "u1", base.Add(-time.Hour), base.Add(60*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, result.Chapters, 2)
	require.Len(t, result.Chapters[0].Members, 2)
	require.Len(t, result.Chapters[1].Members, 1)
	require.NotEmpty(t, result.Text)
}

func TestBuild_EmptyWindowReturnsNoChapters(t *testing.T) {
	ctx := context.Background()
	v := vector.New()
	stub := llmclient.NewStub(32)
	rel := memstore.NewRelational()
	retr := retrieval.New(v, rel, nil, nil, stub, stub, nil)
	b := New(retr, stub)

	now := time.Now()
	result, err := b.Build(ctx, "u1", now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.Empty(t, result.Chapters)
}
