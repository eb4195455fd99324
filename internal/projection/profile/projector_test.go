package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainprofile "github.com/ankitaa186/agentic-memories-sub004/internal/domain/profile"
)

func TestApplyEnrichment_CreatesFieldWithBlendedConfidence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := New(store)

	f, err := p.ApplyEnrichment(ctx, "u1", domainprofile.CategoryPreferences, "favorite_cuisine", "Thai", "mem_1", 0.8, 0.6, 0.2)
	require.NoError(t, err)
	require.Equal(t, "Thai", f.Value)
	require.False(t, f.Explicit)
	require.Equal(t, []string{"mem_1"}, f.SourceIDs)

	want := domainprofile.BlendConfidence(0.8, 0.6, 0, 0.2)
	require.InDelta(t, want, f.Confidence, 1e-9)
}

func TestApplyEnrichment_RejectsUnknownCategory(t *testing.T) {
	ctx := context.Background()
	p := New(NewMemoryStore())
	_, err := p.ApplyEnrichment(ctx, "u1", domainprofile.Category("nonsense"), "x", "y", "mem_1", 1, 1, 1)
	require.Error(t, err)
}

func TestApplyEnrichment_AccumulatesSourceIDsAcrossCalls(t *testing.T) {
	ctx := context.Background()
	p := New(NewMemoryStore())

	_, err := p.ApplyEnrichment(ctx, "u1", domainprofile.CategoryInterests, "hobby", "climbing", "mem_1", 0.5, 0.5, 0.5)
	require.NoError(t, err)
	f, err := p.ApplyEnrichment(ctx, "u1", domainprofile.CategoryInterests, "hobby", "climbing", "mem_2", 0.9, 0.5, 0.5)
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"mem_1", "mem_2"}, f.SourceIDs)
}

func TestApplyEnrichment_DoesNotOverwriteExplicitField(t *testing.T) {
	ctx := context.Background()
	p := New(NewMemoryStore())

	_, err := p.Overwrite(ctx, "u1", domainprofile.CategoryBasics, "name", "Alex")
	require.NoError(t, err)

	f, err := p.ApplyEnrichment(ctx, "u1", domainprofile.CategoryBasics, "name", "Alexandra", "mem_1", 1, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "Alex", f.Value)
	require.True(t, f.Explicit)
	require.Equal(t, 1.0, f.Confidence)
}

func TestOverwrite_SetsFullConfidenceAndExplicit(t *testing.T) {
	ctx := context.Background()
	p := New(NewMemoryStore())

	f, err := p.Overwrite(ctx, "u1", domainprofile.CategoryGoals, "primary_goal", "run a marathon")
	require.NoError(t, err)
	require.Equal(t, 1.0, f.Confidence)
	require.True(t, f.Explicit)
}

func TestProfile_CompletenessCountsDistinctCategoriesOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := New(store).WithClock(func() time.Time { return time.Unix(0, 0) })

	_, err := p.Overwrite(ctx, "u1", domainprofile.CategoryBasics, "name", "Alex")
	require.NoError(t, err)
	_, err = p.ApplyEnrichment(ctx, "u1", domainprofile.CategoryBasics, "age", "30", "mem_1", 1, 1, 1)
	require.NoError(t, err)
	_, err = p.ApplyEnrichment(ctx, "u1", domainprofile.CategoryInterests, "hobby", "chess", "mem_2", 1, 1, 1)
	require.NoError(t, err)

	snap, err := p.Profile(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Fields, 3)

	want := domainprofile.Completeness(2, len(domainprofile.AllCategories))
	require.InDelta(t, want, snap.Completeness, 1e-9)
}

func TestProfile_EmptyUserHasZeroCompleteness(t *testing.T) {
	ctx := context.Background()
	p := New(NewMemoryStore())
	snap, err := p.Profile(ctx, "ghost")
	require.NoError(t, err)
	require.Empty(t, snap.Fields)
	require.Equal(t, 0.0, snap.Completeness)
}
