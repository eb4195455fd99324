package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJudge_EmptyHistory(t *testing.T) {
	s := NewStub(8)
	v, err := s.Judge(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, v.Worthy)
}

func TestJudge_AllTrivialTurns(t *testing.T) {
	s := NewStub(8)
	v, err := s.Judge(context.Background(), []Turn{{Role: "user", Content: "ok"}, {Role: "user", Content: "thanks"}})
	require.NoError(t, err)
	assert.False(t, v.Worthy)
}

func TestJudge_SubstantiveTurn(t *testing.T) {
	s := NewStub(8)
	v, err := s.Judge(context.Background(), []Turn{{Role: "user", Content: "I just adopted a golden retriever puppy named Max"}})
	require.NoError(t, err)
	assert.True(t, v.Worthy)
}

func TestExtract_SkipsTrivialTurns(t *testing.T) {
	s := NewStub(8)
	history := []Turn{
		{Role: "user", Content: "ok"},
		{Role: "user", Content: "I love hiking in the mountains every weekend"},
	}
	cands, err := s.Extract(context.Background(), history, nil)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "I love hiking in the mountains every weekend", cands[0].Content)
}

func TestEmbed_DeterministicAndUnitNorm(t *testing.T) {
	s := NewStub(16)
	a, err := s.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var normSq float64
	for _, v := range a {
		normSq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, normSq, 0.01)
}

func TestSynthesize_CitesGroundingIDs(t *testing.T) {
	s := NewStub(8)
	res, err := s.Synthesize(context.Background(), "summary", []string{"mem_1", "mem_2"}, []string{"fact one", "fact two"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mem_1", "mem_2"}, res.CitedIDs)
}
