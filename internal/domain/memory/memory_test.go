package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicID_SameInputsSameID(t *testing.T) {
	at := time.Date(2025, 6, 15, 14, 0, 30, 0, time.UTC)
	id1 := DeterministicID("u1", "hello world", at)
	id2 := DeterministicID("u1", "hello world", at.Add(20*time.Second))

	require.Equal(t, id1, id2, "ids within the same coarse minute must collapse")
	assert.Contains(t, id1, "mem_")
}

func TestDeterministicID_DifferentInputsDifferentID(t *testing.T) {
	at := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	id1 := DeterministicID("u1", "hello", at)
	id2 := DeterministicID("u2", "hello", at)
	id3 := DeterministicID("u1", "goodbye", at)

	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}

func TestDeterministicID_CrossesMinuteBoundary(t *testing.T) {
	at1 := time.Date(2025, 6, 15, 14, 0, 59, 0, time.UTC)
	at2 := time.Date(2025, 6, 15, 14, 1, 1, 0, time.UTC)

	id1 := DeterministicID("u1", "hello", at1)
	id2 := DeterministicID("u1", "hello", at2)

	assert.NotEqual(t, id1, id2)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.01))
	assert.Equal(t, 0.5, Clamp01(0.5))
}

func TestClampSigned(t *testing.T) {
	assert.Equal(t, -1.0, ClampSigned(-1.5))
	assert.Equal(t, 1.0, ClampSigned(1.01))
	assert.Equal(t, 1.0, ClampSigned(1.0))
	assert.Equal(t, -1.0, ClampSigned(-1.0))
}

func TestValidLayer(t *testing.T) {
	assert.True(t, ValidLayer(LayerEpisodic))
	assert.False(t, ValidLayer(Layer("nonsense")))
}

func TestValidProficiency(t *testing.T) {
	assert.True(t, ValidProficiency(ProficiencyMaster))
	assert.False(t, ValidProficiency(ProficiencyLevel("legendary")))
}
