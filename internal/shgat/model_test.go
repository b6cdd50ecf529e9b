package shgat

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.EmbeddingDim = 8
	cfg.NumHeads = 2
	cfg.HiddenDim = 4
	return cfg
}

func vecN(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestScoreAllToolsReturnsScoresInRange(t *testing.T) {
	m := NewModel(smallConfig())
	features := map[string]TraceFeatures{
		"t1": {Intent: vecN(8, 0.1), Candidate: vecN(8, 0.2), RecentContextMeanPool: vecN(8, 0)},
		"t2": {Intent: vecN(8, 0.1), Candidate: vecN(8, 0.9), RecentContextMeanPool: vecN(8, 0)},
	}
	scores := m.ScoreAllTools(features, nil)
	require.Len(t, scores, 2)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s.Score, float32(0))
		assert.LessOrEqual(t, s.Score, float32(0.95))
		assert.Len(t, s.HeadScores, 2)
	}
}

func TestScoreAllToolsTieBreaksByID(t *testing.T) {
	m := NewModel(smallConfig())
	features := map[string]TraceFeatures{
		"b": {Intent: vecN(8, 0.5), Candidate: vecN(8, 0.5)},
		"a": {Intent: vecN(8, 0.5), Candidate: vecN(8, 0.5)},
	}
	scores := m.ScoreAllTools(features, nil)
	require.Len(t, scores, 2)
	assert.InDelta(t, scores[0].Score, scores[1].Score, 1e-6)
	assert.Equal(t, "a", scores[0].ToolID)
}

func TestReliabilityMultiplierThresholds(t *testing.T) {
	assert.Equal(t, 0.5, ReliabilityMultiplier(0.2))
	assert.Equal(t, 1.0, ReliabilityMultiplier(0.7))
	assert.Equal(t, 1.2, ReliabilityMultiplier(0.95))
}

func TestScoreAllCapabilitiesAppliesReliabilityMultiplier(t *testing.T) {
	m := NewModel(smallConfig())
	id := uuid.New()
	features := map[uuid.UUID]TraceFeatures{
		id: {Intent: vecN(8, 0.5), Candidate: vecN(8, 0.5)},
	}
	lowRate := map[uuid.UUID]float64{id: 0.1}
	highRate := map[uuid.UUID]float64{id: 0.95}

	low := m.ScoreAllCapabilities(features, lowRate, nil)
	high := m.ScoreAllCapabilities(features, highRate, nil)
	require.Len(t, low, 1)
	require.Len(t, high, 1)
	assert.LessOrEqual(t, low[0].Score, high[0].Score)
}

func TestForwardDegradesOnNonFiniteInput(t *testing.T) {
	m := NewModel(smallConfig())
	badFeatures := TraceFeatures{
		Intent:    []float32{float32(math.Inf(1))},
		Candidate: vecN(8, 0.1),
	}
	score, _, unstable := m.forward(badFeatures)
	assert.True(t, unstable)
	assert.Equal(t, float32(0), score)
}

func TestExportImportParamsRoundTrip(t *testing.T) {
	m := NewModel(smallConfig())
	exported := m.ExportParams()

	m2 := NewModel(smallConfig())
	require.NoError(t, m2.ImportParams(exported))
	assert.Equal(t, exported.WProj.Data, m2.ExportParams().WProj.Data)
}

func TestImportParamsRejectsShapeMismatch(t *testing.T) {
	m := NewModel(smallConfig())
	other := NewModel(DefaultConfig())
	err := m.ImportParams(other.ExportParams())
	assert.Error(t, err)
}

func TestTrainingStateMachineTransitions(t *testing.T) {
	cfg := smallConfig()
	cfg.MinTrainingTraces = 5
	m := NewModel(cfg)
	assert.Equal(t, StateCold, m.State())

	m.NextColdState(3)
	assert.Equal(t, StateCold, m.State())

	m.NextColdState(5)
	assert.Equal(t, StateBatch, m.State())

	m.EnterLive()
	assert.Equal(t, StateLive, m.State())

	m.MarkSaved()
	assert.Equal(t, StateSaved, m.State())
}
