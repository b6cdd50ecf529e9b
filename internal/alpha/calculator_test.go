package alpha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeUsesEmbeddingsHybridesWhenSpectralAvailable(t *testing.T) {
	res := Compute(Input{
		SemanticEmbedding:    []float32{1, 0},
		SpectralEmbedding:    []float64{1, 0},
		HasSpectralEmbedding: true,
	})
	assert.Equal(t, AlgorithmEmbeddingsHybrides, res.Algorithm)
	assert.GreaterOrEqual(t, res.Alpha, minAlpha)
	assert.LessOrEqual(t, res.Alpha, maxAlpha)
	assert.InDelta(t, minAlpha, res.Alpha, 1e-6) // full agreement -> trust graph -> min alpha
}

func TestComputeFallsBackToHeatDiffusion(t *testing.T) {
	res := Compute(Input{HasHeatDiffusion: true, HeatDiffusion: 1.0})
	assert.Equal(t, AlgorithmHeatDiffusion, res.Algorithm)
	assert.InDelta(t, minAlpha, res.Alpha, 1e-9)
}

func TestComputeFallsBackToBayesianWithUsage(t *testing.T) {
	res := Compute(Input{SuccessCount: 50, UsageCount: 100})
	assert.Equal(t, AlgorithmBayesian, res.Algorithm)
	assert.False(t, res.ColdStart)
	assert.GreaterOrEqual(t, res.Alpha, minAlpha)
}

func TestComputeFallsBackToDefaultWhenNoSignal(t *testing.T) {
	res := Compute(Input{DefaultAlpha: 0.7})
	assert.Equal(t, AlgorithmNone, res.Algorithm)
	assert.True(t, res.ColdStart)
	assert.Equal(t, 0.7, res.Alpha)
}

func TestComputeDefaultFallsBackToMinWhenUnconfigured(t *testing.T) {
	res := Compute(Input{})
	assert.Equal(t, minAlpha, res.Alpha)
}

func TestBayesianAlphaIncreasesConfidenceWithMoreObservations(t *testing.T) {
	small := bayesianAlpha(5, 10)
	large := bayesianAlpha(500, 1000)
	assert.LessOrEqual(t, large, small)
}

func TestAlphaAlwaysInRange(t *testing.T) {
	cases := []Input{
		{SemanticEmbedding: []float32{0, 1}, SpectralEmbedding: []float64{1, 0}, HasSpectralEmbedding: true},
		{HasHeatDiffusion: true, HeatDiffusion: 0},
		{SuccessCount: 0, UsageCount: 1},
		{DefaultAlpha: 2.0},
	}
	for _, in := range cases {
		res := Compute(in)
		assert.GreaterOrEqual(t, res.Alpha, minAlpha)
		assert.LessOrEqual(t, res.Alpha, maxAlpha)
	}
}
