package rationale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathConfidenceByHopsLadder(t *testing.T) {
	assert.Equal(t, 0.9, PathConfidenceByHops(1))
	assert.Equal(t, 0.7, PathConfidenceByHops(2))
	assert.Equal(t, 0.5, PathConfidenceByHops(3))
	assert.Equal(t, 0.3, PathConfidenceByHops(4))
	assert.Equal(t, 0.3, PathConfidenceByHops(10))
	assert.Equal(t, 0.0, PathConfidenceByHops(0))
}

func TestAdaptWeightsAtNeutralAlphaReturnsBase(t *testing.T) {
	cfg := DefaultWeightConfig()
	w := AdaptWeights(0.5, cfg)
	assert.InDelta(t, cfg.BaseHybrid, w.Hybrid, 1e-9)
	assert.InDelta(t, cfg.BasePageRank, w.PageRank, 1e-9)
	assert.InDelta(t, cfg.BasePath, w.Path, 1e-9)
}

func TestAdaptWeightsHigherAlphaIncreasesHybridDecreasesOthers(t *testing.T) {
	cfg := DefaultWeightConfig()
	w := AdaptWeights(1.0, cfg)
	assert.Greater(t, w.Hybrid, cfg.BaseHybrid)
	assert.Less(t, w.PageRank, cfg.BasePageRank)
	assert.Less(t, w.Path, cfg.BasePath)
}

func TestAdaptWeightsClampsToUnitRange(t *testing.T) {
	cfg := DefaultWeightConfig()
	cfg.DeltaHybrid = 10
	w := AdaptWeights(1.0, cfg)
	assert.LessOrEqual(t, w.Hybrid, 1.0)
}

func TestHybridConfidenceWeightsEachTerm(t *testing.T) {
	cfg := DefaultWeightConfig()
	conf := HybridConfidence(0.8, []float64{0.9, 0.8, 0.7, 0.1}, []float64{0.9, 0.7}, cfg)
	expected := 0.8*cfg.HybridWeight + ((0.9+0.8+0.7)/3)*cfg.PageRankWeight + 0.8*cfg.PathWeight
	assert.InDelta(t, expected, conf, 1e-9)
}

func TestCommunityConfidenceCapsEachAdditiveTerm(t *testing.T) {
	cfg := DefaultWeightConfig()
	conf := CommunityConfidence(0.5, 10.0, 10.0, cfg)
	assert.InDelta(t, 0.5+cfg.CommunityCap+cfg.CoOccurrenceCap, conf, 1e-9)
}

func TestRationaleListsTopThreeContributorsAndAlpha(t *testing.T) {
	r := Rationale([]Contributor{
		{Name: "shgat", Value: 0.82},
		{Name: "pageRank", Value: 0.41},
		{Name: "path", Value: 0.2},
		{Name: "community", Value: 0.05},
	}, 0.73)
	assert.Contains(t, r, "shgat (0.82)")
	assert.Contains(t, r, "pageRank (0.41)")
	assert.Contains(t, r, "path (0.20)")
	assert.NotContains(t, r, "community")
	assert.Contains(t, r, "alpha=0.73")
}
