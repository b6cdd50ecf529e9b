package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/kernel"
)

func unitVec(dim int, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1
	return v
}

func TestMineHardNegativesExcludesAnchorAndDirectTools(t *testing.T) {
	cfg := DefaultNegativeMiningConfig()
	cfg.NumNegatives = 3
	rng := kernel.NewMulberry32(1)

	anchor := unitVec(4, 0)
	direct := []PoolItem{{ID: "t1", Embedding: unitVec(4, 0)}}
	pool := []PoolItem{
		{ID: "anchor", Embedding: anchor},
		{ID: "t1", Embedding: unitVec(4, 0)},
		{ID: "c1", Embedding: unitVec(4, 1)},
		{ID: "c2", Embedding: unitVec(4, 2)},
		{ID: "c3", Embedding: unitVec(4, 3)},
	}

	negs := MineHardNegatives("anchor", anchor, direct, pool, cfg, rng)
	for _, id := range negs {
		assert.NotEqual(t, "anchor", id)
		assert.NotEqual(t, "t1", id)
	}
}

func TestMineHardNegativesExcludesClusteredWithDirectTool(t *testing.T) {
	cfg := DefaultNegativeMiningConfig()
	cfg.NumNegatives = 1
	cfg.ClusterThreshold = 0.99
	rng := kernel.NewMulberry32(1)

	anchor := unitVec(4, 0)
	clustered := unitVec(4, 0) // identical to direct tool -> cosine 1.0, excluded
	direct := []PoolItem{{ID: "t1", Embedding: unitVec(4, 0)}}
	pool := []PoolItem{
		{ID: "clustered", Embedding: clustered},
		{ID: "distinct", Embedding: unitVec(4, 2)},
	}

	negs := MineHardNegatives("anchor", anchor, direct, pool, cfg, rng)
	require.NotEmpty(t, negs)
	for _, id := range negs {
		assert.NotEqual(t, "clustered", id)
	}
}

func TestMineHardNegativesReturnsNilWhenPoolFullyExcluded(t *testing.T) {
	cfg := DefaultNegativeMiningConfig()
	rng := kernel.NewMulberry32(1)
	anchor := unitVec(4, 0)
	pool := []PoolItem{{ID: "anchor", Embedding: anchor}}
	negs := MineHardNegatives("anchor", anchor, nil, pool, cfg, rng)
	assert.Nil(t, negs)
}

func TestMineHardNegativesCapsAtNumNegatives(t *testing.T) {
	cfg := DefaultNegativeMiningConfig()
	cfg.NumNegatives = 2
	rng := kernel.NewMulberry32(1)
	anchor := unitVec(8, 0)
	pool := make([]PoolItem, 0, 10)
	for i := 0; i < 10; i++ {
		pool = append(pool, PoolItem{ID: string(rune('a' + i)), Embedding: unitVec(8, i)})
	}
	negs := MineHardNegatives("anchor", anchor, nil, pool, cfg, rng)
	assert.LessOrEqual(t, len(negs), 2)
}

func TestPercentileIndexClampsRange(t *testing.T) {
	assert.Equal(t, 0, percentileIndex(0, 0.5))
	assert.Equal(t, 0, percentileIndex(1, 0.5))
	assert.Equal(t, 2, percentileIndex(10, 0.25))
	assert.Equal(t, 9, percentileIndex(10, 1.5))
}
