package shgat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/kernel"
)

func TestEncodeLevel0ProducesUnitNormEmbeddings(t *testing.T) {
	cfg := smallConfig()
	store := graphstore.New(false)
	store.UpsertTool("t1", "", vecN(cfg.EmbeddingDim, 1))
	store.UpsertTool("t2", "", vecN(cfg.EmbeddingDim, 0.5))

	cap := domain.NewCapability(uuid.New(), "o.p.n.a.aaaa", []domain.Member{domain.ToolMember("t1"), domain.ToolMember("t2")}, vecN(cfg.EmbeddingDim, 1), domain.CapabilitySourceEmergent)
	require.NoError(t, store.UpsertCapability(cap))

	cm := store.BuildContainmentMatrix(0)
	toolEmb := map[string][]float32{
		"t1": vecN(cfg.EmbeddingDim, 1),
		"t2": vecN(cfg.EmbeddingDim, 0.5),
	}

	enc := newGraphEncoder(cfg, kernel.NewMulberry32(1))
	out := enc.EncodeLevel0(cm, toolEmb)
	require.Contains(t, out, cap.ID)
	assert.True(t, kernel.IsUnitNorm(out[cap.ID], 1e-3))
}

func TestEncodeLevel0EmptyContainmentReturnsEmpty(t *testing.T) {
	cfg := smallConfig()
	enc := newGraphEncoder(cfg, kernel.NewMulberry32(1))
	out := enc.EncodeLevel0(&graphstore.ContainmentMatrix{}, nil)
	assert.Empty(t, out)
}

func TestEnrichToolEmbeddingsPassthroughWhenDisabled(t *testing.T) {
	cfg := smallConfig()
	cfg.EnrichAttn = false
	embeddings := map[string][]float32{"a": vecN(cfg.EmbeddingDim, 1)}
	out := EnrichToolEmbeddings([]string{"a"}, embeddings, CoOccurrence{"a": {"b": 1}}, cfg)
	assert.Equal(t, embeddings["a"], out["a"])
}

func TestEnrichToolEmbeddingsPullsTowardNeighbor(t *testing.T) {
	cfg := smallConfig()
	a := vecN(cfg.EmbeddingDim, 1)
	b := make([]float32, cfg.EmbeddingDim)
	b[0] = 1
	embeddings := map[string][]float32{"a": a, "b": b}
	coOcc := CoOccurrence{"a": {"b": 1}}
	out := EnrichToolEmbeddings([]string{"a", "b"}, embeddings, coOcc, cfg)
	assert.True(t, kernel.IsUnitNorm(out["a"], 1e-3))
}
