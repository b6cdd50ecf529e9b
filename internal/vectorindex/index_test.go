package vectorindex

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/toolgraph/shgat/internal/domain"
)

func vec(dims ...float32) []float32 {
	v := make([]float32, domain.EmbeddingDim)
	copy(v, dims)
	return v
}

func TestSearchToolsOrdersByDescendingScore(t *testing.T) {
	ix := New()
	ix.LoadTools([]*domain.Tool{
		domain.NewTool("near", "", vec(1, 0)),
		domain.NewTool("far", "", vec(0, 1)),
		domain.NewTool("exact", "", vec(1, 0, 0)),
	})

	got := ix.SearchTools(vec(1, 0), 2)
	assert.Len(t, got, 2)
	assert.InDelta(t, 1.0, got[0].Score, 1e-5)
}

func TestSearchToolsTieBreaksByID(t *testing.T) {
	ix := New()
	ix.LoadTools([]*domain.Tool{
		domain.NewTool("b", "", vec(1, 0)),
		domain.NewTool("a", "", vec(1, 0)),
	})
	got := ix.SearchTools(vec(1, 0), -1)
	assert.Equal(t, "a", got[0].ToolID)
	assert.Equal(t, "b", got[1].ToolID)
}

func TestSearchCapabilitiesReturnsTopK(t *testing.T) {
	ix := New()
	id1, id2 := uuid.New(), uuid.New()
	ix.LoadCapabilities([]*domain.Capability{
		domain.NewCapability(id1, "o.p.n.a.aaaa", nil, vec(1, 0), domain.CapabilitySourceEmergent),
		domain.NewCapability(id2, "o.p.n.b.bbbb", nil, vec(0, 1), domain.CapabilitySourceEmergent),
	})
	got := ix.SearchCapabilities(vec(1, 0), 1)
	assert.Len(t, got, 1)
	assert.Equal(t, id1, got[0].CapabilityID)
}

func TestLen(t *testing.T) {
	ix := New()
	ix.LoadTools([]*domain.Tool{domain.NewTool("a", "", vec(1))})
	ix.LoadCapabilities([]*domain.Capability{domain.NewCapability(uuid.New(), "o.p.n.a.aaaa", nil, vec(1), domain.CapabilitySourceEmergent)})
	tools, caps := ix.Len()
	assert.Equal(t, 1, tools)
	assert.Equal(t, 1, caps)
}
