package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCapabilitySuccessRateColdStart(t *testing.T) {
	c := NewCapability(uuid.New(), "o.p.n.a.1234", nil, nil, CapabilitySourceEmergent)
	assert.Equal(t, 0.5, c.SuccessRate())
}

func TestCapabilityRecordOutcome(t *testing.T) {
	c := NewCapability(uuid.New(), "o.p.n.a.1234", nil, nil, CapabilitySourceEmergent)
	c.RecordOutcome(true, 100)
	c.RecordOutcome(false, 300)
	assert.Equal(t, 0.5, c.SuccessRate())
	assert.InDelta(t, 200, c.AvgDuration, 1e-9)
}

func TestIsMetaAndReferencedIDs(t *testing.T) {
	u1 := uuid.New()
	u2 := uuid.New()
	code := "call $cap:" + u1.String() + " then $cap:" + u2.String() + " then $cap:" + u1.String()
	c := NewCapability(uuid.New(), "o.p.n.a.1234", nil, nil, CapabilitySourceEmergent)
	c.CodeSnippet = code
	assert.True(t, c.IsMeta())
	ids := ReferencedCapabilityIDs(code)
	assert.Equal(t, []uuid.UUID{u1, u2}, ids)
}

func TestNewToolNormalizesEmbedding(t *testing.T) {
	tool := NewTool("srv:tool", "desc", []float32{3, 4})
	assert.InDelta(t, 1.0, float64(tool.Embedding[0]*tool.Embedding[0]+tool.Embedding[1]*tool.Embedding[1]), 1e-5)
}
