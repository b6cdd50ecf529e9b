package tracestore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/domain"
)

func embedding(dims ...float32) []float32 {
	v := make([]float32, domain.EmbeddingDim)
	copy(v, dims)
	return v
}

func newTrace(t *testing.T, success bool, emb []float32) *domain.ExecutionTrace {
	t.Helper()
	tr := domain.NewExecutionTrace("do something", emb, nil)
	tr.Success = success
	return tr
}

func TestAppendSetsColdStartPriority(t *testing.T) {
	s := New(DefaultPERConfig(), 1)
	tr := newTrace(t, true, embedding(1))
	s.Append(tr)
	require.Equal(t, 1, s.Len())

	rec, ok := s.records[tr.ID]
	require.True(t, ok)
	assert.Equal(t, domain.ColdStartPriority, rec.priority)
}

func TestSampleBatchReturnsRequestedSize(t *testing.T) {
	s := New(DefaultPERConfig(), 42)
	for i := 0; i < 5; i++ {
		s.Append(newTrace(t, i%2 == 0, embedding(float32(i))))
	}
	batch := s.SampleBatch(10)
	assert.Len(t, batch, 10)
	for _, b := range batch {
		assert.GreaterOrEqual(t, b.Weight, 0.0)
		assert.LessOrEqual(t, b.Weight, 1.0)
	}
}

func TestSampleBatchEmptyStoreReturnsNil(t *testing.T) {
	s := New(DefaultPERConfig(), 1)
	assert.Nil(t, s.SampleBatch(5))
}

func TestUpdatePrioritiesClipsToUnitRange(t *testing.T) {
	s := New(DefaultPERConfig(), 1)
	tr := newTrace(t, true, embedding(1))
	s.Append(tr)

	s.UpdatePriorities([]uuid.UUID{tr.ID}, []float64{5.0})
	assert.Equal(t, 1.0, s.records[tr.ID].priority)

	s.UpdatePriorities([]uuid.UUID{tr.ID}, []float64{0.2})
	assert.InDelta(t, 0.21, s.records[tr.ID].priority, 1e-9)
}

func TestUpdatePrioritiesSkipsUnknownIDs(t *testing.T) {
	s := New(DefaultPERConfig(), 1)
	s.UpdatePriorities([]uuid.UUID{uuid.New()}, []float64{1.0})
	assert.Equal(t, 0, s.Len())
}

func TestQueryIntentSimilarAveragesTopK(t *testing.T) {
	s := New(DefaultPERConfig(), 1)
	s.Append(newTrace(t, true, embedding(1, 0)))
	s.Append(newTrace(t, true, embedding(1, 0.01)))
	s.Append(newTrace(t, false, embedding(0, 1)))

	avg, matched := s.QueryIntentSimilar(embedding(1, 0), 2)
	assert.Equal(t, 2, matched)
	assert.Equal(t, 1.0, avg)
}

func TestQueryIntentSimilarEmptyStore(t *testing.T) {
	s := New(DefaultPERConfig(), 1)
	avg, matched := s.QueryIntentSimilar(embedding(1, 0), 2)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, matched)
}

func TestSampleBatchHigherPriorityIsSampledMoreOften(t *testing.T) {
	s := New(DefaultPERConfig(), 99)
	low := newTrace(t, true, embedding(1))
	high := newTrace(t, true, embedding(2))
	s.Append(low)
	s.Append(high)
	s.UpdatePriorities([]uuid.UUID{low.ID, high.ID}, []float64{0.01, 0.99})

	counts := map[uuid.UUID]int{}
	batch := s.SampleBatch(200)
	for _, b := range batch {
		counts[b.ID]++
	}
	assert.Greater(t, counts[high.ID], counts[low.ID])
}
