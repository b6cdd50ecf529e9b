package training

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/shgat"
)

func smallCfg() shgat.Config {
	cfg := shgat.DefaultConfig()
	cfg.EmbeddingDim = 8
	cfg.NumHeads = 2
	cfg.HiddenDim = 4
	return cfg
}

func features(intent, candidate []float32) shgat.TraceFeatures {
	return shgat.TraceFeatures{
		Intent:                intent,
		Candidate:             candidate,
		RecentContextMeanPool: make([]float32, 8),
		Stats: shgat.TraceStats{
			SuccessRate: 0.9,
			UsageCount:  5,
		},
	}
}

func TestTrainBatchReturnsTDErrorsForEveryPositive(t *testing.T) {
	m := shgat.NewModel(smallCfg())
	tr := NewTrainer(m, DefaultAdamWConfig(), DefaultNegativeMiningConfig(), 1)

	intent := make([]float32, 8)
	intent[0] = 1
	candidate := make([]float32, 8)
	candidate[0] = 1

	id := uuid.New()
	ex := Example{
		TraceID:              id,
		Features:             features(intent, candidate),
		Target:                1.0,
		ImportanceWeight:      1.0,
		AnchorID:             "cap1",
		AnchorEmbedding:       candidate,
		DirectToolEmbeddings: nil,
	}
	pool := []PoolItem{
		{ID: "neg1", Embedding: unitVec(8, 2)},
		{ID: "neg2", Embedding: unitVec(8, 3)},
		{ID: "neg3", Embedding: unitVec(8, 4)},
	}

	result := tr.TrainBatch([]Example{ex}, pool)
	require.Contains(t, result.TDErrors, id)
	assert.GreaterOrEqual(t, result.TDErrors[id], 0.0)
	assert.GreaterOrEqual(t, result.NumSamples, 1)
}

func TestTrainBatchReducesLossOverIterations(t *testing.T) {
	m := shgat.NewModel(smallCfg())
	tr := NewTrainer(m, DefaultAdamWConfig(), DefaultNegativeMiningConfig(), 2)

	intent := unitVec(8, 0)
	candidate := unitVec(8, 0)
	ex := Example{
		TraceID:         uuid.New(),
		Features:        features(intent, candidate),
		Target:          1.0,
		ImportanceWeight: 1.0,
		AnchorID:        "cap1",
		AnchorEmbedding: candidate,
	}
	pool := []PoolItem{{ID: "neg", Embedding: unitVec(8, 4)}}

	first := tr.TrainBatch([]Example{ex}, pool)
	var last BatchResult
	for i := 0; i < 20; i++ {
		last = tr.TrainBatch([]Example{ex}, pool)
	}
	assert.LessOrEqual(t, last.Loss, first.Loss+1e-6)
}

func TestTrainBatchSkipsUnstableExamplesInLoss(t *testing.T) {
	m := shgat.NewModel(smallCfg())
	tr := NewTrainer(m, DefaultAdamWConfig(), DefaultNegativeMiningConfig(), 3)

	huge := make([]float32, 8)
	for i := range huge {
		huge[i] = 1e30
	}
	ex := Example{
		TraceID:  uuid.New(),
		Features: features(huge, huge),
		Target:   1.0,
		AnchorID: "cap1",
		AnchorEmbedding: huge,
	}
	result := tr.TrainBatch([]Example{ex}, nil)
	assert.Equal(t, 0, result.NumSamples)
	assert.Equal(t, 0.0, result.Loss)
}

func TestOptimizerStepNoopOnEmptyGradients(t *testing.T) {
	m := shgat.NewModel(smallCfg())
	opt := NewOptimizer(m, DefaultAdamWConfig())
	before := m.ExportParams()
	opt.Step(m, newGradients(m))
	after := m.ExportParams()
	assert.Equal(t, before.WProj.Data, after.WProj.Data)
}

func TestNewOptimizerSeedsZeroMoments(t *testing.T) {
	m := shgat.NewModel(smallCfg())
	opt := NewOptimizer(m, DefaultAdamWConfig())
	for name, mom := range opt.mMat {
		for _, v := range mom {
			require.Equal(t, float32(0), v, "tensor %s", name)
		}
	}
}
