// Package training implements C8: the subprocess worker that trains the
// SHGAT scorer (C7) against sampled execution traces (C6), mining hard
// negatives and running manual backpropagation plus an AdamW-style
// update over every learnable tensor.
package training

import (
	"math"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/kernel"
	"github.com/toolgraph/shgat/internal/shgat"
)

// Example is one positive (intent, candidate) training pair derived from
// a sampled execution trace, plus enough context to mine negatives
// against it.
type Example struct {
	TraceID         uuid.UUID
	Features        shgat.TraceFeatures
	Target          float32 // 1.0 success, 0.0 failure
	ImportanceWeight float64

	AnchorID             string
	AnchorEmbedding       []float32
	DirectToolEmbeddings []PoolItem
}

// BatchResult summarizes one trainBatch call: the mean loss and accuracy
// over every example (positives and mined negatives), and the per-trace
// |TD error| for C6's UpdatePriorities.
type BatchResult struct {
	Loss       float64
	Accuracy   float64
	TDErrors   map[uuid.UUID]float64
	NumSamples int
}

// Trainer drives batches of Examples through Model.ForwardWithCache,
// manual backprop (backward.go) and an AdamW Optimizer.
type Trainer struct {
	Model    *shgat.Model
	Optimizer *Optimizer
	NegConfig NegativeMiningConfig
	rng      *kernel.Mulberry32
}

// NewTrainer builds a Trainer with a fresh optimizer over m's current
// tensors. seed drives negative-mining randomness deterministically.
func NewTrainer(m *shgat.Model, optCfg AdamWConfig, negCfg NegativeMiningConfig, seed uint32) *Trainer {
	return &Trainer{
		Model:     m,
		Optimizer: NewOptimizer(m, optCfg),
		NegConfig: negCfg,
		rng:       kernel.NewMulberry32(seed),
	}
}

// TrainBatch runs one gradient step over examples: for each positive
// example it mines hard negatives from pool (spec.md §4.8), builds a
// negative TraceFeatures by swapping in the negative's embedding as the
// candidate, backpropagates every (positive + negatives) example into a
// shared Gradients accumulator, and applies one AdamW step averaged over
// the whole batch.
func (tr *Trainer) TrainBatch(examples []Example, pool []PoolItem) BatchResult {
	grads := newGradients(tr.Model)
	result := BatchResult{TDErrors: map[uuid.UUID]float64{}}

	var lossSum float64
	var correct int
	var n int

	negByID := make(map[string][]float32, len(pool))
	for _, p := range pool {
		negByID[p.ID] = p.Embedding
	}

	for _, ex := range examples {
		cache := tr.Model.ForwardWithCache(ex.Features)
		weight := ex.ImportanceWeight
		if weight <= 0 {
			weight = 1
		}
		tdErr := grads.accumulateExample(tr.Model, cache, float64(ex.Target))
		result.TDErrors[ex.TraceID] = tdErr
		if !cache.Unstable {
			lossSum += weight * binaryCrossEntropy(cache.Out, ex.Target)
			if predictedClass(cache.Out) == ex.Target {
				correct++
			}
			n++
		}

		negIDs := MineHardNegatives(ex.AnchorID, ex.AnchorEmbedding, ex.DirectToolEmbeddings, pool, tr.NegConfig, tr.rng)
		for _, negID := range negIDs {
			negEmb, ok := negByID[negID]
			if !ok {
				continue
			}
			negFeatures := ex.Features
			negFeatures.Candidate = negEmb
			negCache := tr.Model.ForwardWithCache(negFeatures)
			grads.accumulateExample(tr.Model, negCache, 0.0)
			if !negCache.Unstable {
				lossSum += binaryCrossEntropy(negCache.Out, 0.0)
				if predictedClass(negCache.Out) == 0.0 {
					correct++
				}
				n++
			}
		}
	}

	tr.Optimizer.Step(tr.Model, grads)

	result.NumSamples = n
	if n > 0 {
		result.Loss = lossSum / float64(n)
		result.Accuracy = float64(correct) / float64(n)
	}
	return result
}

func binaryCrossEntropy(predicted, target float32) float64 {
	p := math.Min(math.Max(float64(predicted), 1e-7), 1-1e-7)
	t := float64(target)
	return -(t*math.Log(p) + (1-t)*math.Log(1-p))
}

func predictedClass(score float32) float32 {
	if score >= 0.5 {
		return 1.0
	}
	return 0.0
}
