package training

import (
	"context"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/kernel"
	"github.com/toolgraph/shgat/internal/shgat"
)

// ParamsSaver persists a trained model's weights directly to storage,
// keeping the pipe response small (spec.md §4.8: "params are persisted
// directly to storage to avoid stdout size limits").
type ParamsSaver interface {
	SaveParams(ctx context.Context, connectionString string, params shgat.Params) error
}

// Run executes the full training job described by req: it builds or
// restores a Model, runs Epochs passes of shuffled mini-batches over
// Examples (mining hard negatives against Capabilities as the negative
// pool each batch), and persists the resulting params via saver. It
// never panics on a single bad example; ForwardWithCache's NaN/Inf guard
// degrades that example's contribution to zero instead.
func Run(ctx context.Context, req Request, saver ParamsSaver) Response {
	cfg := req.ModelConfig
	if cfg.EmbeddingDim == 0 {
		cfg = shgat.DefaultConfig()
	}
	model := shgat.NewModel(cfg)
	if req.ExistingParams != nil {
		if err := model.ImportParams(*req.ExistingParams); err != nil {
			return Response{Success: false, Error: err.Error()}
		}
	}
	model.SetState(shgat.StateBatch)

	optCfg := req.AdamW
	if optCfg.LearningRate == 0 {
		optCfg = DefaultAdamWConfig()
	}
	negCfg := req.NegativeMining
	if negCfg.NumNegatives == 0 {
		negCfg = DefaultNegativeMiningConfig()
	}
	trainer := NewTrainer(model, optCfg, negCfg, req.Seed)

	capByID := make(map[uuid.UUID]CapabilityInput, len(req.Capabilities))
	pool := make([]PoolItem, 0, len(req.Capabilities))
	for _, c := range req.Capabilities {
		capByID[c.ID] = c
		pool = append(pool, PoolItem{ID: c.ID.String(), Embedding: c.Embedding})
	}

	examples := make([]Example, 0, len(req.Examples))
	for _, ex := range req.Examples {
		cand, ok := capByID[ex.CandidateID]
		if !ok {
			continue
		}
		target := float32(0)
		if ex.Outcome == 1 {
			target = 1
		}
		weight := ex.ImportanceWeight
		if weight <= 0 {
			weight = 1
		}
		directTools := make([]PoolItem, 0, len(cand.ToolsUsed))
		for _, t := range cand.ToolsUsed {
			directTools = append(directTools, PoolItem{ID: t, Embedding: ex.IntentEmbedding})
		}
		examples = append(examples, Example{
			TraceID: ex.TraceID,
			Features: shgat.TraceFeatures{
				Intent:    ex.IntentEmbedding,
				Candidate: cand.Embedding,
				Stats: shgat.TraceStats{
					SuccessRate: cand.SuccessRate,
					UsageCount:  float64(len(cand.ToolsUsed)),
				},
			},
			Target:               target,
			ImportanceWeight:      weight,
			AnchorID:             ex.CandidateID.String(),
			AnchorEmbedding:       cand.Embedding,
			DirectToolEmbeddings: directTools,
		})
	}

	epochs := req.Epochs
	if epochs <= 0 {
		epochs = 1
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = len(examples)
	}
	if batchSize == 0 {
		return Response{Success: true, SavedToDB: false}
	}

	rng := kernel.NewMulberry32(req.Seed)
	var last BatchResult
	finalTD := make(map[uuid.UUID]float64)
	for epoch := 0; epoch < epochs; epoch++ {
		shuffled := shuffle(examples, rng)
		for start := 0; start < len(shuffled); start += batchSize {
			end := start + batchSize
			if end > len(shuffled) {
				end = len(shuffled)
			}
			last = trainer.TrainBatch(shuffled[start:end], pool)
			if epoch == epochs-1 {
				for id, v := range last.TDErrors {
					finalTD[id] = v
				}
			}
		}
	}
	model.SetState(shgat.StateLive)

	tdErrors := make([]TDErrorEntry, 0, len(finalTD))
	for id, v := range finalTD {
		tdErrors = append(tdErrors, TDErrorEntry{TraceID: id, TDError: v})
	}

	saved := false
	if saver != nil {
		if err := saver.SaveParams(ctx, req.ConnectionString, model.ExportParams()); err != nil {
			return Response{Success: false, Error: err.Error(), FinalLoss: last.Loss, FinalAccuracy: last.Accuracy, TDErrors: tdErrors}
		}
		saved = true
		model.SetState(shgat.StateSaved)
	}

	return Response{
		Success:      true,
		FinalLoss:    last.Loss,
		FinalAccuracy: last.Accuracy,
		TDErrors:     tdErrors,
		SavedToDB:    saved,
	}
}

func shuffle(examples []Example, rng *kernel.Mulberry32) []Example {
	out := append([]Example(nil), examples...)
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.Float32() * float32(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}
