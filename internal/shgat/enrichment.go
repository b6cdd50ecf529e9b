package shgat

import "github.com/toolgraph/shgat/internal/kernel"

// CoOccurrence is the sparse co-occurrence weight matrix used by the
// optional V->V enrichment pre-phase (spec.md §4.7 step 1), derived from
// external workflow patterns: CoOccurrence[i][j] = w_ij.
type CoOccurrence map[string]map[string]float64

// EnrichToolEmbeddings applies the V->V enrichment pre-phase: for each
// tool i, weight co-occurring tools j by cos(H_i, H_j) * w_ij / tau,
// softmax, then H'_i = L2normalize(H_i + beta * sum_j alpha_ij H_j). When
// coOcc has no entry for a tool, that tool's embedding passes through
// unchanged.
func EnrichToolEmbeddings(ids []string, embeddings map[string][]float32, coOcc CoOccurrence, cfg Config) map[string][]float32 {
	out := make(map[string][]float32, len(ids))
	for _, id := range ids {
		out[id] = append([]float32(nil), embeddings[id]...)
	}
	if !cfg.EnrichAttn || coOcc == nil {
		return out
	}

	for _, id := range ids {
		neighbors := coOcc[id]
		if len(neighbors) == 0 {
			continue
		}
		hi := embeddings[id]
		neighborIDs := make([]string, 0, len(neighbors))
		logits := make([]float32, 0, len(neighbors))
		for j, w := range neighbors {
			hj, ok := embeddings[j]
			if !ok {
				continue
			}
			cos := kernel.Cosine(hi, hj)
			logit := cos * float32(w) / float32(cfg.EnrichmentTau)
			neighborIDs = append(neighborIDs, j)
			logits = append(logits, logit)
		}
		if len(neighborIDs) == 0 {
			continue
		}
		alphas := kernel.Softmax(logits)

		sum := make([]float32, len(hi))
		for k, j := range neighborIDs {
			hj := embeddings[j]
			for d := range sum {
				if d < len(hj) {
					sum[d] += alphas[k] * hj[d]
				}
			}
		}
		enriched := make([]float32, len(hi))
		for d := range enriched {
			enriched[d] = hi[d] + float32(cfg.EnrichmentBeta)*sum[d]
		}
		out[id] = kernel.L2Normalize(enriched)
	}
	return out
}
