package shgat

import "github.com/toolgraph/shgat/internal/kernel"

// headLayer holds one attention head's learnable projections for a
// bipartite V->E or E->V pass: Wx projects sources, Wy projects targets
// (spec.md §4.7 step 2 uses shared Wx=Wy within a phase so cosine
// structure is preserved across the concatenated-head output), and Attn
// is the scoring vector `a` applied to [Wx_i || Wy_j].
type headLayer struct {
	W    *kernel.Matrix // (headDim x embDim)
	Attn []float32      // len 2*headDim
}

func newHeadLayer(embDim, headDim int, rng *kernel.Mulberry32) headLayer {
	w := xavierInit(headDim, embDim, rng)
	attn := make([]float32, 2*headDim)
	bound := float32(1) / float32(headDim)
	for i := range attn {
		attn[i] = (rng.Float32()*2 - 1) * bound
	}
	return headLayer{W: w, Attn: attn}
}

// project applies Wx to every row of a batch of embeddings.
func (h headLayer) project(rows [][]float32) [][]float32 {
	out := make([][]float32, len(rows))
	for i, r := range rows {
		m := kernel.NewMatrix(1, len(r))
		copy(m.Data, r)
		projected := kernel.MatmulTranspose(m, h.W)
		out[i] = append([]float32(nil), projected.Data...)
	}
	return out
}

// biAttend runs one bipartite attention pass: sources (already projected,
// len srcN x headDim) attend to targets (projected, len tgtN x headDim)
// under an incidence mask (tgtN x srcN, 1 where source i feeds target j),
// producing one aggregated headDim vector per target via
// y'_j = elu(sum_i alpha_ij * Wx_i).
func biAttend(projSrc, projTgt [][]float32, attn []float32, incidence *kernel.Matrix) [][]float32 {
	headDim := 0
	if len(projSrc) > 0 {
		headDim = len(projSrc[0])
	} else if len(projTgt) > 0 {
		headDim = len(projTgt[0])
	}
	out := make([][]float32, len(projTgt))

	for j := range projTgt {
		logits := make([]float32, len(projSrc))
		any := false
		for i := range projSrc {
			if incidence != nil && incidence.At(j, i) == 0 {
				logits[i] = negInf
				continue
			}
			any = true
			concat := make([]float32, 2*headDim)
			copy(concat[:headDim], projSrc[i])
			copy(concat[headDim:], projTgt[j])
			var score float32
			for d, v := range concat {
				score += attn[d] * v
			}
			logits[i] = kernel.LeakyReLUScalar(score, 0.2)
		}
		if !any {
			out[j] = zeros(headDim)
			continue
		}
		alphas := maskedSoftmax(logits)
		agg := make([]float32, headDim)
		for i, a := range alphas {
			if a == 0 {
				continue
			}
			for d := 0; d < headDim; d++ {
				agg[d] += a * projSrc[i][d]
			}
		}
		out[j] = kernel.ELU(agg)
	}
	return out
}

const negInf = float32(-1e30)

// maskedSoftmax treats negInf entries as excluded from the distribution.
func maskedSoftmax(logits []float32) []float32 {
	filtered := make([]float32, len(logits))
	copy(filtered, logits)
	probs := kernel.Softmax(filtered)
	for i, l := range logits {
		if l <= negInf/2 {
			probs[i] = 0
		}
	}
	sum := float32(0)
	for _, p := range probs {
		sum += p
	}
	if sum == 0 {
		return probs
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
