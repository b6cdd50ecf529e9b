package shgat

import (
	"math"

	"github.com/toolgraph/shgat/internal/kernel"
)

// HeadActivations caches one head's intermediate values, needed by the
// training worker's backward pass.
type HeadActivations struct {
	Q, V []float32
	Dot  float32
	Out  float32 // sigmoid(dot)
}

// ForwardCache caches every intermediate activation of one forward pass,
// consumed by the training worker (C8) to run backpropagation without
// duplicating the forward pass's math.
type ForwardCache struct {
	Input      []float32
	HiddenPre  []float32
	Hidden     []float32
	Heads      []HeadActivations
	HeadScores []float32
	Fuse1Pre   []float32
	Fuse1      []float32
	Fuse2      float32
	Out        float32
	SqrtD      float32
	Unstable   bool
}

// ForwardWithCache runs the same computation as the unexported forward
// method but retains every intermediate value a gradient pass needs.
func (m *Model) ForwardWithCache(features TraceFeatures) ForwardCache {
	x := features.Flatten(m.cfg.EmbeddingDim)
	if len(x) != m.inputDim {
		padded := make([]float32, m.inputDim)
		copy(padded, x)
		x = padded
	}

	hiddenPre := matvecBias(m.WProj, m.BProj, x)
	hidden := reluCopy(hiddenPre)
	if containsNonFinite(hidden) {
		return ForwardCache{Input: x, Unstable: true}
	}

	sqrtD := float32(math.Sqrt(float64(len(hidden))))
	heads := make([]HeadActivations, m.cfg.NumHeads)
	headScores := make([]float32, m.cfg.NumHeads)
	for h := 0; h < m.cfg.NumHeads; h++ {
		q := matvec(m.WQK[h], hidden)
		v := matvec(m.WV[h], hidden)
		var dot float32
		n := len(q)
		if len(v) < n {
			n = len(v)
		}
		for i := 0; i < n; i++ {
			dot += q[i] * v[i]
		}
		if sqrtD > 0 {
			dot /= sqrtD
		}
		out := sigmoidF(dot)
		heads[h] = HeadActivations{Q: q, V: v, Dot: dot, Out: out}
		headScores[h] = out
	}
	if containsNonFinite(headScores) {
		return ForwardCache{Input: x, Unstable: true}
	}

	fuse1Pre := matvecBias(m.FuseW1, m.FuseB1, headScores)
	fuse1 := reluCopy(fuse1Pre)
	fuse2Raw := matvec(m.FuseW2, fuse1)
	fuse2 := fuse2Raw[0] + m.FuseB2[0]
	out := sigmoidF(fuse2)
	if math.IsNaN(float64(out)) || math.IsInf(float64(out), 0) {
		return ForwardCache{Input: x, Unstable: true}
	}

	return ForwardCache{
		Input:      x,
		HiddenPre:  hiddenPre,
		Hidden:     hidden,
		Heads:      heads,
		HeadScores: headScores,
		Fuse1Pre:   fuse1Pre,
		Fuse1:      fuse1,
		Fuse2:      fuse2,
		Out:        out,
		SqrtD:      sqrtD,
	}
}

func matvecBias(w *kernel.Matrix, b []float32, x []float32) []float32 {
	y := matvec(w, x)
	out := make([]float32, len(y))
	for i, v := range y {
		out[i] = v + b[i]
	}
	return out
}

func reluCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = x
		}
	}
	return out
}

func sigmoidF(x float32) float32 {
	return float32(1 / (1 + math.Exp(float64(-x))))
}
