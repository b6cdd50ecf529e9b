package training

import (
	"github.com/toolgraph/shgat/internal/kernel"
	"github.com/toolgraph/shgat/internal/shgat"
)

// Gradients accumulates the gradient of one batch's total loss with
// respect to every tensor Model.Tensors()/Vectors() exposes, keyed the
// same way so the optimizer can apply them without per-field code.
type Gradients struct {
	Matrices map[string]*kernel.Matrix
	Vectors  map[string][]float32
	Count    int // number of examples accumulated, for averaging
}

func newGradients(m *shgat.Model) *Gradients {
	g := &Gradients{Matrices: map[string]*kernel.Matrix{}, Vectors: map[string][]float32{}}
	for name, t := range m.Tensors() {
		g.Matrices[name] = kernel.NewMatrix(t.Rows, t.Cols)
	}
	for name, v := range m.Vectors() {
		g.Vectors[name] = make([]float32, len(v))
	}
	return g
}

// accumulateExample runs backpropagation for one (cache, target) pair and
// adds its gradient contribution into g. Returns the |TD error| for this
// example (|target - predicted|), used for C6 priority updates.
func (g *Gradients) accumulateExample(m *shgat.Model, cache shgat.ForwardCache, target float64) float64 {
	if cache.Unstable {
		return 0
	}
	g.Count++

	dOut := cache.Out - float32(target)
	tdError := dOut
	if tdError < 0 {
		tdError = -tdError
	}

	fuseW2 := m.Tensors()["fuse_w2"]
	addOuterScalarVec(g.Matrices["fuse_w2"], dOut, cache.Fuse1)
	g.Vectors["fuse_b2"][0] += dOut

	hf := len(cache.Fuse1)
	dFuse1 := make([]float32, hf)
	for i := 0; i < hf; i++ {
		dFuse1[i] = fuseW2.At(0, i) * dOut
	}
	dFuse1Pre := make([]float32, hf)
	for i := range dFuse1Pre {
		if cache.Fuse1[i] > 0 {
			dFuse1Pre[i] = dFuse1[i]
		}
	}

	fuseW1 := m.Tensors()["fuse_w1"]
	addOuter(g.Matrices["fuse_w1"], dFuse1Pre, cache.HeadScores)
	addInto(g.Vectors["fuse_b1"], dFuse1Pre)

	k := len(cache.HeadScores)
	dHeadScores := make([]float32, k)
	for col := 0; col < k; col++ {
		var sum float32
		for row := 0; row < hf; row++ {
			sum += fuseW1.At(row, col) * dFuse1Pre[row]
		}
		dHeadScores[col] = sum
	}

	hiddenDim := len(cache.Hidden)
	dHidden := make([]float32, hiddenDim)
	wqk := m.Tensors()
	for h := 0; h < k; h++ {
		head := cache.Heads[h]
		dHeadOut := dHeadScores[h]
		dDot := dHeadOut * head.Out * (1 - head.Out)
		sqrtD := cache.SqrtD
		if sqrtD == 0 {
			sqrtD = 1
		}
		dq := make([]float32, len(head.Q))
		dv := make([]float32, len(head.V))
		for i := range dq {
			dq[i] = dDot * head.V[i] / sqrtD
		}
		for i := range dv {
			dv[i] = dDot * head.Q[i] / sqrtD
		}

		headKey := headName("wqk", h)
		headVKey := headName("wv", h)
		addOuter(g.Matrices[headKey], dq, cache.Hidden)
		addOuter(g.Matrices[headVKey], dv, cache.Hidden)

		addMatTVecInto(dHidden, wqk[headKey], dq)
		addMatTVecInto(dHidden, wqk[headVKey], dv)
	}

	dHiddenPre := make([]float32, hiddenDim)
	for i := range dHiddenPre {
		if cache.Hidden[i] > 0 {
			dHiddenPre[i] = dHidden[i]
		}
	}
	addOuter(g.Matrices["w_proj"], dHiddenPre, cache.Input)
	addInto(g.Vectors["b_proj"], dHiddenPre)

	return float64(tdError)
}

func headName(prefix string, h int) string {
	return prefix + "_" + string(rune('a'+h))
}

func addOuter(dst *kernel.Matrix, a, b []float32) {
	for i := 0; i < dst.Rows && i < len(a); i++ {
		for j := 0; j < dst.Cols && j < len(b); j++ {
			dst.Set(i, j, dst.At(i, j)+a[i]*b[j])
		}
	}
}

func addOuterScalarVec(dst *kernel.Matrix, scalar float32, b []float32) {
	for j := 0; j < dst.Cols && j < len(b); j++ {
		dst.Set(0, j, dst.At(0, j)+scalar*b[j])
	}
}

func addInto(dst, src []float32) {
	for i := range dst {
		if i < len(src) {
			dst[i] += src[i]
		}
	}
}

// addMatTVecInto adds W^T * x into dst: dst[c] += sum_r W[r][c] * x[r].
func addMatTVecInto(dst []float32, w *kernel.Matrix, x []float32) {
	for r := 0; r < w.Rows && r < len(x); r++ {
		row := w.Row(r)
		for c := 0; c < w.Cols && c < len(dst); c++ {
			dst[c] += row[c] * x[r]
		}
	}
}
