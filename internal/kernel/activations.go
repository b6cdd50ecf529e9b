package kernel

import "math"

// Softmax is numerically stable: it subtracts the row max before
// exponentiating, then normalizes. An empty vector returns an empty
// vector. The output sums to 1 within float32 tolerance (spec.md §8
// invariant 6).
func Softmax(v []float32) []float32 {
	out := make([]float32, len(v))
	if len(v) == 0 {
		return out
	}
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - maxV))
		out[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return out
	}
	invSum := float32(1 / sum)
	for i := range out {
		out[i] *= invSum
	}
	return out
}

// LeakyReLU applies f(x) = x if x > 0 else alpha*x, elementwise.
// Guaranteed leakyRelu(x, alpha) >= alpha*x for alpha in (0, 1].
func LeakyReLU(v []float32, alpha float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = x
		} else {
			out[i] = alpha * x
		}
	}
	return out
}

// LeakyReLUScalar is the scalar form, used inline by attention scoring.
func LeakyReLUScalar(x, alpha float32) float32 {
	if x > 0 {
		return x
	}
	return alpha * x
}

// ELU applies f(x) = x if x > 0 else exp(x)-1, elementwise.
// Guaranteed elu(x) >= -1 (spec.md §8 invariant 6).
func ELU(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = ELUScalar(x)
	}
	return out
}

func ELUScalar(x float32) float32 {
	if x > 0 {
		return x
	}
	return float32(math.Exp(float64(x))) - 1
}

// Sigmoid is the logistic function, used by the fusion MLP's output layer
// and by the scaled-sigmoid head scores.
func Sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(float64(-x))))
}

// ReLU is max(0, x), elementwise.
func ReLU(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = x
		}
	}
	return out
}

// Clip clamps x to [lo, hi].
func Clip(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
