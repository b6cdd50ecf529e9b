package shgat

import (
	"math"

	"github.com/toolgraph/shgat/internal/kernel"
)

// xavierInit fills an (out x in) matrix with uniform Xavier-bounded noise.
func xavierInit(out, in int, rng *kernel.Mulberry32) *kernel.Matrix {
	m := kernel.NewMatrix(out, in)
	bound := float32(math.Sqrt(6.0 / float64(in+out)))
	for i := 0; i < out; i++ {
		for j := 0; j < in; j++ {
			v := (rng.Float32()*2 - 1) * bound
			m.Set(i, j, v)
		}
	}
	return m
}

// identityLikeInit fills a square matrix with an identity plus small
// Xavier-bounded noise, used when a projection preserves dimension
// (spec.md §4.7).
func identityLikeInit(n int, rng *kernel.Mulberry32) *kernel.Matrix {
	m := kernel.NewMatrix(n, n)
	noiseBound := float32(0.01)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := (rng.Float32()*2 - 1) * noiseBound
			if i == j {
				v += 1
			}
			m.Set(i, j, v)
		}
	}
	return m
}

func zeros(n int) []float32 { return make([]float32, n) }
