package spectral

import "github.com/toolgraph/shgat/internal/kernel"

// PageRankConfig holds the damped power-iteration parameters (spec.md
// §4.4): damping 0.85, convergence tolerance 1e-6, capped at 100
// iterations.
type PageRankConfig struct {
	Damping    float64
	Tolerance  float64
	MaxIters   int
}

// DefaultPageRankConfig returns the spec's mandated constants.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{Damping: 0.85, Tolerance: 1e-6, MaxIters: 100}
}

// HypergraphPageRank runs damped power iteration over a row-stochastic
// transition derived from Matrix, redistributing dangling (zero
// out-degree) node mass uniformly each iteration.
func HypergraphPageRank(adj *kernel.Matrix, cfg PageRankConfig) []float64 {
	n := adj.Rows
	if n == 0 {
		return nil
	}

	outDeg := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += float64(adj.At(i, j))
		}
		outDeg[i] = sum
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	base := (1 - cfg.Damping) / float64(n)
	for iter := 0; iter < cfg.MaxIters; iter++ {
		next := make([]float64, n)
		danglingMass := 0.0
		for i := 0; i < n; i++ {
			if outDeg[i] == 0 {
				danglingMass += rank[i]
			}
		}
		danglingShare := cfg.Damping * danglingMass / float64(n)

		for i := 0; i < n; i++ {
			next[i] = base + danglingShare
		}
		for i := 0; i < n; i++ {
			if outDeg[i] == 0 {
				continue
			}
			share := cfg.Damping * rank[i] / outDeg[i]
			for j := 0; j < n; j++ {
				w := float64(adj.At(i, j))
				if w == 0 {
					continue
				}
				next[j] += share * w
			}
		}

		diff := 0.0
		for i := range next {
			d := next[i] - rank[i]
			if d < 0 {
				d = -d
			}
			diff += d
		}
		rank = next
		if diff < cfg.Tolerance {
			break
		}
	}
	return rank
}
