// Package alpha implements C5: the local-alpha calculator, which picks a
// per-target semantic/graph blend weight in [0.5, 1.0] consumed by the
// hybrid ranking path (§4.3) and by C11's confidence scoring.
package alpha

import (
	"math"

	"github.com/toolgraph/shgat/internal/kernel"
)

// Algorithm names the signal that produced an alpha value, returned
// alongside it so callers and the decision log can explain the choice.
type Algorithm string

const (
	AlgorithmEmbeddingsHybrides Algorithm = "embeddings_hybrides"
	AlgorithmHeatDiffusion      Algorithm = "heat_diffusion"
	AlgorithmBayesian           Algorithm = "bayesian"
	AlgorithmNone               Algorithm = "none"
)

const (
	minAlpha = 0.5
	maxAlpha = 1.0
)

// Result is the output of a Compute call.
type Result struct {
	Alpha     float64
	Algorithm Algorithm
	ColdStart bool
}

// Input bundles every signal Compute may draw on. Zero-value fields
// (empty embeddings, HasSpectralEmbedding false, UsageCount 0) make
// Compute fall through to the next available signal.
type Input struct {
	SemanticEmbedding []float32

	SpectralEmbedding    []float64
	HasSpectralEmbedding bool

	// HeatDiffusion is a single-valued heat-diffusion relevance score in
	// [0, 1], used as a spectral-embedding fallback.
	HeatDiffusion    float64
	HasHeatDiffusion bool

	SuccessCount int
	UsageCount   int

	// DefaultAlpha is config.defaults.alpha, used by the "none" fallback.
	DefaultAlpha float64
}

// Compute returns {alpha, algorithm, coldStart} by trying, in order:
// Embeddings-Hybrides cosine agreement, heat-diffusion, a Bayesian
// beta-prior success-rate adjustment, then the configured default
// (spec.md §4.5).
func Compute(in Input) Result {
	if len(in.SemanticEmbedding) > 0 && in.HasSpectralEmbedding && len(in.SpectralEmbedding) > 0 {
		return Result{
			Alpha:     embeddingsHybridesAlpha(in.SemanticEmbedding, in.SpectralEmbedding),
			Algorithm: AlgorithmEmbeddingsHybrides,
			ColdStart: in.UsageCount == 0,
		}
	}

	if in.HasHeatDiffusion {
		return Result{
			Alpha:     heatDiffusionAlpha(in.HeatDiffusion),
			Algorithm: AlgorithmHeatDiffusion,
			ColdStart: in.UsageCount == 0,
		}
	}

	if in.UsageCount > 0 {
		return Result{
			Alpha:     bayesianAlpha(in.SuccessCount, in.UsageCount),
			Algorithm: AlgorithmBayesian,
			ColdStart: false,
		}
	}

	def := in.DefaultAlpha
	if def == 0 {
		def = minAlpha
	}
	return Result{Alpha: clamp(def), Algorithm: AlgorithmNone, ColdStart: true}
}

// embeddingsHybridesAlpha: high cosine agreement between the semantic and
// spectral embeddings means the graph structure already agrees with
// meaning, so the graph signal can be trusted more (lower alpha, i.e.
// closer to an even split) — agreement near 1 maps to minAlpha, agreement
// near -1 maps to maxAlpha.
func embeddingsHybridesAlpha(semantic []float32, spectral []float64) float64 {
	spectral32 := make([]float32, len(spectral))
	for i, v := range spectral {
		spectral32[i] = float32(v)
	}
	n := len(semantic)
	if len(spectral32) < n {
		n = len(spectral32)
	}
	agreement := float64(kernel.Cosine(semantic[:n], spectral32[:n]))
	// map agreement in [-1, 1] to alpha in [maxAlpha, minAlpha] (inverted).
	normalized := (agreement + 1) / 2 // [0, 1], 1 = full agreement
	return clamp(maxAlpha - normalized*(maxAlpha-minAlpha))
}

// heatDiffusionAlpha maps a [0,1] heat-diffusion relevance score to
// [minAlpha, maxAlpha] with the same inverted sense as the primary
// signal: high diffusion relevance (graph already agrees) lowers alpha.
func heatDiffusionAlpha(score float64) float64 {
	return clamp(maxAlpha - score*(maxAlpha-minAlpha))
}

// bayesianAlpha applies a Beta(1,1) prior over the target's observed
// success rate; as observation count grows, alpha decays toward minAlpha
// following the prior's shrinking variance (spec.md §4.5: "lowers alpha
// as counts grow").
func bayesianAlpha(successCount, usageCount int) float64 {
	const priorA, priorB = 1.0, 1.0
	posteriorA := priorA + float64(successCount)
	posteriorB := priorB + float64(usageCount-successCount)
	variance := (posteriorA * posteriorB) /
		((posteriorA + posteriorB) * (posteriorA + posteriorB) * (posteriorA + posteriorB + 1))
	// variance is largest at n=0, where it equals the prior's own variance
	// (1/12 for Beta(1,1)); normalize against that so more observations
	// (lower variance) drive alpha toward minAlpha.
	const priorVariance = (priorA * priorB) /
		((priorA + priorB) * (priorA + priorB) * (priorA + priorB + 1))
	confidence := 1 - math.Min(variance/priorVariance, 1)
	return clamp(maxAlpha - confidence*(maxAlpha-minAlpha))
}

func clamp(a float64) float64 {
	if a < minAlpha {
		return minAlpha
	}
	if a > maxAlpha {
		return maxAlpha
	}
	return a
}
