// Package rationale implements C11: path-confidence-by-hop-count,
// alpha-adaptive weight interpolation, hybrid/community confidence
// composition, and short human-readable rationale strings for a
// discovery candidate.
package rationale

import "fmt"

// PathConfidenceByHops returns spec.md §4.11's hop-count confidence
// ladder: 1 hop -> 0.9, 2 -> 0.7, 3 -> 0.5, >=4 -> 0.3. hops <= 0 is
// treated as "no path", returning 0.
func PathConfidenceByHops(hops int) float64 {
	switch {
	case hops <= 0:
		return 0
	case hops == 1:
		return 0.9
	case hops == 2:
		return 0.7
	case hops == 3:
		return 0.5
	default:
		return 0.3
	}
}

// WeightConfig holds the base weights and interpolation deltas C11 uses
// to adapt scoring weights to C5's local alpha.
type WeightConfig struct {
	BaseHybrid   float64
	BasePageRank float64
	BasePath     float64

	DeltaHybrid   float64
	DeltaPageRank float64
	DeltaPath     float64

	HybridWeight      float64
	PageRankWeight    float64
	PathWeight        float64
	CommunityCap      float64
	CoOccurrenceCap   float64
}

// DefaultWeightConfig mirrors a balanced three-way split with modest
// interpolation deltas, and caps on the additive community/co-occurrence
// confidence terms so neither can dominate the hybrid score.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		BaseHybrid:      0.5,
		BasePageRank:    0.3,
		BasePath:        0.2,
		DeltaHybrid:     0.2,
		DeltaPageRank:   0.1,
		DeltaPath:       0.1,
		HybridWeight:    0.5,
		PageRankWeight:  0.3,
		PathWeight:      0.2,
		CommunityCap:    0.15,
		CoOccurrenceCap: 0.1,
	}
}

// AdaptiveWeights is the set of weights C11 derives from a given alpha,
// per spec.md §4.11's linear interpolation: hybrid increases with alpha
// (more semantic-leaning), pageRank and path decrease symmetrically.
type AdaptiveWeights struct {
	Hybrid   float64
	PageRank float64
	Path     float64
}

// AdaptWeights interpolates cfg's base weights around alpha=0.5,
// clamping every output weight to [0, 1].
func AdaptWeights(alpha float64, cfg WeightConfig) AdaptiveWeights {
	delta := alpha - 0.5
	return AdaptiveWeights{
		Hybrid:   clamp01(cfg.BaseHybrid + delta*cfg.DeltaHybrid),
		PageRank: clamp01(cfg.BasePageRank - delta*cfg.DeltaPageRank),
		Path:     clamp01(cfg.BasePath - delta*cfg.DeltaPath),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HybridConfidence combines the hybrid score, the average of the top-3
// PageRank values, and the average path confidence, weighted by cfg
// (spec.md §4.11: hybrid*w_h + avg(pageRank top-3)*w_p + avg(pathConf)*w_path).
func HybridConfidence(hybridScore float64, topPageRanks []float64, pathConfidences []float64, cfg WeightConfig) float64 {
	avgPR := averageTopN(topPageRanks, 3)
	avgPath := average(pathConfidences)
	return hybridScore*cfg.HybridWeight + avgPR*cfg.PageRankWeight + avgPath*cfg.PathWeight
}

// CommunityConfidence additively composes a community-membership signal
// and a co-occurrence signal on top of a base confidence, each capped so
// neither term alone can dominate (spec.md §4.11).
func CommunityConfidence(base, communitySignal, coOccurrenceSignal float64, cfg WeightConfig) float64 {
	community := communitySignal
	if community > cfg.CommunityCap {
		community = cfg.CommunityCap
	}
	coOcc := coOccurrenceSignal
	if coOcc > cfg.CoOccurrenceCap {
		coOcc = cfg.CoOccurrenceCap
	}
	return base + community + coOcc
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func averageTopN(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] > sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return average(sorted)
}

// Contributor is one named signal that fed into a candidate's final
// score, used to build the short rationale string.
type Contributor struct {
	Name  string
	Value float64
}

// Rationale builds a short string enumerating the dominant contributors
// (highest Value first, capped at top 3) and the current alpha, e.g.
// "ranked by shgat (0.82), pageRank (0.41); alpha=0.73".
func Rationale(contributors []Contributor, alpha float64) string {
	sorted := append([]Contributor(nil), contributors...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Value > sorted[i].Value {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}
	s := "ranked by "
	for i, c := range sorted {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s (%.2f)", c.Name, c.Value)
	}
	s += fmt.Sprintf("; alpha=%.2f", alpha)
	return s
}
