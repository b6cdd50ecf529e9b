package training

import (
	"sort"

	"github.com/toolgraph/shgat/internal/kernel"
)

// PoolItem is one candidate (tool or capability) embedding considered for
// hard-negative mining against a training anchor.
type PoolItem struct {
	ID        string
	Embedding []float32
}

// NegativeMiningConfig controls spec.md §4.8's hard-negative selection:
// excluding the anchor's own cluster, then picking semi-hard negatives
// from the middle of the similarity distribution before randomly topping
// up to NumNegatives.
type NegativeMiningConfig struct {
	NumNegatives     int
	SemiHardLowPct   float64
	SemiHardHighPct  float64
	MinSpread        float64
	ClusterThreshold float64
}

// DefaultNegativeMiningConfig matches spec.md §4.8's defaults: 8
// negatives, semi-hard band [P25, P75], minimum 0.1 spread within that
// band, and a 0.7 cosine threshold for "same cluster as a direct tool".
func DefaultNegativeMiningConfig() NegativeMiningConfig {
	return NegativeMiningConfig{
		NumNegatives:     8,
		SemiHardLowPct:   0.25,
		SemiHardHighPct:  0.75,
		MinSpread:        0.1,
		ClusterThreshold: 0.7,
	}
}

type scoredItem struct {
	id    string
	score float32
}

// MineHardNegatives picks training negatives for anchorID: it first
// excludes the anchor itself, its direct tools, and any pool member that
// cosine-clusters (>= ClusterThreshold) with a direct tool, then prefers
// semi-hard negatives (similarity to the anchor inside [P25, P75] of the
// remaining distribution, spread at least MinSpread), and randomly tops
// up to NumNegatives if the semi-hard band doesn't supply enough.
func MineHardNegatives(anchorID string, anchorEmbedding []float32, directTools []PoolItem, pool []PoolItem, cfg NegativeMiningConfig, rng *kernel.Mulberry32) []string {
	excluded := map[string]bool{anchorID: true}
	for _, t := range directTools {
		excluded[t.ID] = true
	}

	candidates := make([]scoredItem, 0, len(pool))
	for _, p := range pool {
		if excluded[p.ID] {
			continue
		}
		clustered := false
		for _, t := range directTools {
			if kernel.Cosine(p.Embedding, t.Embedding) >= float32(cfg.ClusterThreshold) {
				clustered = true
				break
			}
		}
		if clustered {
			continue
		}
		candidates = append(candidates, scoredItem{id: p.ID, score: kernel.Cosine(p.Embedding, anchorEmbedding)})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	lowIdx := percentileIndex(len(candidates), cfg.SemiHardLowPct)
	highIdx := percentileIndex(len(candidates), cfg.SemiHardHighPct)
	band := candidates[lowIdx : highIdx+1]

	spread := float64(0)
	if len(band) > 1 {
		spread = float64(band[len(band)-1].score - band[0].score)
	}

	var selected []scoredItem
	if spread >= cfg.MinSpread {
		selected = append(selected, band...)
	}

	selectedIDs := make(map[string]bool, len(selected))
	out := make([]string, 0, cfg.NumNegatives)
	for _, s := range selected {
		if len(out) >= cfg.NumNegatives {
			break
		}
		out = append(out, s.id)
		selectedIDs[s.id] = true
	}

	remaining := make([]scoredItem, 0, len(candidates))
	for _, c := range candidates {
		if !selectedIDs[c.id] {
			remaining = append(remaining, c)
		}
	}
	for len(out) < cfg.NumNegatives && len(remaining) > 0 {
		idx := int(rng.Float32() * float32(len(remaining)))
		if idx >= len(remaining) {
			idx = len(remaining) - 1
		}
		out = append(out, remaining[idx].id)
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out
}

// percentileIndex maps a percentile in [0,1] to an index into a slice of
// length n, clamped to the valid range.
func percentileIndex(n int, pct float64) int {
	if n <= 1 {
		return 0
	}
	idx := int(pct * float64(n-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}
