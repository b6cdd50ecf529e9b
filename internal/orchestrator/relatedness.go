package orchestrator

import (
	"math"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/graphstore"
)

// GraphDensity is edges / (n*(n-1)) over the tool+capability node space,
// the signal the hybrid path uses to pick an expansion factor.
func GraphDensity(store *graphstore.Store) float64 {
	n := len(store.AllTools()) + len(store.AllCapabilities())
	if n < 2 {
		return 0
	}
	var edges int
	for _, t := range store.AllTools() {
		edges += store.Degree(domain.NodeRef{Kind: domain.MemberTool, ID: t.ID})
	}
	for _, c := range store.AllCapabilities() {
		edges += store.Degree(domain.NodeRef{Kind: domain.MemberCapability, ID: c.ID.String()})
	}
	// Degree sums count each edge from both endpoints once it's summed
	// over every node, so divide by 2 to get a simple edge count.
	edgeCount := float64(edges) / 2
	return edgeCount / (float64(n) * float64(n-1))
}

// ExpansionFactor maps a density value to the over-fetch multiplier the
// hybrid path applies to its vector top-K (spec.md §4.10): the sparser
// the graph, the weaker structural relatedness alone is, so more
// candidates are pulled in before re-ranking.
func ExpansionFactor(density float64, cfg Config) float64 {
	switch {
	case density < cfg.DensityLowThreshold:
		return cfg.ExpansionSparse
	case density < cfg.DensityHighThreshold:
		return cfg.ExpansionMedium
	default:
		return cfg.ExpansionDense
	}
}

// ComputeGraphRelatedness scores how structurally related a candidate
// node is to a set of context tools, using common-neighbor counting with
// Adamic-Adar weighting (rarer shared neighbors count for more):
// sum over common neighbors w of 1/ln(degree(w)), normalized into [0,1]
// by the number of context tools considered.
func ComputeGraphRelatedness(store *graphstore.Store, candidate domain.NodeRef, contextTools []string) float64 {
	if len(contextTools) == 0 {
		return 0
	}
	candidateNeighbors := neighborSet(store, candidate)
	if len(candidateNeighbors) == 0 {
		return 0
	}

	var total float64
	for _, toolID := range contextTools {
		ctxRef := domain.NodeRef{Kind: domain.MemberTool, ID: toolID}
		ctxNeighbors := neighborSet(store, ctxRef)
		for n := range ctxNeighbors {
			if !candidateNeighbors[n] {
				continue
			}
			degree := store.Degree(n)
			if degree <= 1 {
				continue
			}
			total += 1 / math.Log(float64(degree))
		}
	}
	normalized := total / float64(len(contextTools))
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// ShortestHopCount breadth-first searches from every context tool toward
// target, returning the smallest hop count found within maxHops (spec.md
// §4.11's path-confidence-by-hop-count feeds on this). ok is false when
// target is unreached from any context tool within maxHops.
func ShortestHopCount(store *graphstore.Store, target domain.NodeRef, contextTools []string, maxHops int) (int, bool) {
	best := -1
	for _, id := range contextTools {
		start := domain.NodeRef{Kind: domain.MemberTool, ID: id}
		if start == target {
			return 0, true
		}
		if hops, ok := bfsHops(store, start, target, maxHops); ok && (best == -1 || hops < best) {
			best = hops
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func bfsHops(store *graphstore.Store, start, target domain.NodeRef, maxHops int) (int, bool) {
	visited := map[domain.NodeRef]bool{start: true}
	frontier := []domain.NodeRef{start}
	for hops := 1; hops <= maxHops && len(frontier) > 0; hops++ {
		var next []domain.NodeRef
		for _, n := range frontier {
			for neighbor := range neighborSet(store, n) {
				if visited[neighbor] {
					continue
				}
				if neighbor == target {
					return hops, true
				}
				visited[neighbor] = true
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return 0, false
}

func neighborSet(store *graphstore.Store, ref domain.NodeRef) map[domain.NodeRef]bool {
	out := map[domain.NodeRef]bool{}
	for _, n := range store.InNeighbors(ref) {
		out[n] = true
	}
	for _, n := range store.OutNeighbors(ref) {
		out[n] = true
	}
	return out
}

// RelatedTools returns up to n in-neighbor and n out-neighbor tool ids
// for a node, used to decorate a ranked tool result with `relatedTools`
// (spec.md §4.10).
func RelatedTools(store *graphstore.Store, ref domain.NodeRef, n int) []string {
	var out []string
	for _, neighbor := range store.InNeighbors(ref) {
		if neighbor.Kind != domain.MemberTool || len(out) >= n {
			break
		}
		out = append(out, neighbor.ID)
	}
	inCount := len(out)
	for _, neighbor := range store.OutNeighbors(ref) {
		if neighbor.Kind != domain.MemberTool || len(out)-inCount >= n {
			break
		}
		out = append(out, neighbor.ID)
	}
	return out
}
