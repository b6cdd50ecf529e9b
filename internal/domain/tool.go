package domain

import "github.com/toolgraph/shgat/internal/kernel"

// Tool is an atomic, externally-provided operation identified by
// "server:name" (spec.md §3). The graph store is the exclusive owner of
// Tool records; every other component holds only the id.
type Tool struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"embedding"`

	// Graph-derived features. Never set directly by callers.
	Features ToolFeatures `json:"features"`
}

// ToolFeatures holds the structural signals the graph contributes to a
// tool's score. PageRank and LouvainCommunity are recomputed by the
// spectral manager (C4) after every graph-sync cycle (C9) that changes
// the graph. AdamicAdar, CoOccurrence, Recency and HeatDiffusion are
// reserved for graph-metric passes this engine does not yet compute and
// stay at their zero value until one is wired in.
type ToolFeatures struct {
	PageRank        float64 `json:"pageRank"`
	LouvainCommunity int    `json:"louvainCommunity"`
	AdamicAdar      float64 `json:"adamicAdar"`
	CoOccurrence    float64 `json:"coOccurrence"`
	Recency         float64 `json:"recency"`
	HeatDiffusion   float64 `json:"heatDiffusion"`
}

// NewTool constructs a Tool, L2-normalizing the embedding on write per
// spec.md §3 invariant 1.
func NewTool(id, description string, embedding []float32) *Tool {
	return &Tool{
		ID:          id,
		Description: description,
		Embedding:   kernel.L2Normalize(embedding),
	}
}
