// Package vectorindex implements C3: cosine top-K search over the
// normalized tool and capability embeddings the graph store holds. It is
// the pure-semantic leaf of the fallback chain (spec.md §7): every other
// ranking path degrades to this one when it is still available.
package vectorindex

import (
	"sort"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/kernel"
)

// ToolMatch is one scored tool search result.
type ToolMatch struct {
	ToolID string
	Score  float32
}

// CapabilityMatch is one scored capability search result.
type CapabilityMatch struct {
	CapabilityID uuid.UUID
	Score        float32
}

// Index is a flat, full-scan cosine index. It holds its own copy of the
// id/embedding pairs so callers can rebuild it from a Store snapshot
// without the index itself touching graph-store locks.
type Index struct {
	toolIDs    []string
	toolVecs   [][]float32
	capIDs     []uuid.UUID
	capVecs    [][]float32
}

// New builds an empty index.
func New() *Index {
	return &Index{}
}

// LoadTools replaces the tool set the index searches over.
func (ix *Index) LoadTools(tools []*domain.Tool) {
	ix.toolIDs = make([]string, len(tools))
	ix.toolVecs = make([][]float32, len(tools))
	for i, t := range tools {
		ix.toolIDs[i] = t.ID
		ix.toolVecs[i] = t.Embedding
	}
}

// LoadCapabilities replaces the capability set the index searches over.
func (ix *Index) LoadCapabilities(caps []*domain.Capability) {
	ix.capIDs = make([]uuid.UUID, len(caps))
	ix.capVecs = make([][]float32, len(caps))
	for i, c := range caps {
		ix.capIDs[i] = c.ID
		ix.capVecs[i] = c.IntentEmbedding
	}
}

// SearchTools returns the top-k tools by cosine similarity to query,
// sorted by descending score with ascending-id tie-break (spec.md §4.3).
func (ix *Index) SearchTools(query []float32, k int) []ToolMatch {
	out := make([]ToolMatch, len(ix.toolIDs))
	for i, v := range ix.toolVecs {
		out[i] = ToolMatch{ToolID: ix.toolIDs[i], Score: kernel.Cosine(query, v)}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ToolID < out[j].ToolID
	})
	if k >= 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// SearchCapabilities returns the top-k capabilities by cosine similarity
// to query, sorted by descending score with ascending-id tie-break.
func (ix *Index) SearchCapabilities(query []float32, k int) []CapabilityMatch {
	out := make([]CapabilityMatch, len(ix.capIDs))
	for i, v := range ix.capVecs {
		out[i] = CapabilityMatch{CapabilityID: ix.capIDs[i], Score: kernel.Cosine(query, v)}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CapabilityID.String() < out[j].CapabilityID.String()
	})
	if k >= 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// Len reports how many tools and capabilities are currently indexed.
func (ix *Index) Len() (tools, capabilities int) {
	return len(ix.toolIDs), len(ix.capIDs)
}
