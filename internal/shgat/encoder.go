package shgat

import (
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/kernel"
)

// GraphEncoder runs the bipartite V->E message-passing phase (spec.md
// §4.7 step 2; no E->V phase runs) and, when cfg.MultiLevel is set, the multi-level
// E^k -> E^{k+1} extension (step 3), producing graph-aware embeddings for
// every capability that feed into that capability's TraceFeatures
// "candidate" slot.
type GraphEncoder struct {
	cfg Config

	// vToE holds one headLayer per head for the level-0 V->E pass; eToV is
	// allocated alongside it but no method reads it. Per-level layers (used only when MultiLevel) are built lazily
	// per level since the level count is graph-dependent.
	vToE []headLayer
	eToV []headLayer

	perLevelUp   map[int][]headLayer
	perLevelDown map[int][]headLayer

	rng *kernel.Mulberry32
}

func newGraphEncoder(cfg Config, rng *kernel.Mulberry32) *GraphEncoder {
	headDim := cfg.EmbeddingDim / cfg.NumHeads
	vToE := make([]headLayer, cfg.NumHeads)
	eToV := make([]headLayer, cfg.NumHeads)
	for h := 0; h < cfg.NumHeads; h++ {
		vToE[h] = newHeadLayer(cfg.EmbeddingDim, headDim, rng)
		eToV[h] = newHeadLayer(cfg.EmbeddingDim, headDim, rng)
	}
	return &GraphEncoder{
		cfg:          cfg,
		vToE:         vToE,
		eToV:         eToV,
		perLevelUp:   make(map[int][]headLayer),
		perLevelDown: make(map[int][]headLayer),
		rng:          rng,
	}
}

func (g *GraphEncoder) levelLayers(level int, up bool) []headLayer {
	store := g.perLevelUp
	if !up {
		store = g.perLevelDown
	}
	if layers, ok := store[level]; ok {
		return layers
	}
	headDim := g.cfg.EmbeddingDim / g.cfg.NumHeads
	layers := make([]headLayer, g.cfg.NumHeads)
	for h := range layers {
		layers[h] = newHeadLayer(g.cfg.EmbeddingDim, headDim, g.rng)
	}
	store[level] = layers
	return layers
}

// EncodeLevel0 computes level-0 capability embeddings from tool
// embeddings via one V->E attention pass masked by containment,
// concatenating heads. No reverse E->V pass runs, so tool embeddings are
// not updated.
func (g *GraphEncoder) EncodeLevel0(containment *graphstore.ContainmentMatrix, toolEmb map[string][]float32) map[uuid.UUID][]float32 {
	if containment == nil || len(containment.ParentIDs) == 0 {
		return map[uuid.UUID][]float32{}
	}

	srcIDs := make([]string, 0, len(containment.MemberRefs))
	srcRows := make([][]float32, 0, len(containment.MemberRefs))
	for _, ref := range containment.MemberRefs {
		if ref.IsCapability {
			continue
		}
		srcIDs = append(srcIDs, ref.ToolID)
		srcRows = append(srcRows, toolEmb[ref.ToolID])
	}
	// target init: zero vectors, one per parent capability, refined by attention.
	tgtRows := make([][]float32, len(containment.ParentIDs))
	for i := range tgtRows {
		tgtRows[i] = zeros(g.cfg.EmbeddingDim)
	}

	incidence := toolIncidence(containment, srcIDs)

	headOutputs := runHeads(g.vToE, srcRows, tgtRows, incidence)

	out := make(map[uuid.UUID][]float32, len(containment.ParentIDs))
	for j, parentID := range containment.ParentIDs {
		concat := make([]float32, 0, g.cfg.EmbeddingDim)
		for h := range headOutputs {
			concat = append(concat, headOutputs[h][j]...)
		}
		out[parentID] = kernel.L2Normalize(padOrTrim(concat, g.cfg.EmbeddingDim))
	}
	return out
}

// runHeads projects and attends each head in layers concurrently:
// heads share the same srcRows/tgtRows/incidence inputs (read-only) but
// write their headDim-wide output into a private headOutputs[h] slot, so
// the NumHeads-way fan-out in spec.md §4.7 step 2's "concatenated-head
// output" has no cross-head contention to guard against.
func runHeads(layers []headLayer, srcRows, tgtRows [][]float32, incidence *kernel.Matrix) [][][]float32 {
	headOutputs := make([][][]float32, len(layers))
	var g errgroup.Group
	for h, layer := range layers {
		h, layer := h, layer
		g.Go(func() error {
			projSrc := layer.project(srcRows)
			projTgt := layer.project(tgtRows)
			headOutputs[h] = biAttend(projSrc, projTgt, layer.Attn, incidence)
			return nil
		})
	}
	_ = g.Wait() // biAttend/project never return an error; kept for the errgroup idiom
	return headOutputs
}

// toolIncidence builds a (numParents x numTools) mask from the
// containment matrix restricted to tool columns.
func toolIncidence(cm *graphstore.ContainmentMatrix, toolIDs []string) *kernel.Matrix {
	toolCol := make(map[string]int, len(toolIDs))
	for i, id := range toolIDs {
		toolCol[id] = i
	}
	m := kernel.NewMatrix(len(cm.ParentIDs), len(toolIDs))
	for r := range cm.ParentIDs {
		for c, ref := range cm.MemberRefs {
			if ref.IsCapability {
				continue
			}
			if col, ok := toolCol[ref.ToolID]; ok {
				m.Set(r, col, cm.At(r, c))
			}
		}
	}
	return m
}

// EncodeUpLevel propagates embeddings from level k capabilities to level
// k+1 capabilities (spec.md §4.7 step 3, used only when cfg.MultiLevel).
func (g *GraphEncoder) EncodeUpLevel(level int, containment *graphstore.ContainmentMatrix, childEmb map[uuid.UUID][]float32) map[uuid.UUID][]float32 {
	if containment == nil || len(containment.ParentIDs) == 0 {
		return map[uuid.UUID][]float32{}
	}
	layers := g.levelLayers(level, true)

	srcRefs := make([]uuid.UUID, 0, len(containment.MemberRefs))
	srcRows := make([][]float32, 0, len(containment.MemberRefs))
	for _, ref := range containment.MemberRefs {
		if !ref.IsCapability {
			continue
		}
		srcRefs = append(srcRefs, ref.CapabilityID)
		srcRows = append(srcRows, childEmb[ref.CapabilityID])
	}
	tgtRows := make([][]float32, len(containment.ParentIDs))
	for i := range tgtRows {
		tgtRows[i] = zeros(g.cfg.EmbeddingDim)
	}

	incidence := kernel.NewMatrix(len(containment.ParentIDs), len(srcRefs))
	srcCol := make(map[uuid.UUID]int, len(srcRefs))
	for i, id := range srcRefs {
		srcCol[id] = i
	}
	for r := range containment.ParentIDs {
		for c, ref := range containment.MemberRefs {
			if !ref.IsCapability {
				continue
			}
			if col, ok := srcCol[ref.CapabilityID]; ok {
				incidence.Set(r, col, containment.At(r, c))
			}
		}
	}

	headOutputs := runHeads(layers, srcRows, tgtRows, incidence)

	out := make(map[uuid.UUID][]float32, len(containment.ParentIDs))
	for j, parentID := range containment.ParentIDs {
		concat := make([]float32, 0, g.cfg.EmbeddingDim)
		for h := range headOutputs {
			concat = append(concat, headOutputs[h][j]...)
		}
		out[parentID] = padOrTrim(concat, g.cfg.EmbeddingDim)
	}
	return out
}

// ApplyDownwardResidual implements the residual connection at the
// downward pass: E^k <- E^k_pre + concat(heads) (spec.md §4.7 step 3).
func ApplyDownwardResidual(pre, headConcat map[uuid.UUID][]float32) map[uuid.UUID][]float32 {
	out := make(map[uuid.UUID][]float32, len(pre))
	for id, preVec := range pre {
		delta, ok := headConcat[id]
		if !ok {
			out[id] = preVec
			continue
		}
		sum := make([]float32, len(preVec))
		for i := range sum {
			sum[i] = preVec[i]
			if i < len(delta) {
				sum[i] += delta[i]
			}
		}
		out[id] = kernel.L2Normalize(sum)
	}
	return out
}

func padOrTrim(v []float32, n int) []float32 {
	if len(v) == n {
		return v
	}
	out := make([]float32, n)
	copy(out, v)
	return out
}
