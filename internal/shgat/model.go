package shgat

import (
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/kernel"
)

// TrainingState is C7's training state machine (spec.md §4.7), driven
// externally by C8/C9.
type TrainingState string

const (
	StateCold  TrainingState = "cold"
	StateBatch TrainingState = "batch"
	StateLive  TrainingState = "live"
	StateSaved TrainingState = "saved"
)

// ToolScore is one scoreAllTools result.
type ToolScore struct {
	ToolID     string
	Score      float32
	HeadScores []float32
}

// CapabilityScore is one scoreAllCapabilities result.
type CapabilityScore struct {
	CapabilityID       uuid.UUID
	Score              float32
	HeadScores         []float32
	FeatureContrib     map[string]float32
	ToolAttention      map[string]float32
}

// Model is the SHGAT fusion scorer: TraceFeatures -> hidden projection ->
// K scaled-sigmoid head scores -> fusion MLP -> sigmoid score, with a
// reliability multiplier applied after fusion.
type Model struct {
	cfg   Config
	rng   *kernel.Mulberry32
	state TrainingState

	inputDim int

	WProj *kernel.Matrix // hiddenDim x inputDim
	BProj []float32

	// headDim is hiddenDim/numHeads; Q=K share weights per spec (cosine
	// structure preserved), V gets its own projection.
	WQK []*kernel.Matrix
	WV  []*kernel.Matrix

	FuseW1 *kernel.Matrix // fuseHidden x numHeads
	FuseB1 []float32
	FuseW2 *kernel.Matrix // 1 x fuseHidden
	FuseB2 []float32

	Encoder *GraphEncoder
}

// NewModel builds a Model with Xavier-initialized projections and a
// seedable Mulberry32 PRNG (spec.md §4.7 Initialization). It panics if
// cfg.EmbeddingDim doesn't divide evenly by cfg.NumHeads, a programming
// error rather than a runtime condition.
func NewModel(cfg Config) *Model {
	if cfg.EmbeddingDim%cfg.NumHeads != 0 {
		panic("shgat: embedding dim must be divisible by num heads")
	}
	rng := kernel.NewMulberry32(cfg.Seed)
	inputDim := 3*cfg.EmbeddingDim + TraceStatsLen
	headDim := cfg.HiddenDim / cfg.NumHeads
	if headDim == 0 {
		headDim = 1
	}

	m := &Model{
		cfg:      cfg,
		rng:      rng,
		state:    StateCold,
		inputDim: inputDim,
		WProj:    xavierInit(cfg.HiddenDim, inputDim, rng),
		BProj:    zeros(cfg.HiddenDim),
		WQK:      make([]*kernel.Matrix, cfg.NumHeads),
		WV:       make([]*kernel.Matrix, cfg.NumHeads),
		FuseW1:   xavierInit(cfg.HiddenDim, cfg.NumHeads, rng),
		FuseB1:   zeros(cfg.HiddenDim),
		FuseW2:   xavierInit(1, cfg.HiddenDim, rng),
		FuseB2:   zeros(1),
		Encoder:  newGraphEncoder(cfg, rng),
	}
	for h := 0; h < cfg.NumHeads; h++ {
		m.WQK[h] = xavierInit(headDim, cfg.HiddenDim, rng)
		m.WV[h] = xavierInit(headDim, cfg.HiddenDim, rng)
	}
	return m
}

// Tensors exposes every learnable weight matrix by name, keyed so the
// training worker's optimizer can maintain per-tensor Adam moment state
// without this package needing to know about AdamW.
func (m *Model) Tensors() map[string]*kernel.Matrix {
	out := map[string]*kernel.Matrix{
		"w_proj":  m.WProj,
		"fuse_w1": m.FuseW1,
		"fuse_w2": m.FuseW2,
	}
	for h, w := range m.WQK {
		out["wqk_"+string(rune('a'+h))] = w
	}
	for h, w := range m.WV {
		out["wv_"+string(rune('a'+h))] = w
	}
	return out
}

// Vectors exposes every learnable bias vector by name.
func (m *Model) Vectors() map[string][]float32 {
	return map[string][]float32{
		"b_proj":  m.BProj,
		"fuse_b1": m.FuseB1,
		"fuse_b2": m.FuseB2,
	}
}

// State returns the current training state.
func (m *Model) State() TrainingState { return m.state }

// SetState transitions the training state machine; callers (C8/C9) are
// responsible for driving it according to spec.md §4.7's
// Cold -> Batch -> Live -> Saved sequence.
func (m *Model) SetState(s TrainingState) { m.state = s }

// forward runs the shared TraceFeatures -> score pipeline: projection,
// K-head scaled-sigmoid scores, fusion MLP. Returns score (pre-
// reliability-multiplier) and the per-head scores. A NaN/Inf anywhere in
// the pipeline degrades to a zero score and unstable=true (spec.md §4.7
// Failures).
func (m *Model) forward(features TraceFeatures) (score float32, heads []float32, unstable bool) {
	x := features.Flatten(m.cfg.EmbeddingDim)
	if len(x) != m.inputDim {
		padded := make([]float32, m.inputDim)
		copy(padded, x)
		x = padded
	}

	hidden := projectReLU(m.WProj, m.BProj, x)
	if containsNonFinite(hidden) {
		return 0, make([]float32, m.cfg.NumHeads), true
	}

	headScores := make([]float32, m.cfg.NumHeads)
	sqrtD := float32(math.Sqrt(float64(len(hidden))))
	for h := 0; h < m.cfg.NumHeads; h++ {
		q := matvec(m.WQK[h], hidden)
		v := matvec(m.WV[h], hidden)
		var dot float32
		n := len(q)
		if len(v) < n {
			n = len(v)
		}
		for i := 0; i < n; i++ {
			dot += q[i] * v[i]
		}
		if sqrtD > 0 {
			dot /= sqrtD
		}
		headScores[h] = kernel.Sigmoid(dot)
	}
	if containsNonFinite(headScores) {
		return 0, headScores, true
	}

	fuse1 := projectReLU(m.FuseW1, m.FuseB1, headScores)
	fuse2 := matvec(m.FuseW2, fuse1)
	out := kernel.Sigmoid(fuse2[0] + m.FuseB2[0])
	if math.IsNaN(float64(out)) || math.IsInf(float64(out), 0) {
		return 0, headScores, true
	}
	return out, headScores, false
}

// ReliabilityMultiplier implements spec.md §4.7's reliability gate: 0.5
// if successRate < 0.5, 1.2 if > 0.9, else 1.0. ScoreAllCapabilities
// applies it to every capability; ScoreAllTools applies it only to tools
// that have an entry in successRateByTool.
func ReliabilityMultiplier(successRate float64) float64 {
	switch {
	case successRate < 0.5:
		return 0.5
	case successRate > 0.9:
		return 1.2
	default:
		return 1.0
	}
}

// ScoreAllTools scores every tool against intent/context (spec.md §4.7).
// coldStartTools (unknown to the model / zero usage) still receive a
// score from the fusion pipeline; the reliability multiplier for a tool
// with no entry in successRateByTool is 1.0 (neither penalized nor
// boosted).
func (m *Model) ScoreAllTools(featuresByTool map[string]TraceFeatures, successRateByTool map[string]float64) []ToolScore {
	out := make([]ToolScore, 0, len(featuresByTool))
	for id, f := range featuresByTool {
		score, heads, unstable := m.forward(f)
		rate, known := successRateByTool[id]
		mult := 1.0
		if known {
			mult = ReliabilityMultiplier(rate)
		}
		final := float32(kernel.Clip(score*float32(mult), 0, 0.95))
		if unstable {
			final = 0
		}
		out = append(out, ToolScore{ToolID: id, Score: final, HeadScores: heads})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ToolID < out[j].ToolID
	})
	return out
}

// ScoreAllCapabilities scores every capability against intent/context.
func (m *Model) ScoreAllCapabilities(featuresByCap map[uuid.UUID]TraceFeatures, successRateByCap map[uuid.UUID]float64, toolAttentionByCap map[uuid.UUID]map[string]float32) []CapabilityScore {
	out := make([]CapabilityScore, 0, len(featuresByCap))
	for id, f := range featuresByCap {
		score, heads, unstable := m.forward(f)
		rate := successRateByCap[id]
		mult := ReliabilityMultiplier(rate)
		final := float32(kernel.Clip(score*float32(mult), 0, 0.95))
		if unstable {
			final = 0
		}
		out = append(out, CapabilityScore{
			CapabilityID:   id,
			Score:          final,
			HeadScores:     heads,
			FeatureContrib: headContributions(heads),
			ToolAttention:  toolAttentionByCap[id],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CapabilityID.String() < out[j].CapabilityID.String()
	})
	return out
}

func headContributions(heads []float32) map[string]float32 {
	out := make(map[string]float32, len(heads))
	for i, h := range heads {
		out[headLabel(i)] = h
	}
	return out
}

func headLabel(i int) string {
	return "head_" + strconv.Itoa(i)
}

func projectReLU(w *kernel.Matrix, b []float32, x []float32) []float32 {
	y := matvec(w, x)
	out := make([]float32, len(y))
	for i, v := range y {
		out[i] = v + b[i]
	}
	return kernel.ReLU(out)
}

func matvec(w *kernel.Matrix, x []float32) []float32 {
	n := w.Cols
	if len(x) < n {
		n = len(x)
	}
	out := make([]float32, w.Rows)
	for r := 0; r < w.Rows; r++ {
		row := w.Row(r)
		var sum float32
		for c := 0; c < n; c++ {
			sum += row[c] * x[c]
		}
		out[r] = sum
	}
	return out
}

func containsNonFinite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return true
		}
	}
	return false
}
