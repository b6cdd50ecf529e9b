// Package orchestrator implements C10: the discovery entrypoints
// (DiscoverTools, DiscoverCapabilities) that drive the scorer fallback
// chain described in spec.md §4.10/§7 — SHGAT first, then the hybrid
// semantic+graph blend, then pure semantic search, then keyword search,
// short-circuiting on the first stage that returns a non-empty result
// without error.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/alpha"
	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/rationale"
	"github.com/toolgraph/shgat/internal/shgat"
	"github.com/toolgraph/shgat/internal/spectral"
	"github.com/toolgraph/shgat/internal/tracestore"
	"github.com/toolgraph/shgat/internal/vectorindex"
)

// Config tunes the density-based expansion factors and default limits
// the hybrid fallback path uses (spec.md §4.10).
type Config struct {
	DefaultLimit int

	// DensityLowThreshold/DensityHighThreshold and their matching
	// expansion factors implement "expansion factor 1.5/2.0/3.0 as
	// density crosses 0.01/0.1": the sparser the graph, the more
	// candidates the vector search over-fetches to compensate for a
	// weaker structural signal.
	DensityLowThreshold  float64
	DensityHighThreshold float64
	ExpansionSparse      float64 // density < DensityLowThreshold
	ExpansionMedium      float64 // DensityLowThreshold <= density < DensityHighThreshold
	ExpansionDense       float64 // density >= DensityHighThreshold

	RelatedToolsEachSide int

	KeywordScore float64

	Weights rationale.WeightConfig

	// ClusterBoostExpr is an optional expr-lang expression evaluated
	// against each SHGAT candidate's signal bag (pageRank, clusterID,
	// coOccurrence); when it evaluates true the candidate's score is
	// multiplied by ClusterBoostFactor. Empty disables the boost
	// entirely — the zero-value Config behaves exactly as before this
	// was added.
	ClusterBoostExpr   string
	ClusterBoostFactor float64

	// RationaleTemplate is an optional expr-lang expression returning a
	// string, evaluated against the variables "score", "alpha" and
	// "algorithm", overriding the default rationale string when set.
	RationaleTemplate string
}

// DefaultConfig matches spec.md §4.10's named constants.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:         10,
		DensityLowThreshold:  0.01,
		DensityHighThreshold: 0.1,
		ExpansionSparse:      3.0,
		ExpansionMedium:      2.0,
		ExpansionDense:       1.5,
		RelatedToolsEachSide: 2,
		KeywordScore:         0.5,
		Weights:              rationale.DefaultWeightConfig(),
		ClusterBoostFactor:   1.1,
	}
}

// Orchestrator wires every upstream component into the two discovery use
// cases. Every field except Store is optional — a nil field degrades the
// fallback chain rather than panicking, per spec.md §7's propagation
// policy.
type Orchestrator struct {
	Store      *graphstore.Store
	Index      *vectorindex.Index
	Spectral   *spectral.Manager
	Scorer     *shgat.Model
	Embedder   domain.EmbeddingModel
	Tools      domain.ToolRepository
	Registry   domain.CapabilityRegistry
	Traces     *tracestore.Store
	Sink       domain.DecisionLogSink
	AlphaCfg   float64 // config.defaults.alpha
	Cfg        Config

	// BoostEval and TemplateEval back Cfg.ClusterBoostExpr/
	// RationaleTemplate. Both are optional; New leaves them nil, and a
	// nil evaluator with an empty expression is simply never consulted.
	BoostEval    *spectral.BoostEvaluator
	TemplateEval *rationale.TemplateEvaluator
}

// New builds an Orchestrator. Callers assemble it field-by-field since
// most fields are optional; this constructor only seeds the defaults
// that must never be a zero value.
func New(store *graphstore.Store) *Orchestrator {
	return &Orchestrator{
		Store:    store,
		AlphaCfg: 0.5,
		Cfg:      DefaultConfig(),
	}
}

// applyClusterBoost multiplies score by Cfg.ClusterBoostFactor when
// Cfg.ClusterBoostExpr is set and evaluates true against vars. Any
// compile/eval error, or an unconfigured expression/evaluator, leaves
// score untouched — this is a pure enrichment, never a new failure mode.
func (o *Orchestrator) applyClusterBoost(score float64, vars map[string]any) float64 {
	if o.Cfg.ClusterBoostExpr == "" || o.BoostEval == nil {
		return score
	}
	boost, err := o.BoostEval.Eval(o.Cfg.ClusterBoostExpr, vars)
	if err != nil || !boost {
		return score
	}
	return score * o.Cfg.ClusterBoostFactor
}

// rationaleFor returns the templated rationale when Cfg.RationaleTemplate
// is set, else falls back to the default Rationale() composition.
func (o *Orchestrator) rationaleFor(contributors []rationale.Contributor, alpha float64, vars map[string]any) string {
	if o.Cfg.RationaleTemplate != "" && o.TemplateEval != nil {
		if s, err := o.TemplateEval.Eval(o.Cfg.RationaleTemplate, vars); err == nil {
			return s
		}
	}
	return rationale.Rationale(contributors, alpha)
}

// ToolResult is one ranked tool returned by DiscoverTools.
type ToolResult struct {
	ToolID       string
	Score        float64
	Description  string
	RelatedTools []string
	Rationale    string
	Algorithm    string
}

// CapabilityResult is one ranked capability returned by DiscoverCapabilities.
type CapabilityResult struct {
	CapabilityID uuid.UUID
	Score        float64
	CallName     string
	Meta         *MetaDecoration
	Rationale    string
	Algorithm    string
}

func (o *Orchestrator) log(ctx context.Context, algorithm string, mode domain.DiscoveryMode, targetType domain.TargetType, targetID, intent string, signals map[string]float64, score, threshold float64, decision domain.Decision, reason string) {
	if o.Sink == nil {
		return
	}
	o.Sink.Log(ctx, domain.DecisionLogRecord{
		Algorithm:  algorithm,
		Mode:       mode,
		TargetType: targetType,
		TargetID:   targetID,
		Intent:     intent,
		Signals:    signals,
		FinalScore: score,
		Threshold:  threshold,
		Decision:   decision,
		Reason:     reason,
		Timestamp:  time.Now(),
	})
}

// localAlpha computes C5's per-target alpha from every signal available
// for that specific candidate: the intent/candidate semantic embeddings,
// C4's spectral embedding row for the candidate (if a spectral result is
// available), its heat-diffusion score, and its observed success/usage
// counts. Called once per candidate, not once per request, since each
// candidate's graph-derived signals differ.
func localAlpha(o *Orchestrator, semantic []float32, spectralEmbedding []float64, successCount, usageCount int, heatDiffusion float64, hasHeatDiffusion bool) alpha.Result {
	return alpha.Compute(alpha.Input{
		SemanticEmbedding:    semantic,
		SpectralEmbedding:    spectralEmbedding,
		HasSpectralEmbedding: len(spectralEmbedding) > 0,
		HeatDiffusion:        heatDiffusion,
		HasHeatDiffusion:     hasHeatDiffusion,
		SuccessCount:         successCount,
		UsageCount:           usageCount,
		DefaultAlpha:         o.AlphaCfg,
	})
}

// spectralResult returns C4's cached clustering/PageRank/embedding result
// for the graph's current state, or ok=false when no spectral manager is
// wired. The graph-sync controller (C9) shares this same *spectral.Manager
// instance and recomputes it after every sync that changes the graph, so
// this call is a cache hit whenever nothing has changed since the last
// sync; it only pays for a fresh computation the first time it runs
// against an as-yet-unseen graph shape.
func (o *Orchestrator) spectralResult() (spectral.Result, bool) {
	if o.Spectral == nil {
		return spectral.Result{}, false
	}
	snapshot := spectral.Snapshot{
		Tools:        o.Store.AllTools(),
		Capabilities: o.Store.AllCapabilities(),
		Edges:        o.Store.AllEdges(),
	}
	return o.Spectral.Compute(snapshot), true
}
