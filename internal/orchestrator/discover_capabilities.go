package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/alpha"
	"github.com/toolgraph/shgat/internal/domain"
	domerr "github.com/toolgraph/shgat/internal/domain/errors"
	"github.com/toolgraph/shgat/internal/rationale"
	"github.com/toolgraph/shgat/internal/shgat"
	"github.com/toolgraph/shgat/internal/spectral"
)

// DiscoverCapabilitiesRequest is the input to DiscoverCapabilities.
type DiscoverCapabilitiesRequest struct {
	Intent          string
	IntentEmbedding []float32
	ContextTools    []string
	Mode            domain.DiscoveryMode
	Limit           int
}

// DiscoverCapabilities ranks capabilities against an intent: SHGAT
// scoreAllCapabilities when a scorer is wired, meta-capability decoration
// for any "$cap:<uuid>"-referencing result, legacy semantic×reliability
// scoring as the fallback, and keyword search as the last resort
// (spec.md §4.6, §6, §7).
func (o *Orchestrator) DiscoverCapabilities(ctx context.Context, req DiscoverCapabilitiesRequest) ([]CapabilityResult, error) {
	if req.Intent == "" && len(req.IntentEmbedding) == 0 {
		return nil, domerr.ErrMissingIntent
	}

	limit := req.Limit
	if limit <= 0 {
		limit = o.Cfg.DefaultLimit
	}

	intentEmbedding := req.IntentEmbedding
	if len(intentEmbedding) == 0 && o.Embedder != nil {
		emb, err := o.Embedder.Encode(ctx, req.Intent)
		if err != nil {
			o.log(ctx, "embed", req.Mode, domain.TargetCapability, "", req.Intent, nil, 0, 0, domain.DecisionRejected, "embedding failed: "+err.Error())
		} else {
			intentEmbedding = emb
		}
	}

	if len(intentEmbedding) > 0 {
		if results, ok := o.discoverCapabilitiesSHGAT(ctx, req, intentEmbedding, limit); ok {
			return results, nil
		}
		if results, ok := o.discoverCapabilitiesLegacy(ctx, req, intentEmbedding, limit); ok {
			return results, nil
		}
	}

	if results, ok := o.discoverCapabilitiesKeyword(ctx, req, limit); ok {
		return results, nil
	}

	if o.Scorer == nil && o.Index == nil {
		return nil, domerr.ErrNoSearchEngine
	}
	return []CapabilityResult{}, nil
}

func (o *Orchestrator) discoverCapabilitiesSHGAT(ctx context.Context, req DiscoverCapabilitiesRequest, intentEmbedding []float32, limit int) ([]CapabilityResult, bool) {
	if o.Scorer == nil {
		return nil, false
	}
	caps := o.Store.AllCapabilities()
	if len(caps) == 0 {
		return nil, false
	}

	recentContext := o.meanPoolTools(req.ContextTools)
	res, haveSpectral := o.spectralResult()
	var activeCluster, toolsInActiveCluster int
	var haveActiveCluster bool
	if haveSpectral {
		activeCluster, toolsInActiveCluster, haveActiveCluster = spectral.ActiveCluster(req.ContextTools, res)
	}

	featuresByCap := make(map[uuid.UUID]shgat.TraceFeatures, len(caps))
	successRateByCap := make(map[uuid.UUID]float64, len(caps))
	byID := make(map[uuid.UUID]*domain.Capability, len(caps))
	alphaByCap := make(map[uuid.UUID]alpha.Result, len(caps))
	for _, c := range caps {
		byID[c.ID] = c
		var spectralEmbedding []float64
		if haveSpectral {
			spectralEmbedding = res.EmbeddingOf[spectral.CapNode(c.ID)]
		}
		a := localAlpha(o, intentEmbedding, spectralEmbedding, c.SuccessCount, c.UsageCount, c.Features.HeatDiffusion, c.Features.HeatDiffusion != 0)
		alphaByCap[c.ID] = a
		featuresByCap[c.ID] = shgat.TraceFeatures{
			Intent:                intentEmbedding,
			Candidate:             c.IntentEmbedding,
			RecentContextMeanPool: recentContext,
			Stats: shgat.TraceStats{
				HypergraphPageRank: c.Features.HypergraphPageRank,
				SpectralClusterID:  float64(c.Features.SpectralClusterID),
				CoOccurrence:       c.Features.CoOccurrence,
				Recency:            c.Features.Recency,
				HeatDiffusion:      c.Features.HeatDiffusion,
				SuccessRate:        c.SuccessRate(),
				UsageCount:         float64(c.UsageCount),
				AvgDurationMs:      c.AvgDuration,
				HierarchyLevel:     float64(c.HierarchyLevel),
				Alpha:              a.Alpha,
			},
		}
		successRateByCap[c.ID] = c.SuccessRate()
	}

	scores := o.Scorer.ScoreAllCapabilities(featuresByCap, successRateByCap, nil)
	if len(scores) == 0 {
		return nil, false
	}
	if limit < len(scores) {
		scores = scores[:limit]
	}

	out := make([]CapabilityResult, 0, len(scores))
	for _, s := range scores {
		c := byID[s.CapabilityID]
		callName, schema := o.resolveCallName(ctx, c)

		capNode := spectral.CapNode(s.CapabilityID)
		clusterBoost := 0.0
		if haveSpectral {
			clusterBoost = spectral.ClusterBoost(capNode, res, activeCluster, toolsInActiveCluster, len(caps), haveActiveCluster)
		}
		boosted := o.applyClusterBoost(float64(s.Score)+clusterBoost, map[string]any{
			"pageRank":     c.Features.HypergraphPageRank,
			"clusterID":    c.Features.SpectralClusterID,
			"coOccurrence": c.Features.CoOccurrence,
			"clusterBoost": clusterBoost,
			"score":        float64(s.Score),
		})

		a := alphaByCap[s.CapabilityID]
		var topPageRanks []float64
		for _, m := range c.Members {
			if m.Kind != domain.MemberTool {
				continue
			}
			if t, ok := o.Store.GetTool(m.ToolID); ok {
				topPageRanks = append(topPageRanks, t.Features.PageRank)
			}
		}
		var pathConf float64
		ref := domain.NodeRef{Kind: domain.MemberCapability, ID: s.CapabilityID.String()}
		if hops, ok := ShortestHopCount(o.Store, ref, req.ContextTools, 4); ok {
			pathConf = rationale.PathConfidenceByHops(hops)
		}
		weights := o.Cfg.Weights
		adaptive := rationale.AdaptWeights(a.Alpha, weights)
		weights.HybridWeight, weights.PageRankWeight, weights.PathWeight = adaptive.Hybrid, adaptive.PageRank, adaptive.Path
		confidence := rationale.HybridConfidence(boosted, topPageRanks, []float64{pathConf}, weights)

		contributors := []rationale.Contributor{
			{Name: "shgat", Value: boosted},
			{Name: "pathConfidence", Value: pathConf},
		}
		rat := o.rationaleFor(contributors, a.Alpha, map[string]any{
			"score": confidence, "alpha": a.Alpha, "algorithm": "shgat",
		})

		result := CapabilityResult{
			CapabilityID: s.CapabilityID,
			Score:        confidence,
			CallName:     callName,
			Rationale:    rat,
			Algorithm:    "shgat",
		}
		if c.IsMeta() {
			result.Meta = o.decorateMeta(ctx, o.Store, c)
		}
		_ = schema // reserved for input-schema enrichment once a schema source is wired
		out = append(out, result)
		o.log(ctx, "shgat", req.Mode, domain.TargetCapability, s.CapabilityID.String(), req.Intent,
			map[string]float64{"shgat": boosted, "alpha": a.Alpha, "clusterBoost": clusterBoost, "pathConfidence": pathConf},
			confidence, 0, domain.DecisionAccepted, "")
	}
	return out, true
}

// discoverCapabilitiesLegacy is the semantic×reliability fallback used
// before the SHGAT scorer existed (spec.md §4.6's "legacy" path): cosine
// similarity against the intent, multiplied by the capability's
// reliability gate.
func (o *Orchestrator) discoverCapabilitiesLegacy(ctx context.Context, req DiscoverCapabilitiesRequest, intentEmbedding []float32, limit int) ([]CapabilityResult, bool) {
	if o.Index == nil {
		return nil, false
	}
	matches := o.Index.SearchCapabilities(intentEmbedding, limit)
	if len(matches) == 0 {
		return nil, false
	}

	out := make([]CapabilityResult, 0, len(matches))
	for _, m := range matches {
		c, ok := o.Store.GetCapability(m.CapabilityID)
		if !ok {
			continue
		}
		mult := shgat.ReliabilityMultiplier(c.SuccessRate())
		final := float64(m.Score) * mult
		callName, _ := o.resolveCallName(ctx, c)
		rat := rationale.Rationale([]rationale.Contributor{
			{Name: "semantic", Value: float64(m.Score)},
			{Name: "reliability", Value: mult},
		}, o.AlphaCfg)

		result := CapabilityResult{
			CapabilityID: m.CapabilityID,
			Score:        final,
			CallName:     callName,
			Rationale:    rat,
			Algorithm:    "semantic_reliability",
		}
		if c.IsMeta() {
			result.Meta = o.decorateMeta(ctx, o.Store, c)
		}
		out = append(out, result)
		o.log(ctx, "semantic_reliability", req.Mode, domain.TargetCapability, m.CapabilityID.String(), req.Intent,
			map[string]float64{"semantic": float64(m.Score), "reliability": mult}, final, 0, domain.DecisionAccepted, "")
	}
	return out, true
}

// discoverCapabilitiesKeyword degrades to a substring match over each
// capability's FQDN when the vector index is unavailable.
func (o *Orchestrator) discoverCapabilitiesKeyword(ctx context.Context, req DiscoverCapabilitiesRequest, limit int) ([]CapabilityResult, bool) {
	if o.Index != nil || req.Intent == "" {
		return nil, false
	}
	caps := o.Store.AllCapabilities()
	if len(caps) == 0 {
		return nil, false
	}

	needle := normalizeKeyword(req.Intent)
	var out []CapabilityResult
	for _, c := range caps {
		if !containsKeyword(normalizeKeyword(string(c.FQDN)), needle) {
			continue
		}
		if len(out) >= limit {
			break
		}
		callName, _ := o.resolveCallName(ctx, c)
		out = append(out, CapabilityResult{
			CapabilityID: c.ID,
			Score:        o.Cfg.KeywordScore,
			CallName:     callName,
			Rationale:    rationale.Rationale([]rationale.Contributor{{Name: "keyword", Value: o.Cfg.KeywordScore}}, o.AlphaCfg),
			Algorithm:    "keyword",
		})
		o.log(ctx, "keyword", req.Mode, domain.TargetCapability, c.ID.String(), req.Intent,
			map[string]float64{"keyword": o.Cfg.KeywordScore}, o.Cfg.KeywordScore, 0, domain.DecisionAccepted, "index unavailable")
	}
	if out == nil {
		return nil, false
	}
	return out, true
}
