package orchestrator

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/toolgraph/shgat/internal/alpha"
	"github.com/toolgraph/shgat/internal/domain"
	domerr "github.com/toolgraph/shgat/internal/domain/errors"
	"github.com/toolgraph/shgat/internal/rationale"
	"github.com/toolgraph/shgat/internal/shgat"
	"github.com/toolgraph/shgat/internal/spectral"
)

// DiscoverToolsRequest is the input to DiscoverTools.
type DiscoverToolsRequest struct {
	Intent          string
	IntentEmbedding []float32 // precomputed; Embedder.Encode(Intent) is used if absent
	ContextTools    []string  // recently-used tool ids: recent-context mean pool + graph relatedness seed
	Mode            domain.DiscoveryMode
	Limit           int
}

// DiscoverTools ranks tools against an intent, walking the fallback
// chain described in spec.md §7: SHGAT scoring, then a hybrid
// semantic+graph blend, then pure semantic search, then keyword search,
// returning the first stage that produces a result. Per the propagation
// policy it never returns an error for a degraded-but-recoverable
// condition — only for a missing intent or a total absence of any
// search capability.
func (o *Orchestrator) DiscoverTools(ctx context.Context, req DiscoverToolsRequest) ([]ToolResult, error) {
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
			o.log(ctx, "embed", req.Mode, domain.TargetTool, "", req.Intent, nil, 0, 0, domain.DecisionRejected, "embedding failed: "+err.Error())
		} else {
			intentEmbedding = emb
		}
	}

	if len(intentEmbedding) > 0 {
		if results, ok := o.discoverToolsSHGAT(ctx, req, intentEmbedding, limit); ok {
			return results, nil
		}
		if results, ok := o.discoverToolsHybrid(ctx, req, intentEmbedding, limit); ok {
			return results, nil
		}
		if results, ok := o.discoverToolsSemantic(ctx, req, intentEmbedding, limit); ok {
			return results, nil
		}
	}

	if results, ok := o.discoverToolsKeyword(ctx, req, limit); ok {
		return results, nil
	}

	if o.Scorer == nil && o.Index == nil {
		return nil, domerr.ErrNoSearchEngine
	}
	return []ToolResult{}, nil
}

func (o *Orchestrator) discoverToolsSHGAT(ctx context.Context, req DiscoverToolsRequest, intentEmbedding []float32, limit int) ([]ToolResult, bool) {
	if o.Scorer == nil {
		return nil, false
	}
	tools := o.Store.AllTools()
	if len(tools) == 0 {
		return nil, false
	}

	recentContext := o.meanPoolTools(req.ContextTools)
	res, haveSpectral := o.spectralResult()
	var activeCluster, toolsInActiveCluster int
	var haveActiveCluster bool
	if haveSpectral {
		activeCluster, toolsInActiveCluster, haveActiveCluster = spectral.ActiveCluster(req.ContextTools, res)
	}

	featuresByTool := make(map[string]shgat.TraceFeatures, len(tools))
	alphaByTool := make(map[string]alpha.Result, len(tools))
	for _, t := range tools {
		var spectralEmbedding []float64
		if haveSpectral {
			spectralEmbedding = res.EmbeddingOf[spectral.ToolNode(t.ID)]
		}
		a := localAlpha(o, intentEmbedding, spectralEmbedding, 0, 0, t.Features.HeatDiffusion, t.Features.HeatDiffusion != 0)
		alphaByTool[t.ID] = a
		featuresByTool[t.ID] = shgat.TraceFeatures{
			Intent:                intentEmbedding,
			Candidate:             t.Embedding,
			RecentContextMeanPool: recentContext,
			Stats: shgat.TraceStats{
				PageRank:         t.Features.PageRank,
				AdamicAdar:       t.Features.AdamicAdar,
				CoOccurrence:     t.Features.CoOccurrence,
				Recency:          t.Features.Recency,
				HeatDiffusion:    t.Features.HeatDiffusion,
				LouvainCommunity: float64(t.Features.LouvainCommunity),
				Alpha:            a.Alpha,
			},
		}
	}

	scores := o.Scorer.ScoreAllTools(featuresByTool, nil)
	if len(scores) == 0 {
		return nil, false
	}
	if limit < len(scores) {
		scores = scores[:limit]
	}

	out := make([]ToolResult, 0, len(scores))
	for _, s := range scores {
		desc := ""
		features := domain.ToolFeatures{}
		if t, ok := o.Store.GetTool(s.ToolID); ok {
			desc = t.Description
			features = t.Features
		}
		ref := domain.NodeRef{Kind: domain.MemberTool, ID: s.ToolID}
		related := RelatedTools(o.Store, ref, o.Cfg.RelatedToolsEachSide)

		clusterBoost := 0.0
		if haveSpectral {
			clusterBoost = spectral.ClusterBoost(spectral.ToolNode(s.ToolID), res, activeCluster, toolsInActiveCluster, len(tools), haveActiveCluster)
		}
		boosted := o.applyClusterBoost(float64(s.Score)+clusterBoost, map[string]any{
			"pageRank":     features.PageRank,
			"clusterID":    features.LouvainCommunity,
			"coOccurrence": features.CoOccurrence,
			"clusterBoost": clusterBoost,
			"score":        float64(s.Score),
		})

		a := alphaByTool[s.ToolID]
		var topPageRanks []float64
		for _, id := range related {
			if rt, ok := o.Store.GetTool(id); ok {
				topPageRanks = append(topPageRanks, rt.Features.PageRank)
			}
		}
		var pathConf float64
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

		out = append(out, ToolResult{
			ToolID:       s.ToolID,
			Score:        confidence,
			Description:  desc,
			RelatedTools: related,
			Rationale:    rat,
			Algorithm:    "shgat",
		})
		o.log(ctx, "shgat", req.Mode, domain.TargetTool, s.ToolID, req.Intent,
			map[string]float64{"shgat": boosted, "alpha": a.Alpha, "clusterBoost": clusterBoost, "pathConfidence": pathConf},
			confidence, 0, domain.DecisionAccepted, "")
	}
	return out, true
}

// discoverToolsHybrid blends semantic similarity with graph relatedness
// (spec.md §4.10): only meaningful when there's recent context to seed
// the graph signal, so it defers to pure semantic search otherwise.
func (o *Orchestrator) discoverToolsHybrid(ctx context.Context, req DiscoverToolsRequest, intentEmbedding []float32, limit int) ([]ToolResult, bool) {
	if o.Index == nil || len(req.ContextTools) == 0 {
		return nil, false
	}

	density := GraphDensity(o.Store)
	factor := ExpansionFactor(density, o.Cfg)
	fetchK := int(float64(limit) * factor)
	if fetchK < limit {
		fetchK = limit
	}

	matches := o.Index.SearchTools(intentEmbedding, fetchK)
	if len(matches) == 0 {
		return nil, false
	}

	res, haveSpectral := o.spectralResult()

	// Each match's graph-relatedness walk only touches its own NodeRef and
	// req.ContextTools (read-only), so the per-match work below is safe to
	// fan out: graphScores is pre-sized and index-addressed, never appended
	// to concurrently.
	graphScores := make([]float64, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range matches {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ref := domain.NodeRef{Kind: domain.MemberTool, ID: m.ToolID}
			graphScores[i] = ComputeGraphRelatedness(o.Store, ref, req.ContextTools)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false
	}

	out := make([]ToolResult, 0, len(matches))
	for i, m := range matches {
		graphScore := graphScores[i]

		t, foundTool := o.Store.GetTool(m.ToolID)
		var heatDiffusion float64
		if foundTool {
			heatDiffusion = t.Features.HeatDiffusion
		}
		var spectralEmbedding []float64
		if haveSpectral {
			spectralEmbedding = res.EmbeddingOf[spectral.ToolNode(m.ToolID)]
		}
		a := localAlpha(o, intentEmbedding, spectralEmbedding, 0, 0, heatDiffusion, heatDiffusion != 0)
		final := a.Alpha*float64(m.Score) + (1-a.Alpha)*graphScore

		ref := domain.NodeRef{Kind: domain.MemberTool, ID: m.ToolID}
		desc := ""
		if foundTool {
			desc = t.Description
		}
		related := RelatedTools(o.Store, ref, o.Cfg.RelatedToolsEachSide)
		rat := rationale.Rationale([]rationale.Contributor{
			{Name: "semantic", Value: float64(m.Score)},
			{Name: "graph", Value: graphScore},
		}, a.Alpha)

		out = append(out, ToolResult{
			ToolID:       m.ToolID,
			Score:        final,
			Description:  desc,
			RelatedTools: related,
			Rationale:    rat,
			Algorithm:    "hybrid",
		})
		o.log(ctx, "hybrid", req.Mode, domain.TargetTool, m.ToolID, req.Intent,
			map[string]float64{"semantic": float64(m.Score), "graph": graphScore, "alpha": a.Alpha},
			final, 0, domain.DecisionAccepted, "")
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ToolID < out[j].ToolID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, true
}

func (o *Orchestrator) discoverToolsSemantic(ctx context.Context, req DiscoverToolsRequest, intentEmbedding []float32, limit int) ([]ToolResult, bool) {
	if o.Index == nil {
		return nil, false
	}
	matches := o.Index.SearchTools(intentEmbedding, limit)
	if len(matches) == 0 {
		return nil, false
	}
	out := make([]ToolResult, 0, len(matches))
	for _, m := range matches {
		desc := ""
		if t, ok := o.Store.GetTool(m.ToolID); ok {
			desc = t.Description
		}
		ref := domain.NodeRef{Kind: domain.MemberTool, ID: m.ToolID}
		related := RelatedTools(o.Store, ref, o.Cfg.RelatedToolsEachSide)
		rat := rationale.Rationale([]rationale.Contributor{{Name: "semantic", Value: float64(m.Score)}}, o.AlphaCfg)
		out = append(out, ToolResult{
			ToolID:       m.ToolID,
			Score:        float64(m.Score),
			Description:  desc,
			RelatedTools: related,
			Rationale:    rat,
			Algorithm:    "semantic",
		})
		o.log(ctx, "semantic", req.Mode, domain.TargetTool, m.ToolID, req.Intent,
			map[string]float64{"semantic": float64(m.Score)}, float64(m.Score), 0, domain.DecisionAccepted, "")
	}
	return out, true
}

// discoverToolsKeyword is the last-resort degradation when the vector
// index itself is unavailable (spec.md §7's IndexUnavailable kind):
// a fixed score of Cfg.KeywordScore for every tool whose description
// substring-matches the intent, capped at limit.
func (o *Orchestrator) discoverToolsKeyword(ctx context.Context, req DiscoverToolsRequest, limit int) ([]ToolResult, bool) {
	if o.Index != nil || req.Intent == "" {
		return nil, false
	}
	tools := o.Store.AllTools()
	if len(tools) == 0 {
		return nil, false
	}

	needle := normalizeKeyword(req.Intent)
	var out []ToolResult
	for _, t := range tools {
		if !containsKeyword(normalizeKeyword(t.Description), needle) {
			continue
		}
		if len(out) >= limit {
			break
		}
		ref := domain.NodeRef{Kind: domain.MemberTool, ID: t.ID}
		out = append(out, ToolResult{
			ToolID:       t.ID,
			Score:        o.Cfg.KeywordScore,
			Description:  t.Description,
			RelatedTools: RelatedTools(o.Store, ref, o.Cfg.RelatedToolsEachSide),
			Rationale:    rationale.Rationale([]rationale.Contributor{{Name: "keyword", Value: o.Cfg.KeywordScore}}, o.AlphaCfg),
			Algorithm:    "keyword",
		})
		o.log(ctx, "keyword", req.Mode, domain.TargetTool, t.ID, req.Intent,
			map[string]float64{"keyword": o.Cfg.KeywordScore}, o.Cfg.KeywordScore, 0, domain.DecisionAccepted, "index unavailable")
	}
	if out == nil {
		return nil, false
	}
	return out, true
}

func (o *Orchestrator) meanPoolTools(toolIDs []string) []float32 {
	if len(toolIDs) == 0 {
		return nil
	}
	var sum []float32
	var n int
	for _, id := range toolIDs {
		t, ok := o.Store.GetTool(id)
		if !ok {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(t.Embedding))
		}
		for i, v := range t.Embedding {
			if i < len(sum) {
				sum[i] += v
			}
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float32(n)
	}
	return sum
}
