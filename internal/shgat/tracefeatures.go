package shgat

// TraceStatsLen is the fixed width of the scalar trace-statistics block
// (spec.md §4.7: TraceFeatures = {intent, candidate, recent-context-mean-
// pool, traceStats[17]}).
const TraceStatsLen = 17

// TraceStats is the 17 scalar features drawn from C2's structural signals
// and C6's replay statistics, fed alongside the three embedding blocks.
type TraceStats struct {
	PageRank            float64
	AdamicAdar          float64
	CoOccurrence        float64
	Recency             float64
	HeatDiffusion       float64
	LouvainCommunity    float64
	HypergraphPageRank  float64
	SpectralClusterID   float64
	SuccessRate         float64
	UsageCount          float64
	AvgDurationMs       float64
	HierarchyLevel      float64
	IntentSimilarAvg    float64
	IntentSimilarCount  float64
	Alpha               float64
	ColdStart           float64
	Reserved            float64
}

// Vector flattens TraceStats to its fixed-width slice in field order.
func (s TraceStats) Vector() []float32 {
	return []float32{
		float32(s.PageRank), float32(s.AdamicAdar), float32(s.CoOccurrence),
		float32(s.Recency), float32(s.HeatDiffusion), float32(s.LouvainCommunity),
		float32(s.HypergraphPageRank), float32(s.SpectralClusterID), float32(s.SuccessRate),
		float32(s.UsageCount), float32(s.AvgDurationMs), float32(s.HierarchyLevel),
		float32(s.IntentSimilarAvg), float32(s.IntentSimilarCount), float32(s.Alpha),
		float32(s.ColdStart), float32(s.Reserved),
	}
}

// TraceFeatures is the full per-target input to the fusion scorer:
// 3*embDim + 17 scalars.
type TraceFeatures struct {
	Intent               []float32
	Candidate            []float32
	RecentContextMeanPool []float32
	Stats                TraceStats
}

// Flatten concatenates the three embedding blocks and the stats vector
// into one input row for the projection layer.
func (f TraceFeatures) Flatten(embDim int) []float32 {
	out := make([]float32, 0, 3*embDim+TraceStatsLen)
	out = append(out, padOrTrim(f.Intent, embDim)...)
	out = append(out, padOrTrim(f.Candidate, embDim)...)
	out = append(out, padOrTrim(f.RecentContextMeanPool, embDim)...)
	out = append(out, f.Stats.Vector()...)
	return out
}
