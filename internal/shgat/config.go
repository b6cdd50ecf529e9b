// Package shgat implements C7: the multi-head graph-attention scorer over
// the tool/capability superhypergraph. It follows the teacher's
// constructor-and-interface style (NewModel, exported methods, no package
// globals) generalized from the teacher's workflow-executor shape to a
// numeric forward pass built on internal/kernel.
package shgat

// Config holds every tunable named in spec.md §4.7. Seed makes
// initialization and dropout reproducible.
type Config struct {
	EmbeddingDim int
	NumHeads     int
	HiddenDim    int

	// EnrichmentBeta and EnrichmentTau parameterize the optional V->V
	// pre-phase (default 0.3 / 1.0).
	EnrichmentBeta float64
	EnrichmentTau  float64
	EnrichAttn     bool

	DropoutP float32
	Seed     uint32

	// MultiLevel selects the v3 scorer (multi-level E^k -> E^{k+1}
	// message passing) over the default v2 two-phase V->E->V scorer.
	// Resolved Open Question #1: v2 remains the production default.
	MultiLevel bool

	MinTrainingTraces int
}

// DefaultConfig returns the spec's default constants.
func DefaultConfig() Config {
	return Config{
		EmbeddingDim:      1024,
		NumHeads:          4,
		HiddenDim:         128,
		EnrichmentBeta:    0.3,
		EnrichmentTau:     1.0,
		EnrichAttn:        true,
		DropoutP:          0.1,
		Seed:              1,
		MultiLevel:        false,
		MinTrainingTraces: 200,
	}
}
