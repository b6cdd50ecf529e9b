package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/kernel"
)

// MemberKind tags which arm of Member is populated.
type MemberKind string

const (
	MemberTool       MemberKind = "tool"
	MemberCapability MemberKind = "capability"
)

// Member is a capability's membership entry: either a tool id or a child
// capability id. Ownership is id-based, never an embedded object graph
// (spec.md §9) — resolving a Member to its record is the graph store's
// job, not this type's.
type Member struct {
	Kind         MemberKind `json:"kind"`
	ToolID       string     `json:"toolId,omitempty"`
	CapabilityID uuid.UUID  `json:"capabilityId,omitempty"`
}

func ToolMember(id string) Member             { return Member{Kind: MemberTool, ToolID: id} }
func CapabilityMember(id uuid.UUID) Member     { return Member{Kind: MemberCapability, CapabilityID: id} }

// HypergraphFeatures are the structural signals a capability carries.
// HypergraphPageRank and SpectralClusterID are recomputed by the
// spectral manager (C4) after every graph-sync cycle (C9) that changes
// the graph. CoOccurrence, Recency, AdamicAdar and HeatDiffusion are
// reserved for graph-metric passes this engine does not yet compute and
// stay at their zero value until one is wired in.
type HypergraphFeatures struct {
	HypergraphPageRank float64 `json:"hypergraphPageRank"`
	SpectralClusterID  int     `json:"spectralClusterId"`
	CoOccurrence       float64 `json:"coOccurrence"`
	Recency            float64 `json:"recency"`
	AdamicAdar         float64 `json:"adamicAdar"`
	HeatDiffusion      float64 `json:"heatDiffusion"`
}

// Capability is a reusable, learned multi-tool workflow (spec.md §3).
// The graph store exclusively owns Capability records by id.
type Capability struct {
	ID   uuid.UUID `json:"id"`
	FQDN FQDN      `json:"fqdn"`

	Members        []Member `json:"members"`
	HierarchyLevel int      `json:"hierarchyLevel"`

	IntentEmbedding []float32 `json:"intentEmbedding"`

	UsageCount   int     `json:"usageCount"`
	SuccessCount int     `json:"successCount"`
	AvgDuration  float64 `json:"avgDurationMs"`

	Source      CapabilitySource `json:"source"`
	CodeSnippet string           `json:"codeSnippet,omitempty"`
	Structure   *StaticStructure `json:"structure,omitempty"`

	Features HypergraphFeatures `json:"features"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCapability constructs a Capability, normalizing its intent embedding.
// HierarchyLevel is 0 until RecomputeHierarchyLevels runs over the graph.
func NewCapability(id uuid.UUID, fqdn FQDN, members []Member, intentEmbedding []float32, source CapabilitySource) *Capability {
	now := time.Now()
	return &Capability{
		ID:              id,
		FQDN:            fqdn,
		Members:         members,
		IntentEmbedding: kernel.L2Normalize(intentEmbedding),
		Source:          source,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SuccessRate is successCount/usageCount when usageCount > 0, else the
// cold-start default of 0.5 (spec.md §3 invariant / §4.6).
func (c *Capability) SuccessRate() float64 {
	if c.UsageCount <= 0 {
		return 0.5
	}
	return float64(c.SuccessCount) / float64(c.UsageCount)
}

// RecordOutcome updates usage/success counters and the running average
// duration after an execution.
func (c *Capability) RecordOutcome(success bool, durationMs float64) {
	prevTotal := c.AvgDuration * float64(c.UsageCount)
	c.UsageCount++
	if success {
		c.SuccessCount++
	}
	c.AvgDuration = (prevTotal + durationMs) / float64(c.UsageCount)
	c.UpdatedAt = time.Now()
}

// IsMeta reports whether the code snippet references nested capabilities
// via the literal "$cap:<uuid>" token (spec.md §6).
func (c *Capability) IsMeta() bool {
	return len(ReferencedCapabilityIDs(c.CodeSnippet)) > 0
}
