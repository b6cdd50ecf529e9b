package domain

import "context"

// EmbeddingModel is the consumed external embedding service (spec.md §6).
// Implementations must L2-normalize their output.
type EmbeddingModel interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// ToolMeta is the metadata the tool repository returns for a tool id.
type ToolMeta struct {
	ID          string
	ServerID    string
	Description string
	InputSchema map[string]any
}

// ToolRepository is the consumed external source of truth for tool
// metadata (spec.md §6). The graph store only tracks ids + embeddings;
// this is what the orchestrator calls to enrich a ranked result.
type ToolRepository interface {
	FindByID(ctx context.Context, id string) (*ToolMeta, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]ToolMeta, error)
}

// CapabilityRegistryRecord is what the capability registry returns for a
// workflow pattern id.
type CapabilityRegistryRecord struct {
	Namespace          string
	Action             string
	FQDN               FQDN
	WorkflowPatternID  string
}

// CapabilityRegistry is the consumed external registry that resolves a
// capability's call name (spec.md §6).
type CapabilityRegistry interface {
	GetByWorkflowPatternID(ctx context.Context, id string) (*CapabilityRegistryRecord, error)
}
