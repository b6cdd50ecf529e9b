package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GraphRepository persists tool/capability/edge records (spec.md §6
// Storage). The in-process graph store (C2) is the read/write-through
// cache in front of this; the graph-sync controller (C9) is the only
// writer that reconciles the two.
type GraphRepository interface {
	SaveTool(ctx context.Context, t *Tool) error
	LoadTools(ctx context.Context) ([]*Tool, error)

	SaveCapability(ctx context.Context, c *Capability) error
	LoadCapabilities(ctx context.Context) ([]*Capability, error)

	SaveEdge(ctx context.Context, e *Edge) error
	LoadEdges(ctx context.Context) ([]*Edge, error)
}

// TraceRepository persists execution traces (C6) and their priorities.
type TraceRepository interface {
	AppendTrace(ctx context.Context, t *ExecutionTrace) error
	LoadTraces(ctx context.Context, limit int) ([]*ExecutionTrace, error)
	UpdatePriorities(ctx context.Context, ids []uuid.UUID, priorities []float64) error
}

// ParamsRepository persists SHGAT model parameters keyed by user id
// (spec.md §6). A zero-value userID denotes the global/default model.
type ParamsRepository interface {
	SaveParams(ctx context.Context, userID string, blob []byte) error
	LoadParams(ctx context.Context, userID string) ([]byte, error)
}

// MetricsRepository is the append-only metrics sink (spec.md §6):
// metrics(metric_name, value, metadata JSONB, timestamp).
type MetricsRepository interface {
	RecordMetric(ctx context.Context, name string, value float64, metadata map[string]any, ts time.Time) error
}

// DecisionLogSink receives one record per ranked candidate.
type DecisionLogSink interface {
	Log(ctx context.Context, record DecisionLogRecord)
}

// Storage is the unified persistence surface the rest of the engine
// depends on, mirroring the teacher's combined Storage interface.
type Storage interface {
	GraphRepository
	TraceRepository
	ParamsRepository
	MetricsRepository

	Ping(ctx context.Context) error
	Close() error
}
