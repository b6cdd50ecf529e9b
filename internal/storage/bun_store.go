// Package storage is the Postgres-backed implementation of
// domain.Storage (spec.md §6): tools, capabilities, edges, traces,
// SHGAT params, and the append-only metrics sink, all through bun.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/toolgraph/shgat/internal/domain"
)

// BunStore is the single bun.DB-backed implementation of domain.Storage.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a lazy connection pool against dsn. No round-trip
// happens until the first query, matching the teacher's BunStore.
func NewBunStore(dsn string) *BunStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}
}

// InitSchema creates every table this store owns if absent.
func (s *BunStore) InitSchema(ctx context.Context) error {
	models := []interface{}{
		(*ToolModel)(nil),
		(*CapabilityModel)(nil),
		(*EdgeModel)(nil),
		(*TraceModel)(nil),
		(*ParamsModel)(nil),
		(*MetricModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

// Tool

type ToolModel struct {
	bun.BaseModel `bun:"table:tools,alias:t"`

	ID          string    `bun:"id,pk"`
	Description string    `bun:"description"`
	Embedding   []float32 `bun:"embedding,type:jsonb"`
	Features    domain.ToolFeatures `bun:"features,type:jsonb"`
}

func NewToolModel(t *domain.Tool) *ToolModel {
	return &ToolModel{
		ID:          t.ID,
		Description: t.Description,
		Embedding:   t.Embedding,
		Features:    t.Features,
	}
}

func (m *ToolModel) ToDomain() *domain.Tool {
	return &domain.Tool{
		ID:          m.ID,
		Description: m.Description,
		Embedding:   m.Embedding,
		Features:    m.Features,
	}
}

func (s *BunStore) SaveTool(ctx context.Context, t *domain.Tool) error {
	model := NewToolModel(t)
	_, err := s.db.NewInsert().Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("description = EXCLUDED.description").
		Set("embedding = EXCLUDED.embedding").
		Set("features = EXCLUDED.features").
		Exec(ctx)
	return err
}

func (s *BunStore) LoadTools(ctx context.Context) ([]*domain.Tool, error) {
	var models []*ToolModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*domain.Tool, len(models))
	for i, m := range models {
		out[i] = m.ToDomain()
	}
	return out, nil
}

// Capability

type CapabilityModel struct {
	bun.BaseModel `bun:"table:capabilities,alias:c"`

	ID              uuid.UUID                `bun:"id,pk"`
	FQDN            string                   `bun:"fqdn"`
	Members         []domain.Member          `bun:"members,type:jsonb"`
	HierarchyLevel  int                      `bun:"hierarchy_level"`
	IntentEmbedding []float32                `bun:"intent_embedding,type:jsonb"`
	UsageCount      int                      `bun:"usage_count"`
	SuccessCount    int                      `bun:"success_count"`
	AvgDuration     float64                  `bun:"avg_duration_ms"`
	Source          domain.CapabilitySource  `bun:"source"`
	CodeSnippet     string                   `bun:"code_snippet"`
	Structure       *domain.StaticStructure  `bun:"structure,type:jsonb"`
	Features        domain.HypergraphFeatures `bun:"features,type:jsonb"`
	CreatedAt       time.Time                `bun:"created_at"`
	UpdatedAt       time.Time                `bun:"updated_at"`
}

func NewCapabilityModel(c *domain.Capability) *CapabilityModel {
	return &CapabilityModel{
		ID:              c.ID,
		FQDN:            string(c.FQDN),
		Members:         c.Members,
		HierarchyLevel:  c.HierarchyLevel,
		IntentEmbedding: c.IntentEmbedding,
		UsageCount:      c.UsageCount,
		SuccessCount:    c.SuccessCount,
		AvgDuration:     c.AvgDuration,
		Source:          c.Source,
		CodeSnippet:     c.CodeSnippet,
		Structure:       c.Structure,
		Features:        c.Features,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (m *CapabilityModel) ToDomain() *domain.Capability {
	return &domain.Capability{
		ID:              m.ID,
		FQDN:            domain.FQDN(m.FQDN),
		Members:         m.Members,
		HierarchyLevel:  m.HierarchyLevel,
		IntentEmbedding: m.IntentEmbedding,
		UsageCount:      m.UsageCount,
		SuccessCount:    m.SuccessCount,
		AvgDuration:     m.AvgDuration,
		Source:          m.Source,
		CodeSnippet:     m.CodeSnippet,
		Structure:       m.Structure,
		Features:        m.Features,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (s *BunStore) SaveCapability(ctx context.Context, c *domain.Capability) error {
	model := NewCapabilityModel(c)
	_, err := s.db.NewInsert().Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("fqdn = EXCLUDED.fqdn").
		Set("members = EXCLUDED.members").
		Set("hierarchy_level = EXCLUDED.hierarchy_level").
		Set("intent_embedding = EXCLUDED.intent_embedding").
		Set("usage_count = EXCLUDED.usage_count").
		Set("success_count = EXCLUDED.success_count").
		Set("avg_duration_ms = EXCLUDED.avg_duration_ms").
		Set("code_snippet = EXCLUDED.code_snippet").
		Set("structure = EXCLUDED.structure").
		Set("features = EXCLUDED.features").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BunStore) LoadCapabilities(ctx context.Context) ([]*domain.Capability, error) {
	var models []*CapabilityModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*domain.Capability, len(models))
	for i, m := range models {
		out[i] = m.ToDomain()
	}
	return out, nil
}

// Edge

type EdgeModel struct {
	bun.BaseModel `bun:"table:edges,alias:e"`

	FromKind        domain.MemberKind `bun:"from_kind,pk"`
	FromID          string            `bun:"from_id,pk"`
	ToKind          domain.MemberKind `bun:"to_kind,pk"`
	ToID            string            `bun:"to_id,pk"`
	Type            domain.EdgeType   `bun:"type,pk"`
	Weight          float64           `bun:"weight"`
	ObservedCount   int               `bun:"observed_count"`
	ConfidenceScore float64           `bun:"confidence_score"`
	Source          domain.EdgeSource `bun:"source"`
	UpdatedAt       time.Time         `bun:"updated_at"`
}

func NewEdgeModel(e *domain.Edge) *EdgeModel {
	return &EdgeModel{
		FromKind:        e.From.Kind,
		FromID:          e.From.ID,
		ToKind:          e.To.Kind,
		ToID:            e.To.ID,
		Type:            e.Type,
		Weight:          e.Weight,
		ObservedCount:   e.ObservedCount,
		ConfidenceScore: e.ConfidenceScore,
		Source:          e.Source,
		UpdatedAt:       e.UpdatedAt,
	}
}

func (m *EdgeModel) ToDomain() *domain.Edge {
	return &domain.Edge{
		From:            domain.NodeRef{Kind: m.FromKind, ID: m.FromID},
		To:              domain.NodeRef{Kind: m.ToKind, ID: m.ToID},
		Type:            m.Type,
		Weight:          m.Weight,
		ObservedCount:   m.ObservedCount,
		ConfidenceScore: m.ConfidenceScore,
		Source:          m.Source,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (s *BunStore) SaveEdge(ctx context.Context, e *domain.Edge) error {
	model := NewEdgeModel(e)
	_, err := s.db.NewInsert().Model(model).
		On("CONFLICT (from_kind, from_id, to_kind, to_id, type) DO UPDATE").
		Set("weight = EXCLUDED.weight").
		Set("observed_count = EXCLUDED.observed_count").
		Set("confidence_score = EXCLUDED.confidence_score").
		Set("source = EXCLUDED.source").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BunStore) LoadEdges(ctx context.Context) ([]*domain.Edge, error) {
	var models []*EdgeModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*domain.Edge, len(models))
	for i, m := range models {
		out[i] = m.ToDomain()
	}
	return out, nil
}

// Trace

type TraceModel struct {
	bun.BaseModel `bun:"table:traces,alias:tr"`

	ID              uuid.UUID               `bun:"id,pk"`
	CapabilityID    *uuid.UUID              `bun:"capability_id"`
	Intent          string                  `bun:"intent"`
	IntentEmbedding []float32               `bun:"intent_embedding,type:jsonb"`
	ExecutedPath    []string                `bun:"executed_path,type:jsonb"`
	Decisions       []domain.DecisionOutcome `bun:"decisions,type:jsonb"`
	TaskResults     []domain.TaskResult     `bun:"task_results,type:jsonb"`
	Success         bool                    `bun:"success"`
	DurationMs      float64                 `bun:"duration_ms"`
	Priority        float64                 `bun:"priority"`
	UserID          string                  `bun:"user_id"`
	CreatedAt       time.Time               `bun:"created_at"`
}

func NewTraceModel(t *domain.ExecutionTrace) *TraceModel {
	return &TraceModel{
		ID:              t.ID,
		CapabilityID:    t.CapabilityID,
		Intent:          t.Intent,
		IntentEmbedding: t.IntentEmbedding,
		ExecutedPath:    t.ExecutedPath,
		Decisions:       t.Decisions,
		TaskResults:     t.TaskResults,
		Success:         t.Success,
		DurationMs:      t.DurationMs,
		Priority:        t.Priority,
		UserID:          t.UserID,
		CreatedAt:       t.CreatedAt,
	}
}

func (m *TraceModel) ToDomain() *domain.ExecutionTrace {
	return &domain.ExecutionTrace{
		ID:              m.ID,
		CapabilityID:    m.CapabilityID,
		Intent:          m.Intent,
		IntentEmbedding: m.IntentEmbedding,
		ExecutedPath:    m.ExecutedPath,
		Decisions:       m.Decisions,
		TaskResults:     m.TaskResults,
		Success:         m.Success,
		DurationMs:      m.DurationMs,
		Priority:        m.Priority,
		UserID:          m.UserID,
		CreatedAt:       m.CreatedAt,
	}
}

func (s *BunStore) AppendTrace(ctx context.Context, t *domain.ExecutionTrace) error {
	model := NewTraceModel(t)
	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// LoadTraces returns up to limit traces, highest priority first (C6's
// prioritized experience replay samples from the head of this list).
func (s *BunStore) LoadTraces(ctx context.Context, limit int) ([]*domain.ExecutionTrace, error) {
	var models []*TraceModel
	q := s.db.NewSelect().Model(&models).OrderExpr("priority DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*domain.ExecutionTrace, len(models))
	for i, m := range models {
		out[i] = m.ToDomain()
	}
	return out, nil
}

func (s *BunStore) UpdatePriorities(ctx context.Context, ids []uuid.UUID, priorities []float64) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for i, id := range ids {
			if i >= len(priorities) {
				break
			}
			_, err := tx.NewUpdate().Model((*TraceModel)(nil)).
				Set("priority = ?", priorities[i]).
				Where("id = ?", id).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Params

type ParamsModel struct {
	bun.BaseModel `bun:"table:model_params,alias:p"`

	UserID    string    `bun:"user_id,pk"`
	Blob      []byte    `bun:"blob,type:bytea"`
	UpdatedAt time.Time `bun:"updated_at"`
}

// SaveParams stores blob under userID, overwriting any prior weights for
// that user (a zero-value userID denotes the global/default model).
func (s *BunStore) SaveParams(ctx context.Context, userID string, blob []byte) error {
	model := &ParamsModel{UserID: userID, Blob: blob, UpdatedAt: time.Now()}
	_, err := s.db.NewInsert().Model(model).
		On("CONFLICT (user_id) DO UPDATE").
		Set("blob = EXCLUDED.blob").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BunStore) LoadParams(ctx context.Context, userID string) ([]byte, error) {
	model := new(ParamsModel)
	err := s.db.NewSelect().Model(model).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return model.Blob, nil
}

// Metric

type MetricModel struct {
	bun.BaseModel `bun:"table:metrics,alias:m"`

	ID        int64          `bun:"id,pk,autoincrement"`
	Name      string         `bun:"metric_name"`
	Value     float64        `bun:"value"`
	Metadata  map[string]any `bun:"metadata,type:jsonb"`
	Timestamp time.Time      `bun:"timestamp"`
}

func (s *BunStore) RecordMetric(ctx context.Context, name string, value float64, metadata map[string]any, ts time.Time) error {
	model := &MetricModel{Name: name, Value: value, Metadata: metadata, Timestamp: ts}
	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// marshalJSON is a small helper kept for symmetry with the teacher's
// Spec-as-jsonb workflow columns; bun's jsonb tag handles (un)marshaling
// for struct/slice fields directly, so this is only used where a field
// needs pre-serialization before leaving the package (cmd/trainer).
func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
