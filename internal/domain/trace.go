package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskResult is one executed step recorded in an ExecutionTrace.
type TaskResult struct {
	TaskID     string         `json:"taskId"`
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args,omitempty"`
	Result     any            `json:"result,omitempty"`
	Success    bool           `json:"success"`
	DurationMs float64        `json:"durationMs"`
	LayerIndex int            `json:"layerIndex"`
}

// DecisionOutcome is one (nodeId, outcome) pair recorded along an executed
// path, e.g. the branch a decision node took.
type DecisionOutcome struct {
	NodeID  string `json:"nodeId"`
	Outcome string `json:"outcome"`
}

// ExecutionTrace is one recorded execution, the unit of training data fed
// to C6/C7/C8 (spec.md §3).
type ExecutionTrace struct {
	ID           uuid.UUID  `json:"id"`
	CapabilityID *uuid.UUID `json:"capabilityId,omitempty"`

	Intent          string    `json:"intent"`
	IntentEmbedding []float32 `json:"intentEmbedding"`

	ExecutedPath []string           `json:"executedPath"`
	Decisions    []DecisionOutcome  `json:"decisions"`
	TaskResults  []TaskResult       `json:"taskResults"`

	Success    bool    `json:"success"`
	DurationMs float64 `json:"durationMs"`

	// Priority drives PER sampling (C6). Initialized to 0.5 at cold
	// start, later replaced with |TD error| (spec.md §3, §4.6).
	Priority float64 `json:"priority"`

	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ColdStartPriority is the initial priority assigned to a newly appended
// trace before any TD error has been computed for it.
const ColdStartPriority = 0.5

// NewExecutionTrace constructs a trace at cold-start priority.
func NewExecutionTrace(intent string, intentEmbedding []float32, capabilityID *uuid.UUID) *ExecutionTrace {
	return &ExecutionTrace{
		ID:              uuid.New(),
		CapabilityID:    capabilityID,
		Intent:          intent,
		IntentEmbedding: intentEmbedding,
		Priority:        ColdStartPriority,
		CreatedAt:       time.Now(),
	}
}
