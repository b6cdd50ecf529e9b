package training

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/shgat"
)

// CapabilityInput is one capability's training-relevant snapshot, part of
// the subprocess's single pipe message (spec.md §4.8).
type CapabilityInput struct {
	ID          uuid.UUID `json:"id"`
	Embedding   []float32 `json:"embedding"`
	ToolsUsed   []string  `json:"toolsUsed"`
	SuccessRate float64   `json:"successRate"`
}

// ExampleInput is one labeled training example as received over the pipe.
type ExampleInput struct {
	TraceID         uuid.UUID  `json:"traceId"`
	IntentEmbedding []float32  `json:"intentEmbedding"`
	ContextTools    []string   `json:"contextTools"`
	CandidateID     uuid.UUID  `json:"candidateId"`
	Outcome         int        `json:"outcome"` // 0 or 1
	NegativeCapIDs  []uuid.UUID `json:"negativeCapIds"`
	ImportanceWeight float64   `json:"importanceWeight"`
}

// Request is the single pipe message the training worker reads on stdin.
type Request struct {
	Capabilities     []CapabilityInput `json:"capabilities"`
	Examples         []ExampleInput    `json:"examples"`
	Epochs           int               `json:"epochs"`
	BatchSize        int               `json:"batchSize"`
	ExistingParams   *shgat.Params     `json:"existingParams,omitempty"`
	ConnectionString string            `json:"connectionString"`
	// UserID selects which per-user model slot SaveParams writes to; empty
	// denotes the global/default model (spec.md's user-id tag, carried
	// through from the traces this request was built from).
	UserID           string            `json:"userId,omitempty"`
	ModelConfig      shgat.Config      `json:"modelConfig"`
	AdamW            AdamWConfig       `json:"adamw"`
	NegativeMining   NegativeMiningConfig `json:"negativeMining"`
	Seed             uint32            `json:"seed"`
}

// Response is the single status frame the worker writes to stdout.
// Params themselves are persisted directly to a store via SaveParams and
// only referenced here, per spec.md §4.8 ("avoid stdout size limits").
type Response struct {
	Success      bool                 `json:"success"`
	FinalLoss    float64              `json:"finalLoss"`
	FinalAccuracy float64             `json:"finalAccuracy"`
	TDErrors     []TDErrorEntry       `json:"tdErrors"`
	SavedToDB    bool                 `json:"savedToDb"`
	Error        string               `json:"error,omitempty"`
}

// TDErrorEntry is one trace's |TD error| from the final epoch, consumed
// by C6's UpdatePriorities.
type TDErrorEntry struct {
	TraceID uuid.UUID `json:"traceId"`
	TDError float64   `json:"tdError"`
}

// ReadMessage reads one 4-byte big-endian length-prefixed JSON message
// from r and decodes it into v.
func ReadMessage(r io.Reader, v any) error {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

// WriteMessage encodes v as JSON and writes it to w as a 4-byte
// big-endian length-prefixed message.
func WriteMessage(w io.Writer, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(buf))); err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
