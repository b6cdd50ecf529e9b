// Package trainlauncher builds a training.Request from the live store
// and trace replay buffer and runs it as the C8 subprocess described in
// spec.md §4.8, speaking the length-prefixed pipe protocol cmd/trainer
// implements on the other end. Spawning a subprocess has no third-party
// equivalent anywhere in the example pack, so this is the one place that
// falls back to the standard library's os/exec rather than a pack
// dependency.
package trainlauncher

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/toolgraph/shgat/internal/domain"
	domerr "github.com/toolgraph/shgat/internal/domain/errors"
	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/shgat"
	"github.com/toolgraph/shgat/internal/tracestore"
	"github.com/toolgraph/shgat/internal/training"
)

// Config tunes a Launcher.
type Config struct {
	// TrainerPath is the path to the built cmd/trainer binary.
	TrainerPath string
	// ConnectionString is passed through so the subprocess's
	// storage.ParamsAdapter can open its own short-lived DB connection.
	ConnectionString string
	BatchSize        int
	Epochs           int
	ModelConfig      shgat.Config
	AdamW            training.AdamWConfig
	NegativeMining   training.NegativeMiningConfig
}

// Launcher runs training jobs as subprocesses against the live graph
// store and trace replay buffer.
type Launcher struct {
	cfg    Config
	store  *graphstore.Store
	traces *tracestore.Store
}

// New builds a Launcher.
func New(cfg Config, store *graphstore.Store, traces *tracestore.Store) *Launcher {
	return &Launcher{cfg: cfg, store: store, traces: traces}
}

// Run builds a training.Request snapshot of the current capabilities and
// a sampled batch of experience traces, attaches the model's current
// params (if any) so training resumes rather than restarts, spawns
// cmd/trainer, and returns its Response. userID scopes both the sampled
// examples (when set, traces of other users are dropped; traces with no
// user id are kept) and the saved model slot.
func (l *Launcher) Run(ctx context.Context, userID string, existingParams *shgat.Params) (training.Response, error) {
	req := l.buildRequest(userID, existingParams)

	cmd := exec.CommandContext(ctx, l.cfg.TrainerPath)
	var stdin bytes.Buffer
	if err := training.WriteMessage(&stdin, req); err != nil {
		return training.Response{}, fmt.Errorf("encode training request: %w", err)
	}
	cmd.Stdin = &stdin

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	runErr := cmd.Run()

	var resp training.Response
	if decodeErr := training.ReadMessage(&stdout, &resp); decodeErr != nil {
		if runErr != nil {
			return training.Response{}, fmt.Errorf("%w: trainer subprocess failed: %w", domerr.ErrTrainingFailed, runErr)
		}
		return training.Response{}, fmt.Errorf("%w: decode training response: %w", domerr.ErrTrainingFailed, decodeErr)
	}
	return resp, nil
}

func (l *Launcher) buildRequest(userID string, existingParams *shgat.Params) training.Request {
	caps := l.store.AllCapabilities()
	capInputs := make([]training.CapabilityInput, 0, len(caps))
	for _, c := range caps {
		toolsUsed := make([]string, 0, len(c.Members))
		for _, m := range c.Members {
			if m.Kind == domain.MemberTool {
				toolsUsed = append(toolsUsed, m.ToolID)
			}
		}
		capInputs = append(capInputs, training.CapabilityInput{
			ID:          c.ID,
			Embedding:   c.IntentEmbedding,
			ToolsUsed:   toolsUsed,
			SuccessRate: c.SuccessRate(),
		})
	}

	batchSize := l.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	sampled := l.traces.SampleBatch(batchSize)
	examples := make([]training.ExampleInput, 0, len(sampled))
	for _, st := range sampled {
		if st.Trace == nil || st.Trace.CapabilityID == nil {
			continue
		}
		if userID != "" && st.Trace.UserID != "" && st.Trace.UserID != userID {
			continue
		}
		outcome := 0
		if st.Trace.Success {
			outcome = 1
		}
		examples = append(examples, training.ExampleInput{
			TraceID:          st.ID,
			IntentEmbedding:  st.Trace.IntentEmbedding,
			ContextTools:     st.Trace.ExecutedPath,
			CandidateID:      *st.Trace.CapabilityID,
			Outcome:          outcome,
			ImportanceWeight: st.Weight,
		})
	}

	return training.Request{
		Capabilities:     capInputs,
		Examples:         examples,
		Epochs:           l.cfg.Epochs,
		BatchSize:        batchSize,
		ExistingParams:   existingParams,
		ConnectionString: l.cfg.ConnectionString,
		UserID:           userID,
		ModelConfig:      l.cfg.ModelConfig,
		AdamW:            l.cfg.AdamW,
		NegativeMining:   l.cfg.NegativeMining,
	}
}
