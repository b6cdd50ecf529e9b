package training

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/shgat"
)

type fakeSaver struct {
	saved shgat.Params
	err   error
	calls int
}

func (f *fakeSaver) SaveParams(ctx context.Context, connStr string, params shgat.Params) error {
	f.calls++
	f.saved = params
	return f.err
}

func TestRunProducesTDErrorsAndSavesParams(t *testing.T) {
	capID := uuid.New()
	traceID := uuid.New()
	req := Request{
		ModelConfig: smallCfg(),
		Capabilities: []CapabilityInput{
			{ID: capID, Embedding: unitVec(8, 0), ToolsUsed: []string{"t1"}, SuccessRate: 0.9},
		},
		Examples: []ExampleInput{
			{TraceID: traceID, IntentEmbedding: unitVec(8, 0), CandidateID: capID, Outcome: 1},
		},
		Epochs:    2,
		BatchSize: 1,
		Seed:      1,
	}
	saver := &fakeSaver{}
	resp := Run(context.Background(), req, saver)
	require.True(t, resp.Success)
	assert.Equal(t, 1, saver.calls)
	assert.True(t, resp.SavedToDB)
	found := false
	for _, e := range resp.TDErrors {
		if e.TraceID == traceID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunWithoutSaverReportsNotSaved(t *testing.T) {
	capID := uuid.New()
	req := Request{
		ModelConfig:  smallCfg(),
		Capabilities: []CapabilityInput{{ID: capID, Embedding: unitVec(8, 0), SuccessRate: 0.5}},
		Examples: []ExampleInput{
			{TraceID: uuid.New(), IntentEmbedding: unitVec(8, 0), CandidateID: capID, Outcome: 0},
		},
		Epochs: 1,
	}
	resp := Run(context.Background(), req, nil)
	assert.True(t, resp.Success)
	assert.False(t, resp.SavedToDB)
}

func TestRunSkipsExamplesWithUnknownCandidate(t *testing.T) {
	req := Request{
		ModelConfig: smallCfg(),
		Examples: []ExampleInput{
			{TraceID: uuid.New(), IntentEmbedding: unitVec(8, 0), CandidateID: uuid.New(), Outcome: 1},
		},
		Epochs: 1,
	}
	resp := Run(context.Background(), req, nil)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.TDErrors)
}

func TestReadWriteMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Response{Success: true, FinalLoss: 0.1, SavedToDB: true}
	require.NoError(t, WriteMessage(&buf, in))

	var out Response
	require.NoError(t, ReadMessage(&buf, &out))
	assert.Equal(t, in, out)
}

func TestReadMessageErrorsOnTruncatedInput(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 10, 'x'})
	var out Response
	assert.Error(t, ReadMessage(buf, &out))
}
