package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/rationale"
	"github.com/toolgraph/shgat/internal/spectral"
)

func TestDiscoverToolsClusterBoostMultipliesScoreWhenExpressionTrue(t *testing.T) {
	store := graphstore.New(false)
	store.UpsertTool("t1", "fetches users", vec(1, 0, 0, 0))

	o := New(store)
	o.Scorer = testModel()
	o.BoostEval = spectral.NewBoostEvaluator()
	o.Cfg.ClusterBoostExpr = "pageRank >= 0"
	o.Cfg.ClusterBoostFactor = 2.0

	baseline := New(store)
	baseline.Scorer = testModel()

	results, err := o.DiscoverTools(context.Background(), DiscoverToolsRequest{
		Intent:          "fetch users",
		IntentEmbedding: vec(1, 0, 0, 0),
		Limit:           5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	baselineResults, err := baseline.DiscoverTools(context.Background(), DiscoverToolsRequest{
		Intent:          "fetch users",
		IntentEmbedding: vec(1, 0, 0, 0),
		Limit:           5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, baselineResults)

	assert.InDelta(t, baselineResults[0].Score*2.0, results[0].Score, 1e-9)
}

func TestDiscoverToolsClusterBoostNoopWhenExpressionUnset(t *testing.T) {
	store := graphstore.New(false)
	store.UpsertTool("t1", "fetches users", vec(1, 0, 0, 0))

	o := New(store)
	o.Scorer = testModel()
	o.BoostEval = spectral.NewBoostEvaluator()

	results, err := o.DiscoverTools(context.Background(), DiscoverToolsRequest{
		Intent:          "fetch users",
		IntentEmbedding: vec(1, 0, 0, 0),
		Limit:           5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "shgat", results[0].Algorithm)
}

func TestDiscoverToolsRationaleTemplateOverridesDefault(t *testing.T) {
	store := graphstore.New(false)
	store.UpsertTool("t1", "fetches users", vec(1, 0, 0, 0))

	o := New(store)
	o.Scorer = testModel()
	o.TemplateEval = rationale.NewTemplateEvaluator()
	o.Cfg.RationaleTemplate = `"custom rationale for " + algorithm`

	results, err := o.DiscoverTools(context.Background(), DiscoverToolsRequest{
		Intent:          "fetch users",
		IntentEmbedding: vec(1, 0, 0, 0),
		Limit:           5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "custom rationale for shgat", results[0].Rationale)
}

func TestBoostEvaluatorRejectsNonBoolExpression(t *testing.T) {
	ev := spectral.NewBoostEvaluator()
	_, err := ev.Eval(`"not a bool"`, map[string]any{})
	assert.Error(t, err)
}

func TestTemplateEvaluatorRejectsNonStringExpression(t *testing.T) {
	ev := rationale.NewTemplateEvaluator()
	_, err := ev.Eval(`1 + 1`, map[string]any{})
	assert.Error(t, err)
}
