// Package embedding implements domain.EmbeddingModel against OpenAI's
// embeddings endpoint, grounded on the teacher's openai.NewClient /
// ChatCompletionRequest call style in
// internal/application/executor/node_executors.go, generalized from
// chat completions to embeddings.
package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/kernel"
)

// Client implements domain.EmbeddingModel using OpenAI's
// text-embedding-3-small model, requesting the dimensionality the rest
// of the engine assumes everywhere (spec.md §3 invariant 1: fixed
// domain.EmbeddingDim-size vectors).
type Client struct {
	api   *openai.Client
	model openai.EmbeddingModel
	dims  int
}

// NewClient builds a Client from an API key, matching the teacher's
// direct openai.NewClient(apiKey) construction with no extra wrapping.
func NewClient(apiKey string) *Client {
	return &Client{
		api:   openai.NewClient(apiKey),
		model: openai.SmallEmbedding3,
		dims:  domain.EmbeddingDim,
	}
}

// Encode embeds text and L2-normalizes the result per EmbeddingModel's
// contract. An empty API response is a hard error, not a degradation —
// callers (the orchestrator) are responsible for falling back to
// semantic/keyword search when Encode fails.
func (c *Client) Encode(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      c.model,
		Dimensions: c.dims,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return kernel.L2Normalize(resp.Data[0].Embedding), nil
}
