// Package openai provides an OpenAI-backed embedder.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/claimlens/claimlens/engine/semantic"
	"github.com/claimlens/claimlens/pkg/fn"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = openai.SmallEmbedding3

// EmbedClient implements semantic.Embedder on the OpenAI embeddings API.
type EmbedClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
	retry  fn.RetryOpts
}

// NewEmbedClient creates a client. An empty model selects DefaultModel.
func NewEmbedClient(apiKey, model string) *EmbedClient {
	m := openai.EmbeddingModel(model)
	if m == "" {
		m = DefaultModel
	}
	return &EmbedClient{
		client: openai.NewClient(apiKey),
		model:  m,
		retry:  fn.DefaultRetry,
	}
}

// Embed returns a unit-length embedding for text.
func (c *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request with retry on transient failures.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[[][]float32] {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: c.model,
		})
		if err != nil {
			return fn.Err[[][]float32](fmt.Errorf("openai embed: %w", err))
		}
		if len(resp.Data) != len(texts) {
			return fn.Err[[][]float32](fmt.Errorf("openai embed: got %d embeddings for %d inputs", len(resp.Data), len(texts)))
		}
		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			out[i] = semantic.Normalize(d.Embedding)
		}
		return fn.Ok(out)
	})
	return result.Unwrap()
}
