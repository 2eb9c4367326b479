// Package semantic implements the in-process similarity index: a dense
// vector per chunk, inner-product scoring against every stored vector, and
// two-phase top-k selection. The embedding space is assumed pre-normalized,
// so inner product approximates cosine similarity. Embedding computation
// itself is an external collaborator behind the Embedder interface.
package semantic

import (
	"context"
	"math"

	"github.com/claimlens/claimlens/pkg/resilience"
)

// Embedder converts text into a dense vector. Implementations live in
// pkg/ollama and pkg/openai; tests use in-package fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Normalize scales v to unit length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// GuardedEmbedder decorates an Embedder with a rate limiter and a circuit
// breaker so a struggling embedding backend degrades to the keyword fallback
// instead of stalling request handlers.
type GuardedEmbedder struct {
	inner   Embedder
	limiter *resilience.Limiter
	breaker *resilience.Breaker
}

// Guard wraps an embedder. Either limiter or breaker may be nil.
func Guard(inner Embedder, limiter *resilience.Limiter, breaker *resilience.Breaker) *GuardedEmbedder {
	return &GuardedEmbedder{inner: inner, limiter: limiter, breaker: breaker}
}

// Embed applies the limiter and breaker around a single embedding call.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch applies the limiter and breaker around a batch embedding call.
func (g *GuardedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

func (g *GuardedEmbedder) call(ctx context.Context, f func(context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if g.breaker != nil {
		return g.breaker.Call(ctx, f)
	}
	return f(ctx)
}
