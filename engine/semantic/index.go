package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/claimlens/claimlens/engine/corpus"
	"github.com/claimlens/claimlens/engine/domain"
)

// RelevanceFloor is the minimum similarity a semantic hit must exceed.
// Results at or below the floor are dropped, not merely de-prioritized.
const RelevanceFloor = 0.3

// snapshot pairs a chunk snapshot with its parallel embedding array.
// vectors may be nil when embedding was unavailable at index build; the
// index then answers every query with an empty result and callers fall
// back to keyword search.
type snapshot struct {
	corpus  *corpus.Snapshot
	vectors [][]float32
}

// Index answers top-k nearest-neighbor queries over the current snapshot.
// Searches are lock-free reads; a rebuild produces a fresh snapshot that is
// swapped in atomically, so concurrent searches keep serving the previous
// consistent view and never observe a chunk store whose length disagrees
// with its embedding array.
type Index struct {
	embedder Embedder
	logger   *slog.Logger
	snap     atomic.Pointer[snapshot]
}

// NewIndex creates an empty Index.
func NewIndex(embedder Embedder, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Index{embedder: embedder, logger: logger}
	ix.snap.Store(&snapshot{corpus: corpus.Empty()})
	return ix
}

// Swap atomically replaces the served snapshot. vectors must either be nil
// (semantic search disabled until the next rebuild) or exactly parallel to
// the chunk sequence.
func (ix *Index) Swap(c *corpus.Snapshot, vectors [][]float32) error {
	if c == nil {
		c = corpus.Empty()
	}
	if vectors != nil && len(vectors) != c.Len() {
		return fmt.Errorf("semantic: %d vectors for %d chunks", len(vectors), c.Len())
	}
	ix.snap.Store(&snapshot{corpus: c, vectors: vectors})
	return nil
}

// Snapshot returns the chunk snapshot currently being served.
func (ix *Index) Snapshot() *corpus.Snapshot {
	return ix.snap.Load().corpus
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return ix.Snapshot().Len() }

// DocumentCount returns the number of distinct source documents indexed.
func (ix *Index) DocumentCount() int { return ix.Snapshot().SourceCount() }

// Ready reports whether semantic search is currently possible: chunks are
// indexed and an embedding exists for each.
func (ix *Index) Ready() bool {
	s := ix.snap.Load()
	return s.corpus.Len() > 0 && s.vectors != nil
}

// Search embeds the query once, scores it against every stored vector by
// inner product, and returns up to k results above the relevance floor,
// ordered by score descending with ties broken on original chunk order.
// An empty index or a failed embedding yields an empty result and a
// non-nil error for diagnostics; callers treat empty as "fall back to
// keyword search" and must never surface the error to the end caller.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	s := ix.snap.Load()
	if s.corpus.Len() == 0 || s.vectors == nil || k <= 0 {
		return nil, nil
	}

	qv, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		ix.logger.Warn("semantic embed failed, caller should fall back", "err", err)
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}

	scores := make([]float64, s.corpus.Len())
	for i, v := range s.vectors {
		scores[i] = dot(qv, v)
	}

	top := topK(scores, k)
	results := make([]domain.SearchResult, 0, len(top))
	for _, idx := range top {
		if scores[idx] <= RelevanceFloor {
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk:    s.corpus.Chunk(idx),
			Score:    scores[idx],
			Strategy: "semantic",
		})
	}
	return results, nil
}

// dot computes the inner product of two vectors. Mismatched or empty
// vectors score zero rather than panicking.
func dot(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
