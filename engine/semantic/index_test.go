package semantic

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/claimlens/claimlens/engine/corpus"
	"github.com/claimlens/claimlens/engine/domain"
)

// --- mocks ---

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.vec, m.err
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vec
	}
	return out, nil
}

func buildIndex(t *testing.T, embedder Embedder, vectors [][]float32, texts ...string) *Index {
	t.Helper()
	chunks := make([]domain.Chunk, len(texts))
	for i, txt := range texts {
		chunks[i] = domain.Chunk{SourceID: "policy.pdf", Page: i + 1, Text: txt}
	}
	ix := NewIndex(embedder, nil)
	if err := ix.Swap(corpus.Build(chunks), vectors); err != nil {
		t.Fatalf("swap: %v", err)
	}
	return ix
}

// --- tests ---

func TestSearch_RanksByInnerProduct(t *testing.T) {
	// Query vector (1,0); chunk 1 aligns best, chunk 0 second, chunk 2 below floor.
	ix := buildIndex(t, &mockEmbedder{vec: []float32{1, 0}},
		[][]float32{{0.5, 0.5}, {0.9, 0.1}, {0.1, 0.9}},
		"partially relevant", "highly relevant", "barely relevant")

	results, err := ix.Search(context.Background(), "relevant policy", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above floor, got %d", len(results))
	}
	if results[0].Chunk.ID != 1 || results[1].Chunk.ID != 0 {
		t.Errorf("order = %d,%d, want 1,0", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	if results[0].Strategy != "semantic" {
		t.Errorf("strategy = %q, want semantic", results[0].Strategy)
	}
}

func TestSearch_FloorIsStrict(t *testing.T) {
	// Score exactly 0.3 must be dropped, not de-prioritized.
	ix := buildIndex(t, &mockEmbedder{vec: []float32{1}},
		[][]float32{{0.3}, {0.31}},
		"at the floor", "just above")

	results, err := ix.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != 1 {
		t.Fatalf("expected only the chunk above 0.3, got %+v", results)
	}
}

func TestSearch_TieBreakOnChunkOrder(t *testing.T) {
	ix := buildIndex(t, &mockEmbedder{vec: []float32{1}},
		[][]float32{{0.8}, {0.8}, {0.8}},
		"first", "second", "third")

	results, err := ix.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results[0].Chunk.ID != 0 || results[1].Chunk.ID != 1 {
		t.Errorf("equal scores must keep chunk order, got %d,%d",
			results[0].Chunk.ID, results[1].Chunk.ID)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	ix := NewIndex(&mockEmbedder{vec: []float32{1}}, nil)
	results, err := ix.Search(context.Background(), "anything", 5)
	if err != nil || results != nil {
		t.Errorf("empty index must return nil, nil; got %v, %v", results, err)
	}
}

func TestSearch_EmbedFailure(t *testing.T) {
	ix := buildIndex(t, &mockEmbedder{err: errors.New("backend down")},
		[][]float32{{1}}, "chunk")

	results, err := ix.Search(context.Background(), "q", 5)
	if len(results) != 0 {
		t.Errorf("embed failure must yield no results, got %d", len(results))
	}
	if err == nil {
		t.Error("embed failure should be reported for diagnostics")
	}
}

func TestSwap_RejectsMismatchedVectors(t *testing.T) {
	ix := NewIndex(&mockEmbedder{vec: []float32{1}}, nil)
	snap := corpus.Build([]domain.Chunk{
		{SourceID: "a.pdf", Text: "first chunk text"},
		{SourceID: "a.pdf", Text: "second chunk text"},
	})
	if err := ix.Swap(snap, [][]float32{{1}}); err == nil {
		t.Fatal("expected error for vector/chunk length mismatch")
	}
	// Nil vectors are allowed: semantic search disabled, keyword fallback serves.
	if err := ix.Swap(snap, nil); err != nil {
		t.Fatalf("nil vectors should be accepted: %v", err)
	}
	if ix.Ready() {
		t.Error("index without vectors must not report ready")
	}
}

func TestTopK_MatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(400)
		k := 1 + rng.Intn(20)
		scores := make([]float64, n)
		for i := range scores {
			// Coarse buckets force plenty of ties.
			scores[i] = float64(rng.Intn(10)) / 10
		}

		got := topK(scores, k)

		want := make([]int, n)
		for i := range want {
			want[i] = i
		}
		sort.Slice(want, func(i, j int) bool {
			if scores[want[i]] != scores[want[j]] {
				return scores[want[i]] > scores[want[j]]
			}
			return want[i] < want[j]
		})
		if k > n {
			k = n
		}
		if !reflect.DeepEqual(got, want[:k]) {
			t.Fatalf("trial %d (n=%d k=%d): topK = %v, want %v", trial, n, k, got, want[:k])
		}
	}
}

func TestDot(t *testing.T) {
	if got := dot([]float32{1, 2}, []float32{3, 4}); got != 11 {
		t.Errorf("dot = %v, want 11", got)
	}
	if got := dot([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths must score 0, got %v", got)
	}
}
