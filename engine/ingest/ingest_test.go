package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/claimlens/claimlens/engine/semantic"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func testIndexer(emb semantic.Embedder) (*Indexer, *semantic.Index) {
	log := slog.New(slog.DiscardHandler)
	idx := semantic.NewIndex(emb, log)
	return NewIndexer(idx, emb, log), idx
}

func validText(tag string) string {
	return "Policyholders " + tag + " file written notice of loss within thirty days."
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("  line one\n\tline   two  ")
	if got != "line one line two" {
		t.Errorf("normalizeText = %q", got)
	}
}

func TestClean_DropsInvalidChunks(t *testing.T) {
	batch := ChunkBatch{
		BatchID: "b1",
		Chunks: []RawChunk{
			{SourceID: "policy.pdf", Page: 1, Text: validText("must")},
			{SourceID: "policy.pdf", Page: 2, Text: "too short"},
			{SourceID: "", Page: 3, Text: validText("shall")},
		},
	}
	res := Clean(context.Background(), batch)
	cleaned, err := res.Unwrap()
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(cleaned.Chunks) != 1 {
		t.Fatalf("kept %d chunks, want 1", len(cleaned.Chunks))
	}
}

func TestClean_EmptyBatchFails(t *testing.T) {
	batch := ChunkBatch{BatchID: "b1", Chunks: []RawChunk{{SourceID: "a.pdf", Text: "short"}}}
	if _, err := Clean(context.Background(), batch).Unwrap(); err == nil {
		t.Fatal("want error when every chunk is dropped")
	}
}

func TestIndexBatch_RebuildsIndex(t *testing.T) {
	emb := &fakeEmbedder{}
	ix, idx := testIndexer(emb)

	batch := ChunkBatch{
		BatchID: "b1",
		Source:  "policy.pdf",
		Chunks: []RawChunk{
			{SourceID: "policy.pdf", Page: 1, Text: validText("must")},
			{SourceID: "policy.pdf", Page: 2, Text: validText("shall")},
		},
	}
	summary, err := ix.IndexBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	if summary.Chunks != 2 || summary.Sources != 1 || !summary.Semantic {
		t.Errorf("summary = %+v", summary)
	}
	if idx.Len() != 2 || !idx.Ready() {
		t.Errorf("index len=%d ready=%v, want 2/true", idx.Len(), idx.Ready())
	}
}

func TestIndexBatch_AccumulatesAcrossBatches(t *testing.T) {
	ix, idx := testIndexer(&fakeEmbedder{})
	ctx := context.Background()

	first := ChunkBatch{BatchID: "b1", Chunks: []RawChunk{{SourceID: "a.pdf", Page: 1, Text: validText("must")}}}
	second := ChunkBatch{BatchID: "b2", Chunks: []RawChunk{{SourceID: "b.pdf", Page: 1, Text: validText("shall")}}}

	if _, err := ix.IndexBatch(ctx, first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	summary, err := ix.IndexBatch(ctx, second)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if summary.Chunks != 2 || summary.Sources != 2 {
		t.Errorf("summary = %+v, want 2 chunks across 2 sources", summary)
	}
	if idx.DocumentCount() != 2 {
		t.Errorf("DocumentCount = %d, want 2", idx.DocumentCount())
	}
}

func TestIndexBatch_EmbedFailureDegradesToKeyword(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("model offline")}
	ix, idx := testIndexer(emb)

	batch := ChunkBatch{BatchID: "b1", Chunks: []RawChunk{{SourceID: "a.pdf", Page: 1, Text: validText("must")}}}
	summary, err := ix.IndexBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	if summary.Semantic {
		t.Error("summary.Semantic = true, want degraded rebuild")
	}
	if idx.Len() != 1 {
		t.Errorf("index len = %d, want chunks indexed for keyword search", idx.Len())
	}
	if idx.Ready() {
		t.Error("index reports semantic ready without vectors")
	}
}

func TestEmbedAll_Batches(t *testing.T) {
	emb := &fakeEmbedder{}
	ix, _ := testIndexer(emb)

	chunks := make([]RawChunk, EmbedBatchSize+5)
	for i := range chunks {
		chunks[i] = RawChunk{SourceID: "big.pdf", Page: i + 1, Text: validText(strings.Repeat("x", i%7+1))}
	}
	if _, err := ix.IndexBatch(context.Background(), ChunkBatch{BatchID: "b1", Chunks: chunks}); err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	if emb.calls != 2 {
		t.Errorf("EmbedBatch called %d times, want 2", emb.calls)
	}
}
