package keyword

import (
	"reflect"
	"testing"

	"github.com/claimlens/claimlens/engine/corpus"
	"github.com/claimlens/claimlens/engine/domain"
)

func buildSnap(texts ...string) *corpus.Snapshot {
	chunks := make([]domain.Chunk, len(texts))
	for i, txt := range texts {
		chunks[i] = domain.Chunk{SourceID: "policy.pdf", Page: i + 1, Text: txt}
	}
	return corpus.Build(chunks)
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The EV of a Flood Damage claim")
	want := []string{"the", "flood", "damage", "claim"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestSearch_TokenOverlapScore(t *testing.T) {
	snap := buildSnap(
		"Section 3.1: Flood damage claims require photographic evidence within 72 hours.",
		"Clause 2.5: Electric vehicle battery claims require diagnostic reports.",
	)
	results := Search(snap, "flood damage", 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// Both tokens present: 2/2 = 1.0.
	if results[0].Score != 1.0 {
		t.Errorf("score = %v, want 1.0", results[0].Score)
	}
	if results[0].Strategy != "keyword" {
		t.Errorf("strategy = %q, want keyword", results[0].Strategy)
	}
}

func TestSearch_ExactPhrasePriority(t *testing.T) {
	snap := buildSnap(
		"Fire claims need a written report. Large claim review applies above the threshold.",
		"Large amounts and claims are each reviewed separately for review purposes.",
	)
	results := Search(snap, "large claim review", 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != 0 || results[0].Score != 1.0 {
		t.Errorf("exact phrase chunk should rank first with 1.0, got chunk %d score %v",
			results[0].Chunk.ID, results[0].Score)
	}
	if results[1].Score >= 1.0 {
		t.Errorf("partial match should score below 1.0, got %v", results[1].Score)
	}
}

func TestSearch_ZeroMatchExcluded(t *testing.T) {
	snap := buildSnap("Nothing relevant in this passage at all.")
	if got := Search(snap, "flood damage", 5); len(got) != 0 {
		t.Errorf("chunks matching no token must be excluded, got %d results", len(got))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	snap := buildSnap("Flood damage claims require photographic evidence.")
	if got := Search(snap, "", 5); got != nil {
		t.Errorf("empty query must return empty result, got %v", got)
	}
	// Only short tokens.
	if got := Search(snap, "an of to", 5); got != nil {
		t.Errorf("token-free query must return empty result, got %v", got)
	}
}

func TestSearch_StableTieBreak(t *testing.T) {
	snap := buildSnap(
		"flood evidence marker one",
		"flood evidence marker two",
		"flood evidence marker three",
	)
	results := Search(snap, "flood evidence", 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != 0 || results[1].Chunk.ID != 1 {
		t.Errorf("ties must keep chunk order, got %d then %d", results[0].Chunk.ID, results[1].Chunk.ID)
	}
}

func TestMatcher_UsesSnapshotSource(t *testing.T) {
	snap := buildSnap("Flood damage claims require photographic evidence.")
	m := New(staticSource{snap})
	if got := m.Search("flood", 3); len(got) != 1 {
		t.Errorf("expected 1 result through matcher, got %d", len(got))
	}
}

type staticSource struct{ snap *corpus.Snapshot }

func (s staticSource) Snapshot() *corpus.Snapshot { return s.snap }
