// Package keyword implements the lexical fallback matcher. It scores chunks
// by query-token overlap and is used whenever the similarity index is
// unavailable or returns nothing above its relevance floor. It is the
// correctness fallback: it never fails, it only returns fewer results.
package keyword

import (
	"sort"
	"strings"

	"github.com/claimlens/claimlens/engine/corpus"
	"github.com/claimlens/claimlens/engine/domain"
)

// MinTokenLength excludes short tokens; one- and two-letter words are noise.
const MinTokenLength = 2

// SnapshotSource provides the chunk snapshot to search. The similarity index
// implements this so both strategies always observe the same snapshot.
type SnapshotSource interface {
	Snapshot() *corpus.Snapshot
}

// Matcher scores chunks by lexical overlap with the query.
type Matcher struct {
	source SnapshotSource
}

// New creates a Matcher reading chunks from the given source.
func New(source SnapshotSource) *Matcher {
	return &Matcher{source: source}
}

// Tokenize splits a query into distinct lowercase tokens longer than
// MinTokenLength, preserving first-occurrence order.
func Tokenize(query string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > MinTokenLength && !seen[w] {
			seen[w] = true
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// Search returns the top k chunks by lexical score, descending, with ties
// broken by original chunk order. A verbatim (case-insensitive) occurrence
// of the whole query scores 1.0; otherwise the score is the fraction of
// distinct query tokens present in the chunk. Chunks matching no token are
// excluded entirely. An empty or token-free query yields an empty result,
// never an error.
func (m *Matcher) Search(query string, k int) []domain.SearchResult {
	snap := m.source.Snapshot()
	return Search(snap, query, k)
}

// Search runs the lexical match against an explicit snapshot.
func Search(snap *corpus.Snapshot, query string, k int) []domain.SearchResult {
	if snap == nil || snap.Len() == 0 || k <= 0 {
		return nil
	}
	queryLower := strings.ToLower(strings.TrimSpace(query))
	tokens := Tokenize(query)
	if queryLower == "" || len(tokens) == 0 {
		return nil
	}

	var results []domain.SearchResult
	for i := 0; i < snap.Len(); i++ {
		c := snap.Chunk(i)
		textLower := strings.ToLower(c.Text)

		var score float64
		if strings.Contains(textLower, queryLower) {
			// Exact-phrase priority.
			score = 1.0
		} else {
			matches := 0
			for _, tok := range tokens {
				if strings.Contains(textLower, tok) {
					matches++
				}
			}
			if matches == 0 {
				continue
			}
			score = float64(matches) / float64(len(tokens))
		}

		results = append(results, domain.SearchResult{
			Chunk:    c,
			Score:    score,
			Strategy: "keyword",
		})
	}

	// Stable sort keeps chunk order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
