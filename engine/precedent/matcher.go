package precedent

import (
	"context"
	"sort"
	"strings"

	"github.com/claimlens/claimlens/engine/domain"
)

// SimilarityFloor is deliberately lower than the policy relevance floor:
// precedent data is sparse and a weaker match is still worth surfacing.
const SimilarityFloor = 0.2

// Claim-amount bucket boundaries for the query text.
const (
	highValueAmount   = 50000
	mediumValueAmount = 20000
)

// FindSimilar returns up to k precedents ranked by inner-product similarity
// to a query built from the case context, each with its score attached.
// Results at or below SimilarityFloor are dropped. On any failure in the
// embedding/similarity path the k most recent precedents are returned
// instead (score zero); an empty store yields an empty slice.
func (s *Store) FindSimilar(ctx context.Context, cc domain.CaseContext, k int) []domain.ScoredPrecedent {
	snap := s.snap.Load()
	if len(snap.cases) == 0 || k <= 0 {
		return nil
	}
	if snap.vectors == nil {
		return s.mostRecent(snap, k)
	}

	query := BuildQuery(cc)
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("precedent query embed failed, using recency fallback", "err", err)
		return s.mostRecent(snap, k)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(snap.cases))
	for i, v := range snap.vectors {
		ranked[i] = scored{idx: i, score: innerProduct(qv, v)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	var results []domain.ScoredPrecedent
	for _, r := range ranked {
		if r.score <= SimilarityFloor {
			continue
		}
		results = append(results, domain.ScoredPrecedent{
			PrecedentCase:   snap.cases[r.idx],
			SimilarityScore: r.score,
		})
		if len(results) == k {
			break
		}
	}
	return results
}

// mostRecent returns min(k, len) precedents ordered by timestamp
// descending. Timestamps come from one consistent RFC 3339 clock, so
// lexicographic comparison is sufficient.
func (s *Store) mostRecent(snap *snapshot, k int) []domain.ScoredPrecedent {
	idx := make([]int, len(snap.cases))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return snap.cases[idx[a]].Timestamp > snap.cases[idx[b]].Timestamp
	})
	if k > len(idx) {
		k = len(idx)
	}
	results := make([]domain.ScoredPrecedent, k)
	for i := 0; i < k; i++ {
		results[i] = domain.ScoredPrecedent{PrecedentCase: snap.cases[idx[i]]}
	}
	return results
}

// BuildQuery assembles the similarity query from claim type, state, damage
// type, and a coarse claim-amount bucket. An unparseable amount silently
// omits the bucket term.
func BuildQuery(cc domain.CaseContext) string {
	parts := make([]string, 0, 4)
	if cc.ClaimType != "" {
		parts = append(parts, cc.ClaimType)
	}
	if cc.State != "" {
		parts = append(parts, cc.State)
	}
	if cc.DamageType != "" {
		parts = append(parts, cc.DamageType)
	}
	if amount, err := domain.ParseAmount(cc.ClaimAmount); err == nil {
		switch {
		case amount > highValueAmount:
			parts = append(parts, "high value claim")
		case amount > mediumValueAmount:
			parts = append(parts, "medium value claim")
		}
	}
	return strings.Join(parts, " ")
}

func innerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
