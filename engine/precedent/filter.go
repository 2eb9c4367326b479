package precedent

import (
	"sort"
	"strings"

	"github.com/claimlens/claimlens/engine/domain"
)

// Query filters and pages the precedent list for browsing, independent of
// similarity search.
type Query struct {
	Status    domain.ClaimStatus // empty = any
	ClaimType string             // empty = any
	Term      string             // case-insensitive match over id, type, state, reason, factors
	SortBy    string             // "timestamp" (default), "case_id", "claim_amount"
	Ascending bool
	Page      int // 1-based
	PerPage   int
}

// Find applies the query to the current store contents and returns the
// requested page plus the total match count before pagination.
func (s *Store) Find(q Query) ([]domain.PrecedentCase, int) {
	matched := filter(s.All(), q)
	total := len(matched)
	sortCases(matched, q)

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return nil, total
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total
}

func filter(cases []domain.PrecedentCase, q Query) []domain.PrecedentCase {
	term := strings.ToLower(q.Term)
	var out []domain.PrecedentCase
	for _, c := range cases {
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		if q.ClaimType != "" && c.ClaimType != q.ClaimType {
			continue
		}
		if term != "" && !matchesTerm(c, term) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesTerm(c domain.PrecedentCase, term string) bool {
	if strings.Contains(strings.ToLower(c.CaseID), term) ||
		strings.Contains(strings.ToLower(c.ClaimType), term) ||
		strings.Contains(strings.ToLower(c.State), term) ||
		strings.Contains(strings.ToLower(c.DecisionReason), term) {
		return true
	}
	for _, f := range c.KeyFactors {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func sortCases(cases []domain.PrecedentCase, q Query) {
	less := func(a, b domain.PrecedentCase) bool {
		switch q.SortBy {
		case "case_id":
			return a.CaseID < b.CaseID
		case "claim_amount":
			return a.ClaimAmount < b.ClaimAmount
		default:
			return a.Timestamp < b.Timestamp
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		if q.Ascending {
			return less(cases[i], cases[j])
		}
		return less(cases[j], cases[i])
	})
}
