package policy

import (
	"context"
	"log/slog"
	"sort"

	"github.com/claimlens/claimlens/engine/corpus"
	"github.com/claimlens/claimlens/engine/domain"
	"github.com/claimlens/claimlens/pkg/fn"
)

const (
	// PerQueryLimit is the number of hits kept from each derived query
	// before the merged set is deduplicated and re-ranked.
	PerQueryLimit = 3

	// FinalLimit is the size of the returned result slice.
	FinalLimit = 5
)

// SemanticSearcher ranks passages by embedding similarity. An error or an
// empty result triggers the keyword fallback for that query.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
	Len() int
	DocumentCount() int
}

// KeywordSearcher ranks passages by token overlap. It never fails; an
// unmatched query yields an empty slice.
type KeywordSearcher interface {
	Search(query string, k int) []domain.SearchResult
}

// SearchInfo summarizes how a search request was executed.
type SearchInfo struct {
	QueriesUsed       []string `json:"queries_used"`
	DocumentsSearched int      `json:"documents_searched"`
	ResultsFound      int      `json:"results_found"`
	CriticalCount     int      `json:"critical_count"`
}

// Service runs the retrieval flow: derive queries, search each with
// semantic-then-keyword strategy, merge, dedupe, flag, rank, truncate.
type Service struct {
	sem SemanticSearcher
	kw  KeywordSearcher
	qb  QueryBuilder
	log *slog.Logger
}

// NewService wires a search service. A nil builder falls back to
// ContextQueries.
func NewService(sem SemanticSearcher, kw KeywordSearcher, qb QueryBuilder, log *slog.Logger) *Service {
	if qb == nil {
		qb = ContextQueries{}
	}
	return &Service{sem: sem, kw: kw, qb: qb, log: log}
}

// SearchPolicies retrieves the passages most relevant to a case. Results
// are deduplicated across queries (first hit wins), critical passages sort
// first, and at most FinalLimit results are returned.
func (s *Service) SearchPolicies(ctx context.Context, cc domain.CaseContext) ([]domain.SearchResult, SearchInfo) {
	queries := s.qb.Build(cc)
	if len(queries) == 0 {
		queries = fallbackQueries(cc)
	}
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}

	info := SearchInfo{QueriesUsed: queries}
	if s.sem.Len() == 0 {
		s.log.WarnContext(ctx, "policy search on empty index")
		return []domain.SearchResult{}, info
	}
	info.DocumentsSearched = s.sem.DocumentCount()

	// Queries run concurrently, but the per-query hits are merged in
	// query order so dedup keeps the same winner on every run.
	perQuery := fn.ParMap(queries, len(queries), func(q string) []domain.SearchResult {
		return s.searchOne(ctx, q)
	})

	var merged []domain.SearchResult
	seen := make(map[uint64]struct{})
	for _, hits := range perQuery {
		for _, hit := range hits {
			fp := corpus.Fingerprint(hit.Chunk.Text)
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			hit.Critical = Critical(hit.Chunk.Text, cc)
			hit.Citation = Citation(hit.Chunk.SourceID, hit.Chunk.Page)
			hit.PDFURL = DocumentURL(hit.Chunk.SourceID)
			merged = append(merged, hit)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Critical != merged[j].Critical {
			return merged[i].Critical
		}
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > FinalLimit {
		merged = merged[:FinalLimit]
	}

	info.ResultsFound = len(merged)
	for _, r := range merged {
		if r.Critical {
			info.CriticalCount++
		}
	}
	s.log.InfoContext(ctx, "policy search complete",
		"queries", len(queries),
		"results", info.ResultsFound,
		"critical", info.CriticalCount)
	return merged, info
}

// searchOne runs a single query, preferring the similarity index and
// falling back to keyword matching when it fails or finds nothing.
func (s *Service) searchOne(ctx context.Context, query string) []domain.SearchResult {
	hits, err := s.sem.Search(ctx, query, PerQueryLimit)
	if err != nil {
		s.log.WarnContext(ctx, "semantic search failed, using keyword fallback",
			"query", query, "error", err)
		return s.kw.Search(query, PerQueryLimit)
	}
	if len(hits) == 0 {
		return s.kw.Search(query, PerQueryLimit)
	}
	return hits
}

// SearchRaw executes one query with the named strategy ("semantic" or
// "keyword") and no fallback. It backs the diagnostic search endpoint.
func (s *Service) SearchRaw(ctx context.Context, query, strategy string, k int) ([]domain.SearchResult, error) {
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = PerQueryLimit
	}
	switch strategy {
	case "keyword":
		return s.kw.Search(query, k), nil
	default:
		return s.sem.Search(ctx, query, k)
	}
}
