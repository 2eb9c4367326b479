package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/claimlens/claimlens/engine/domain"
	"github.com/claimlens/claimlens/engine/ingest"
	"github.com/claimlens/claimlens/engine/policy"
	"github.com/claimlens/claimlens/engine/precedent"
	"github.com/claimlens/claimlens/engine/semantic"
	"github.com/claimlens/claimlens/pkg/metrics"
	"github.com/claimlens/claimlens/pkg/natsutil"
)

// PrecedentSavedSubject announces newly recorded precedents.
const PrecedentSavedSubject = "claimlens.precedent.saved"

// api holds the wired engine components behind the HTTP surface.
type api struct {
	searcher   *policy.Service
	precedents *precedent.Store
	indexer    *ingest.Indexer
	index      *semantic.Index
	nc         *nats.Conn
	docsDir    string
	logger     *slog.Logger

	analyzeTotal   *metrics.Counter
	analyzeSeconds *metrics.Histogram
	indexTotal     *metrics.Counter
	registry       *metrics.Registry
}

func newAPI(searcher *policy.Service, precedents *precedent.Store, indexer *ingest.Indexer,
	index *semantic.Index, nc *nats.Conn, docsDir string, reg *metrics.Registry, logger *slog.Logger) *api {
	return &api{
		searcher:       searcher,
		precedents:     precedents,
		indexer:        indexer,
		index:          index,
		nc:             nc,
		docsDir:        docsDir,
		logger:         logger,
		analyzeTotal:   reg.Counter("claimlens_analyze_total", "Case analyses served"),
		analyzeSeconds: reg.Histogram("claimlens_analyze_seconds", "Case analysis latency", nil),
		indexTotal:     reg.Counter("claimlens_index_batches_total", "Chunk batches indexed over HTTP"),
		registry:       reg,
	}
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("POST /api/analyze-case", a.handleAnalyzeCase)
	mux.HandleFunc("POST /api/test-search", a.handleTestSearch)
	mux.HandleFunc("POST /api/index", a.handleIndex)
	mux.HandleFunc("GET /api/precedents", a.handleListPrecedents)
	mux.HandleFunc("POST /api/precedents", a.handleSavePrecedent)
	mux.HandleFunc("POST /api/precedents/search", a.handleSearchPrecedents)
	mux.HandleFunc("GET /api/precedents/analytics", a.handleAnalytics)
	mux.HandleFunc("GET /api/documents/{file}", a.handleDocument)
	mux.Handle("GET /metrics", a.registry.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"chunks":         a.index.Len(),
		"documents":      a.index.DocumentCount(),
		"semantic_ready": a.index.Ready(),
		"precedents":     a.precedents.Len(),
	})
}

// AnalyzeResponse is the JSON response for POST /api/analyze-case.
type AnalyzeResponse struct {
	CaseContext      domain.CaseContext       `json:"case_context"`
	Policies         []domain.SearchResult    `json:"policies"`
	Precedents       []domain.ScoredPrecedent `json:"precedents"`
	SuggestedActions []string                 `json:"suggested_actions"`
	SearchInfo       policy.SearchInfo        `json:"search_info"`
}

func (a *api) handleAnalyzeCase(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var cc domain.CaseContext
	if err := json.NewDecoder(r.Body).Decode(&cc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, info := a.searcher.SearchPolicies(r.Context(), cc)
	similar := a.precedents.FindSimilar(r.Context(), cc, 3)
	actions := suggestedActions(cc, similar, results)

	a.analyzeTotal.Inc()
	a.analyzeSeconds.Since(start)

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		CaseContext:      cc,
		Policies:         results,
		Precedents:       similar,
		SuggestedActions: actions,
		SearchInfo:       info,
	})
}

// TestSearchRequest is the JSON body for POST /api/test-search.
type TestSearchRequest struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

func (a *api) handleTestSearch(w http.ResponseWriter, r *http.Request) {
	var req TestSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := a.searcher.SearchRaw(r.Context(), req.Query, req.Strategy, req.TopK)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		a.logger.Error("test search failed", "err", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": results,
	})
}

func (a *api) handleIndex(w http.ResponseWriter, r *http.Request) {
	var batch ingest.ChunkBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if batch.BatchID == "" {
		batch.BatchID = uuid.NewString()
	}

	summary, err := a.indexer.IndexBatch(r.Context(), batch)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.indexTotal.Inc()
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) handleListPrecedents(w http.ResponseWriter, r *http.Request) {
	q := precedent.Query{
		Status:    domain.ClaimStatus(r.URL.Query().Get("status")),
		ClaimType: r.URL.Query().Get("claim_type"),
		Term:      r.URL.Query().Get("q"),
		SortBy:    r.URL.Query().Get("sort"),
		Ascending: r.URL.Query().Get("order") == "asc",
	}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	cases, total := a.precedents.Find(q)
	writeJSON(w, http.StatusOK, map[string]any{
		"precedents": cases,
		"total":      total,
	})
}

func (a *api) handleSavePrecedent(w http.ResponseWriter, r *http.Request) {
	var p domain.PrecedentCase
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.CaseID == "" {
		p.CaseID = "CASE-" + uuid.NewString()[:8]
	}

	saved, err := a.precedents.Add(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if a.nc != nil {
		if err := natsutil.Publish(r.Context(), a.nc, PrecedentSavedSubject, saved); err != nil {
			a.logger.Warn("precedent saved event publish failed", "err", err)
		}
	}
	writeJSON(w, http.StatusCreated, saved)
}

// PrecedentSearchRequest is the JSON body for POST /api/precedents/search.
type PrecedentSearchRequest struct {
	domain.CaseContext
	TopK int `json:"top_k,omitempty"`
}

func (a *api) handleSearchPrecedents(w http.ResponseWriter, r *http.Request) {
	var req PrecedentSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 3
	}

	similar := a.precedents.FindSimilar(r.Context(), req.CaseContext, req.TopK)
	writeJSON(w, http.StatusOK, map[string]any{
		"precedents": similar,
		"total":      len(similar),
	})
}

func (a *api) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.precedents.Stats(time.Now()))
}

func (a *api) handleDocument(w http.ResponseWriter, r *http.Request) {
	// Strip any path components so requests cannot escape the documents dir.
	name := filepath.Base(r.PathValue("file"))
	http.ServeFile(w, r, filepath.Join(a.docsDir, name))
}

// suggestedActions derives reviewer guidance from the analysis outcome.
func suggestedActions(cc domain.CaseContext, precedents []domain.ScoredPrecedent, policies []domain.SearchResult) []string {
	var actions []string

	if amount, err := domain.ParseAmount(cc.ClaimAmount); err == nil && amount > policy.HighValueThreshold {
		actions = append(actions, "High-value claim: additional documentation required")
	}

	var approved, rejected int
	for _, p := range precedents {
		switch p.Status {
		case domain.StatusApproved:
			approved++
		case domain.StatusRejected:
			rejected++
		}
	}
	if rejected > approved && rejected > 0 {
		actions = append(actions, "Similar cases were frequently rejected - review carefully")
	} else if approved > rejected && approved > 0 {
		actions = append(actions, "Similar cases were mostly approved")
	}

	var critical int
	for _, p := range policies {
		if p.Critical {
			critical++
		}
	}
	if critical > 0 {
		actions = append(actions, fmt.Sprintf("%d critical policies apply to this case", critical))
	}

	if len(actions) == 0 {
		actions = append(actions, "Review case details and attached documents")
	}
	return actions
}
