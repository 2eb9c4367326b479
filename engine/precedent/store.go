// Package precedent implements similarity lookup over past case decisions.
// The store is append-only from the caller's point of view; every append
// triggers a full re-embed of the whole store, so the vector snapshot is
// always exactly parallel to the case list. When embeddings are unavailable
// the matcher falls back to recency ordering.
package precedent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claimlens/claimlens/engine/domain"
	"github.com/claimlens/claimlens/engine/semantic"
)

// Repo is the persistence collaborator. The engine owns no file format;
// whatever the repo writes only has to round-trip the PrecedentCase fields.
type Repo interface {
	Load(ctx context.Context) ([]domain.PrecedentCase, error)
	Save(ctx context.Context, p domain.PrecedentCase) (int64, error)
}

// snapshot pairs the case list with its parallel embeddings. vectors is nil
// when embedding failed; searches then use the recency fallback until the
// next successful re-embed.
type snapshot struct {
	cases   []domain.PrecedentCase
	vectors [][]float32
}

// Store holds the materialized precedent list and its derived embeddings.
type Store struct {
	repo     Repo
	embedder semantic.Embedder
	logger   *slog.Logger

	mu   sync.Mutex // serializes appends and re-embeds
	snap atomic.Pointer[snapshot]
}

// NewStore creates an empty Store.
func NewStore(repo Repo, embedder semantic.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{repo: repo, embedder: embedder, logger: logger}
	s.snap.Store(&snapshot{})
	return s
}

// Load reads all persisted precedents and embeds them. A load failure is an
// error; an embed failure is tolerated and leaves the store in recency-only
// mode.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cases, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("precedent: load: %w", err)
	}
	s.swapReembed(ctx, cases)
	return nil
}

// Add validates, persists, and appends a precedent, then re-embeds the
// whole store before returning. The stored record (with assigned ID and
// timestamp) is returned.
func (s *Store) Add(ctx context.Context, p domain.PrecedentCase) (domain.PrecedentCase, error) {
	if err := domain.ValidatePrecedent(p); err != nil {
		return domain.PrecedentCase{}, err
	}
	if p.Timestamp == "" {
		p.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.repo.Save(ctx, p)
	if err != nil {
		return domain.PrecedentCase{}, fmt.Errorf("precedent: save: %w", err)
	}
	p.ID = id

	prev := s.snap.Load()
	cases := make([]domain.PrecedentCase, len(prev.cases), len(prev.cases)+1)
	copy(cases, prev.cases)
	cases = append(cases, p)

	// Full re-embed: stale embeddings after an append are a correctness
	// bug, so a partial/incremental update is never attempted.
	s.swapReembed(ctx, cases)
	return p, nil
}

// swapReembed embeds every case and publishes the new snapshot. Must hold mu.
func (s *Store) swapReembed(ctx context.Context, cases []domain.PrecedentCase) {
	next := &snapshot{cases: cases}
	if s.embedder != nil && len(cases) > 0 {
		texts := make([]string, len(cases))
		for i, c := range cases {
			texts[i] = embedText(c)
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil || len(vectors) != len(cases) {
			s.logger.Warn("precedent re-embed failed, serving recency fallback", "cases", len(cases), "err", err)
		} else {
			next.vectors = vectors
		}
	}
	s.snap.Store(next)
}

// embedText is the canonical embedding text for a precedent case.
func embedText(p domain.PrecedentCase) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", p.ClaimType, p.State, p.DecisionReason))
}

// All returns the current case list, newest-appended last. Callers must not
// mutate the returned slice.
func (s *Store) All() []domain.PrecedentCase {
	return s.snap.Load().cases
}

// Len returns the number of stored precedents.
func (s *Store) Len() int { return len(s.snap.Load().cases) }

// Ready reports whether similarity search is currently possible.
func (s *Store) Ready() bool {
	snap := s.snap.Load()
	return len(snap.cases) > 0 && snap.vectors != nil
}
