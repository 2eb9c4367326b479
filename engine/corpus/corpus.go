// Package corpus holds the immutable chunk store: the ordered sequence of
// indexed policy text chunks plus per-chunk content hashes and dedup
// fingerprints. A snapshot is built once from an ingested chunk set and
// never mutated; reindexing produces a fresh snapshot that is swapped in
// atomically by the similarity index.
package corpus

import (
	"github.com/cespare/xxhash/v2"

	"github.com/claimlens/claimlens/engine/domain"
)

// FingerprintPrefixLen is the number of leading characters hashed to detect
// duplicate passages surfaced by separate queries.
const FingerprintPrefixLen = 200

// Snapshot is an immutable view of the indexed chunks.
type Snapshot struct {
	chunks       []domain.Chunk
	fingerprints []uint64
	sources      int
}

// Build constructs a snapshot from ingested chunks. Invalid chunks are
// skipped; surviving chunks are assigned sequential IDs so that an index
// into the snapshot is also an index into the parallel embedding array.
func Build(chunks []domain.Chunk) *Snapshot {
	s := &Snapshot{}
	seen := make(map[string]bool)
	for _, c := range chunks {
		if err := domain.ValidateChunk(c); err != nil {
			continue
		}
		c.ID = len(s.chunks)
		c.ContentHash = xxhash.Sum64String(c.Text)
		s.chunks = append(s.chunks, c)
		s.fingerprints = append(s.fingerprints, Fingerprint(c.Text))
		if !seen[c.SourceID] {
			seen[c.SourceID] = true
			s.sources++
		}
	}
	return s
}

// Empty returns a snapshot with no chunks.
func Empty() *Snapshot { return &Snapshot{} }

// Len returns the number of chunks in the snapshot.
func (s *Snapshot) Len() int { return len(s.chunks) }

// SourceCount returns the number of distinct source documents.
func (s *Snapshot) SourceCount() int { return s.sources }

// Chunk returns the chunk at index i.
func (s *Snapshot) Chunk(i int) domain.Chunk { return s.chunks[i] }

// Chunks returns the full ordered chunk sequence. Callers must not mutate it.
func (s *Snapshot) Chunks() []domain.Chunk { return s.chunks }

// ChunkFingerprint returns the dedup fingerprint of the chunk at index i.
func (s *Snapshot) ChunkFingerprint(i int) uint64 { return s.fingerprints[i] }

// Fingerprint hashes the first FingerprintPrefixLen characters of text with
// xxhash64. The prefix is counted in runes so multi-byte text fingerprints
// the same way across implementations.
func Fingerprint(text string) uint64 {
	runes := []rune(text)
	if len(runes) > FingerprintPrefixLen {
		text = string(runes[:FingerprintPrefixLen])
	}
	return xxhash.Sum64String(text)
}
