package ingest

import (
	"strings"

	"github.com/claimlens/claimlens/engine/domain"
)

// normalizeText collapses runs of whitespace into single spaces and trims
// the ends. Extractors emit PDF text with hard line breaks mid-sentence;
// normalization keeps fingerprinting and keyword matching consistent.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanBatch normalizes every chunk in the batch and drops the ones that
// fail validation. It returns the survivors and the number dropped.
func cleanBatch(chunks []RawChunk) ([]RawChunk, int) {
	kept := make([]RawChunk, 0, len(chunks))
	for _, rc := range chunks {
		rc.Text = normalizeText(rc.Text)
		if len(rc.Text) < domain.MinChunkLength {
			continue
		}
		c := domain.Chunk{SourceID: rc.SourceID, Page: rc.Page, Text: rc.Text}
		if err := domain.ValidateChunk(c); err != nil {
			continue
		}
		kept = append(kept, rc)
	}
	return kept, len(chunks) - len(kept)
}
