package domain

import "strings"

// MinChunkLength is the minimum number of significant characters a chunk
// must carry to be worth indexing. Shorter fragments are extraction noise.
const MinChunkLength = 30

// ValidateChunk checks a chunk before indexing.
func ValidateChunk(c Chunk) error {
	if strings.TrimSpace(c.Text) == "" {
		return NewValidationError("text", "", ErrInvalidChunk)
	}
	if c.SourceID == "" {
		return NewValidationError("source_id", "", ErrInvalidChunk)
	}
	return nil
}

// ValidatePrecedent checks a precedent record before it is appended.
func ValidatePrecedent(p PrecedentCase) error {
	if p.CaseID == "" {
		return NewValidationError("case_id", "", ErrInvalidPrecedent)
	}
	if p.ClaimType == "" {
		return NewValidationError("claim_type", "", ErrInvalidPrecedent)
	}
	if !ValidStatuses[p.Status] {
		return NewValidationError("status", string(p.Status), ErrInvalidStatus)
	}
	return nil
}
