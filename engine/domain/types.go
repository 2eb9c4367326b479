// Package domain defines core domain types, constants, and validation for the
// ClaimLens engine pipeline. It acts as the validation gate at pipeline entry points.
package domain

// Chunk is a unit of indexed policy text with source metadata. Chunks are
// produced by an external ingestion step and immutable once indexed; the
// chunk store may only be rebuilt wholesale, never patched in place.
type Chunk struct {
	// ID is the stable index of the chunk within the current snapshot.
	ID int `json:"id"`
	// SourceID identifies the originating document (e.g. "flood_policy.pdf").
	SourceID string `json:"source_id"`
	// Page is the 1-based page number within the source. 0 means unknown.
	Page int `json:"page,omitempty"`
	// Text is the chunk content.
	Text string `json:"text"`
	// ContentHash is a 64-bit hash of the full text, assigned at index build.
	ContentHash uint64 `json:"content_hash,omitempty"`
}

// SearchResult is a single passage hit produced by one search strategy for
// one query. Results are never persisted; they are merged across queries and
// deduplicated by content fingerprint.
type SearchResult struct {
	Chunk    Chunk   `json:"chunk"`
	Score    float64 `json:"relevance_score"`
	Critical bool    `json:"critical"`
	Citation string  `json:"citation,omitempty"`
	PDFURL   string  `json:"pdf_url,omitempty"`
	// Strategy records which matcher produced the hit ("semantic" or "keyword").
	Strategy string `json:"strategy,omitempty"`
}

// CaseContext is the structured description of an incoming case, built by an
// external parser. All fields are optional; absence is the empty string.
type CaseContext struct {
	ClaimType    string `json:"claim_type,omitempty"`
	State        string `json:"state,omitempty"`
	ClaimAmount  string `json:"claim_amount,omitempty"`
	DamageType   string `json:"damage_type,omitempty"`
	PolicyType   string `json:"policy_type,omitempty"`
	IncidentDate string `json:"incident_date,omitempty"`
}

// ClaimStatus is the recorded outcome of a decided case.
type ClaimStatus string

const (
	StatusApproved ClaimStatus = "approved"
	StatusRejected ClaimStatus = "rejected"
)

// ValidStatuses is the set of recognised decision statuses.
var ValidStatuses = map[ClaimStatus]bool{
	StatusApproved: true,
	StatusRejected: true,
}

// PrecedentCase is a previously recorded case decision used for
// similarity-based lookup.
type PrecedentCase struct {
	ID             int64       `json:"id"`
	CaseID         string      `json:"case_id"`
	ClaimType      string      `json:"claim_type"`
	State          string      `json:"state"`
	ClaimAmount    float64     `json:"claim_amount"`
	Status         ClaimStatus `json:"status"`
	DecisionReason string      `json:"decision_reason,omitempty"`
	KeyFactors     []string    `json:"key_factors,omitempty"`
	// Timestamp is RFC 3339; recency ordering relies on its lexicographic order.
	Timestamp string `json:"timestamp"`
}

// ScoredPrecedent is a precedent case with its query similarity attached.
type ScoredPrecedent struct {
	PrecedentCase
	SimilarityScore float64 `json:"similarity_score"`
}
