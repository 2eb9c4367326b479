package precedent

import (
	"time"

	"github.com/claimlens/claimlens/engine/domain"
)

// Analytics summarizes the decision history.
type Analytics struct {
	Total          int            `json:"total"`
	Approved       int            `json:"approved"`
	Rejected       int            `json:"rejected"`
	ApprovalRate   float64        `json:"approval_rate"` // percent
	AvgClaimAmount float64        `json:"avg_claim_amount"`
	TotalAmount    float64        `json:"total_amount"`
	ClaimTypes     map[string]int `json:"claim_types"`
	Recent30Days   int            `json:"recent_30_days"`
}

// Stats computes aggregate analytics over the current store contents.
func (s *Store) Stats(now time.Time) Analytics {
	cases := s.All()
	a := Analytics{Total: len(cases), ClaimTypes: make(map[string]int)}
	cutoff := now.Add(-30 * 24 * time.Hour)

	var amounts int
	for _, c := range cases {
		switch c.Status {
		case domain.StatusApproved:
			a.Approved++
		case domain.StatusRejected:
			a.Rejected++
		}
		if c.ClaimAmount > 0 {
			a.TotalAmount += c.ClaimAmount
			amounts++
		}
		ct := c.ClaimType
		if ct == "" {
			ct = "Unknown"
		}
		a.ClaimTypes[ct]++

		if ts, err := time.Parse(time.RFC3339, c.Timestamp); err == nil && ts.After(cutoff) {
			a.Recent30Days++
		}
	}
	if amounts > 0 {
		a.AvgClaimAmount = a.TotalAmount / float64(amounts)
	}
	if a.Total > 0 {
		a.ApprovalRate = float64(a.Approved) / float64(a.Total) * 100
	}
	return a
}
