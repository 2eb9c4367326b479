package policy

import (
	"strings"

	"github.com/claimlens/claimlens/engine/domain"
)

// HighValueThreshold is the claim amount above which large-claim passages
// are treated as critical.
const HighValueThreshold = 30000

// obligationTerms mark passages that impose a requirement on the claimant
// or the insurer.
var obligationTerms = []string{"must", "required", "mandatory", "shall", "prohibited"}

// amountMarkers are phrases that tie a passage to large-claim handling.
// They only matter when the case amount itself exceeds the threshold.
var amountMarkers = []string{"$30,000", "30000", "thirty thousand", "large claim"}

// Critical reports whether a passage is critical for the given case: it
// either contains obligation language, or the claim is high-value and the
// passage references large-claim handling.
func Critical(text string, cc domain.CaseContext) bool {
	lower := strings.ToLower(text)
	for _, term := range obligationTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	if amount, err := domain.ParseAmount(cc.ClaimAmount); err == nil && amount > HighValueThreshold {
		for _, marker := range amountMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}
