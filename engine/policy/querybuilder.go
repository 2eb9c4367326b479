// Package policy orchestrates multi-strategy passage search: it derives
// queries from a case context, fans them out to the similarity index with a
// keyword fallback, merges and deduplicates the hits, flags critical
// passages, and returns the final ranked slice.
package policy

import (
	"fmt"
	"strings"

	"github.com/claimlens/claimlens/engine/domain"
)

// MaxQueries caps how many derived queries are executed per request.
const MaxQueries = 3

// QueryBuilder derives search queries from a case context. It is an
// external collaborator; ContextQueries is the default implementation.
type QueryBuilder interface {
	Build(cc domain.CaseContext) []string
}

// ContextQueries derives queries from the structured case fields.
type ContextQueries struct{}

// Build returns queries in priority order: claim-type policy, state
// regulations, large-claim documentation when the amount warrants it, and a
// combined catch-all.
func (ContextQueries) Build(cc domain.CaseContext) []string {
	var queries []string
	if cc.ClaimType != "" {
		queries = append(queries, fmt.Sprintf("%s insurance policy", cc.ClaimType))
	}
	if cc.State != "" {
		queries = append(queries, fmt.Sprintf("%s state regulations", cc.State))
	}
	if amount, err := domain.ParseAmount(cc.ClaimAmount); err == nil && amount > HighValueThreshold {
		queries = append(queries, "large claim requirements documentation")
	}

	combined := strings.TrimSpace(strings.Join([]string{cc.ClaimType, cc.State, "insurance claim regulations"}, " "))
	queries = append(queries, combined)
	return queries
}

// fallbackQueries synthesizes generic queries when the builder yields
// nothing usable: claim-type templates if a claim type is known, fixed
// generic terms otherwise.
func fallbackQueries(cc domain.CaseContext) []string {
	if cc.ClaimType != "" {
		return []string{
			fmt.Sprintf("%s insurance policy", cc.ClaimType),
			fmt.Sprintf("%s claim procedure", cc.ClaimType),
			fmt.Sprintf("%s damage assessment", cc.ClaimType),
		}
	}
	return []string{"insurance policy", "claim procedure"}
}
