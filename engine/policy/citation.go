package policy

import (
	"fmt"
	"strings"
)

// Citation formats a human-readable source reference for a passage.
// Page numbers are 1-based and only included when known (page > 0).
func Citation(sourceID string, page int) string {
	if sourceID == "" {
		return ""
	}
	if page > 0 {
		return fmt.Sprintf("%s (Page %d)", sourceID, page)
	}
	return sourceID
}

// DocumentURL returns the serving path for a PDF source, or "" when the
// source is not a PDF and cannot be linked.
func DocumentURL(sourceID string) string {
	if !strings.HasSuffix(strings.ToLower(sourceID), ".pdf") {
		return ""
	}
	return "/api/documents/" + sourceID
}
