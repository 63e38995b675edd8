package extractor

import "strings"

// legacyCategoryAliases maps known plural/variant forms of the legacy fixed
// category set to their canonical singular form (spec.md §3's Open
// Question: category normalization). Unknown categories pass through
// unchanged; no length bound is applied to them.
var legacyCategoryAliases = map[string]string{
	"commitments":    "Commitment",
	"executions":     "Execution",
	"decisions":      "Decision",
	"collaborations": "Collaboration",
	"qualityrisks":   "QualityRisk",
	"quality risks":  "QualityRisk",
	"feedbacks":      "Feedback",
	"changes":        "Change",
	"stakeholders":   "Stakeholder",
}

// normalizeCategory maps a raw LLM-supplied category through
// legacyCategoryAliases (case-insensitively) when autonormalize is enabled,
// else returns it trimmed and unchanged. This function never rejects input,
// and runPhaseB stores its result without checking the category's length.
func normalizeCategory(raw string, autonormalize bool) string {
	trimmed := strings.TrimSpace(raw)
	if !autonormalize {
		return trimmed
	}
	if canonical, ok := legacyCategoryAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
