/*
Package summary canonicalizes filing synopses. Summaries (from the LLM or
the heuristic fallback) are parsed as "Label: value" lines, merged with
heuristic hints, and emitted in a fixed field order; a quality gate flags
output that callers must replace with the heuristic-only summary.
*/
package summary

import (
	"fmt"
	"strings"

	"edgarwatch/internal/extract"
	"edgarwatch/internal/types"
)

// minSummaryChars is the floor below which a summary is junk.
const minSummaryChars = 80

// maxNotFoundMentions is how many times "not found" may appear before the
// summary is considered evasive.
const maxNotFoundMentions = 1

// lowQualityFragments are navigation-boilerplate substrings that mark a
// summary as having digested page chrome instead of the filing.
var lowQualityFragments = []string{
	"skip to main content",
	"official website of the united states",
	"here's how you know",
	"sec.gov | home",
}

// crossReferenceFragments mark a strategy line that merely points at other
// documents.
var crossReferenceFragments = []string{
	"statement of additional information",
	"should be read in conjunction with",
}

var fieldOrder = []string{"Fund Name", "Ticker", "Expense Ratio", "Strategy", "Custodian"}

// Normalize parses a line-oriented summary, replaces absent or "Unknown"
// fields with heuristic hints, and emits exactly four lines (five when
// crypto) in fixed order.
func Normalize(summaryText string, isCrypto bool, hints types.StructuredFields) string {
	parsed := parseLabeledLines(summaryText)

	hintFor := map[string]string{
		"fund name":     hints.FundName,
		"ticker":        hints.Ticker,
		"expense ratio": hints.ExpenseRatio,
		"strategy":      hints.Strategy,
		"custodian":     hints.Custodian,
	}

	values := make(map[string]string, len(fieldOrder))
	for _, label := range fieldOrder {
		key := strings.ToLower(label)
		value := parsed[key]
		if value == "" || strings.EqualFold(value, extract.UnknownField) {
			value = hintFor[key]
		}
		if value == "" {
			value = extract.UnknownField
		}
		values[key] = value
	}

	strategy := normalizeStrategy(values["strategy"])
	if containsAnyFold(strategy, crossReferenceFragments) && hints.Strategy != "" {
		strategy = normalizeStrategy(hints.Strategy)
	}
	values["strategy"] = strategy

	lines := make([]string, 0, len(fieldOrder))
	for _, label := range fieldOrder {
		if label == "Custodian" && !isCrypto {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, values[strings.ToLower(label)]))
	}
	return strings.Join(lines, "\n")
}

// normalizeStrategy re-applies the two-sentence bound even to pre-formed
// strategy text.
func normalizeStrategy(strategy string) string {
	return extract.FirstStrategySentences(strategy)
}

// IsLowQuality reports whether a summary must be discarded in favor of the
// heuristic-only fallback: too short, contaminated with navigation
// boilerplate, or repeatedly evasive.
func IsLowQuality(summaryText string) bool {
	trimmed := strings.TrimSpace(summaryText)
	if len(trimmed) < minSummaryChars {
		return true
	}
	if containsAnyFold(trimmed, lowQualityFragments) {
		return true
	}
	return strings.Count(strings.ToLower(trimmed), "not found") > maxNotFoundMentions
}

// Fallback builds the deterministic heuristic-only summary. The pipeline
// guarantees a non-empty synopsis, so this never returns "".
func Fallback(fields types.StructuredFields, isCrypto bool) string {
	return Normalize("", isCrypto, fields)
}

// parseLabeledLines decodes "Label: value" lines into a lowercase-label
// map. Unlabeled lines are ignored.
func parseLabeledLines(text string) map[string]string {
	known := make(map[string]struct{}, len(fieldOrder))
	for _, label := range fieldOrder {
		known[strings.ToLower(label)] = struct{}{}
	}

	parsed := make(map[string]string)
	for line := range strings.Lines(text) {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(strings.TrimLeft(label, "-*• ")))
		if _, want := known[key]; !want {
			continue
		}
		if _, dup := parsed[key]; dup {
			continue
		}
		parsed[key] = strings.TrimSpace(value)
	}
	return parsed
}

func containsAnyFold(s string, fragments []string) bool {
	lower := strings.ToLower(s)
	for _, frag := range fragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
