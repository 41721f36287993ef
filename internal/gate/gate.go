/*
Package gate decides whether a filing is alert-worthy. 485APOS and 485BPOS
always alert; S-1 alerts only when a configured crypto keyword appears early
in the text; every other form type never alerts.
*/
package gate

import (
	"strings"

	"edgarwatch/internal/types"
)

// keywordSearchLimit bounds the S-1 keyword scan. S-1 filings can be very
// large and the crypto disclosure, when present, appears early.
const keywordSearchLimit = 10_000

// DefaultCryptoKeywords is the stock keyword list for the S-1 gate.
var DefaultCryptoKeywords = []string{
	"Bitcoin",
	"Ethereum",
	"Digital Asset",
	"Spot",
	"Coinbase Custody",
}

// NormalizeFormType upper-cases a form type and strips all whitespace.
func NormalizeFormType(formType string) string {
	return strings.Join(strings.Fields(strings.ToUpper(formType)), "")
}

// Evaluate classifies a filing. Matched keywords preserve the configured
// list's order, not text-occurrence order.
func Evaluate(formType, rawText string, cryptoKeywords []string) types.ClassificationResult {
	switch NormalizeFormType(formType) {
	case "485APOS", "485BPOS":
		return types.ClassificationResult{ShouldAlert: true}
	case "S-1":
	default:
		return types.ClassificationResult{}
	}

	// The limit counts characters, not bytes; never split a rune.
	searchable := rawText
	if len(searchable) > keywordSearchLimit {
		runes := 0
		for i := range searchable {
			if runes == keywordSearchLimit {
				searchable = searchable[:i]
				break
			}
			runes++
		}
	}
	searchable = strings.ToLower(searchable)

	var matched []string
	for _, kw := range cryptoKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(searchable, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}

	return types.ClassificationResult{
		ShouldAlert:     len(matched) > 0,
		MatchedKeywords: matched,
		IsCrypto:        true,
	}
}
