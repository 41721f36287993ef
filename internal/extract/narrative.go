/*
Package extract turns cleaned filing text into a compact narrative passage
and a set of best-effort structured fields. Everything here is pure string
heuristics: no I/O, safe for concurrent use.
*/
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultNarrativeMaxChars bounds the narrative passed to summarization.
const DefaultNarrativeMaxChars = 25_000

// Narrative-selection tuning. These weights are empirically tuned; keep
// them as-is rather than re-deriving.
const (
	windowBeforeMarker  = 1_500
	windowAfterMarker   = 5_000
	maxMarkerWindows    = 8
	minSentenceChars    = 50
	maxSentenceChars    = 600
	maxDigitRatio       = 0.25
	keywordScore        = 2.0
	lengthScoreDivisor  = 260.0
	maxLengthScore      = 1.0
	maxScoredSentences  = 40
	minNarrativeChars   = 1_200
	fallbackSourceScale = 2
)

// boilerplatePatterns are government-site navigation phrases stripped
// before any narrative work.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)SEC\.gov\s*\|\s*Home`),
	regexp.MustCompile(`(?i)Skip to main content`),
	regexp.MustCompile(`(?i)An official website of the United States government`),
	regexp.MustCompile(`(?i)Here's how you know`),
	regexp.MustCompile(`(?i)Official websites use \.gov`),
	regexp.MustCompile(`(?i)A \.gov website belongs to an official government organization in the United States`),
}

// markerPhrases locate topically relevant regions of a filing.
var markerPhrases = []string{
	"principal investment strateg",
	"investment objective",
	"fees and expenses",
	"summary prospectus",
	"principal risks",
}

// narrativeKeywords bias sentence selection toward prospectus narrative.
var narrativeKeywords = []string{
	"fund",
	"invest",
	"strategy",
	"objective",
	"expense",
	"fee",
	"index",
	"portfolio",
	"shares",
	"etf",
	"risk",
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// CleanBoilerplate strips navigation boilerplate and collapses repeated
// whitespace, preserving all other content in order.
func CleanBoilerplate(text string) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	for _, re := range boilerplatePatterns {
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

// ExtractNarrative reduces raw filing text to a compact, readable passage:
// boilerplate is stripped, marker-phrase windows are collected, sentences
// are filtered and scored, and the top-scoring sentences are re-joined in
// document order. Falls back to the raw windowed source when too little
// survives filtering. Output never exceeds maxChars.
func ExtractNarrative(rawText string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultNarrativeMaxChars
	}

	cleaned := CleanBoilerplate(rawText)
	if cleaned == "" {
		return ""
	}

	source := markerWindowSource(cleaned)
	if source == "" {
		source = truncate(cleaned, fallbackSourceScale*maxChars)
	}

	type scored struct {
		index int
		text  string
		score float64
	}

	var candidates []scored
	for i, sentence := range splitSentences(source) {
		if !keepSentence(sentence) {
			continue
		}
		candidates = append(candidates, scored{
			index: i,
			text:  sentence,
			score: scoreSentence(sentence),
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})
	if len(candidates) > maxScoredSentences {
		candidates = candidates[:maxScoredSentences]
	}
	// Restore document order for readability; selection already biased
	// toward relevance.
	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].index < candidates[b].index
	})

	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, c.text)
	}
	narrative := strings.Join(parts, " ")

	if len(narrative) < minNarrativeChars {
		return truncate(source, maxChars)
	}
	return truncate(narrative, maxChars)
}

// markerWindowSource concatenates up to maxMarkerWindows deduplicated text
// windows around topical marker phrases, or "" when no marker occurs.
func markerWindowSource(cleaned string) string {
	lower := strings.ToLower(cleaned)

	type span struct{ start, end int }
	var spans []span
	seen := make(map[span]struct{})

	for _, marker := range markerPhrases {
		offset := 0
		for len(spans) < maxMarkerWindows {
			i := strings.Index(lower[offset:], marker)
			if i == -1 {
				break
			}
			i += offset

			s := span{start: max(0, i-windowBeforeMarker), end: min(len(cleaned), i+windowAfterMarker)}
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				spans = append(spans, s)
			}
			offset = i + len(marker)
		}
		if len(spans) >= maxMarkerWindows {
			break
		}
	}

	if len(spans) == 0 {
		return ""
	}

	// Collection walks marker phrases, not the document; restore document
	// order before joining.
	sort.Slice(spans, func(a, b int) bool {
		return spans[a].start < spans[b].start
	})

	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		parts = append(parts, cleaned[s.start:s.end])
	}
	return strings.Join(parts, " ")
}

func splitSentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// noiseTokens mark XBRL/XML fragments that survive HTML flattening.
var noiseTokens = []string{"xbrl", "xmlns", "</", "<?xml", "ix:"}

func keepSentence(sentence string) bool {
	if len(sentence) < minSentenceChars || len(sentence) > maxSentenceChars {
		return false
	}
	lower := strings.ToLower(sentence)
	for _, tok := range noiseTokens {
		if strings.Contains(lower, tok) {
			return false
		}
	}
	digits := 0
	for _, r := range sentence {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits)/float64(len(sentence)) <= maxDigitRatio
}

func scoreSentence(sentence string) float64 {
	lower := strings.ToLower(sentence)
	score := 0.0
	for _, kw := range narrativeKeywords {
		if strings.Contains(lower, kw) {
			score += keywordScore
		}
	}
	lengthScore := float64(len(sentence)) / lengthScoreDivisor
	if lengthScore > maxLengthScore {
		lengthScore = maxLengthScore
	}
	return score + lengthScore
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
