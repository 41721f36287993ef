package extract

import (
	"regexp"
	"strings"
	"unicode"

	"edgarwatch/internal/types"
)

// Sentinels for fields the heuristics could not extract.
const (
	UnknownField      = "Unknown"
	NotApplicable     = "N/A"
	StrategyNotFound  = "Not available."
	maxFundNameChars  = 120
	maxStrategyChars  = 420
	tickerWindowPre   = 800
	tickerWindowPost  = 12_000
	strategyWindow    = 20_000
	strategySentences = 2
)

// fundNamePatterns are tried in order; the first sanitized match wins.
var fundNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Fund Name:\s*([A-Z][^.;:|]{2,140})`),
	regexp.MustCompile(`(?i)Name of (?:the )?Fund:\s*([A-Z][^.;:|]{2,140})`),
	// A run of capitalized words ending in Fund/Trust/ETF.
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.'\-]*(?:\s+[A-Z0-9&][A-Za-z0-9&.'\-]*)*\s+(?:Fund|Trust|ETF))\b`),
}

var prospectusDatedRe = regexp.MustCompile(`(?i)Prospectus dated [^.]{0,60}? for (.{1,200})`)

var fundStyledPhraseRe = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.'\-]*(?:\s+[A-Z0-9&][A-Za-z0-9&.'\-]*)*\s+(?:Fund|Trust|ETF))\b`)

// fundNamePrefixes are stripped off the front of candidate names.
var fundNamePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Prospectus for\s+`),
	regexp.MustCompile(`(?i)^Summary Prospectus for\s+`),
	regexp.MustCompile(`(?i)^Statement of Additional Information for\s+`),
	regexp.MustCompile(`(?i)^Class [A-Z0-9]{1,3}(?: Shares)?(?: of)?\s+`),
}

// genericFundNames never qualify as extracted names.
var genericFundNames = map[string]struct{}{
	"the fund":  {},
	"fund":      {},
	"the trust": {},
	"trust":     {},
	"etf":       {},
}

// navigationFragments disqualify a candidate name that swallowed page
// chrome.
var navigationFragments = []string{
	"skip to main content",
	"official website",
	"sec.gov",
	"table of contents",
}

var (
	tickerRowRe     = regexp.MustCompile(`\b([A-Z]{2,6})\s+([A-Z]{2,6})\s+([A-Z]{2,6})\s+([A-Z]{2,6})\b`)
	tickerLabelRe   = regexp.MustCompile(`(?i)Ticker Symbols?(?:\(s\))?:?\s*([^.;|]{1,200})`)
	tickerClassIRe  = regexp.MustCompile(`(?i)Class I\b[^A-Z0-9]{0,20}([A-Z]{2,6})\b`)
	tickerTokenRe   = regexp.MustCompile(`\b[A-Z]{2,6}\b`)
	custodianRe     = regexp.MustCompile(`(?i)(?:Crypto\s+)?Custodian:?\s+([A-Z][^.;|\r\n]{2,80})`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	expenseRatioRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Total Annual Fund Operating Expenses After Fee Waiver[^%]{0,160}?(\d+\.?\d*\s*%)`),
		regexp.MustCompile(`(?i)Total Annual (?:Fund )?Operating Expenses[^%]{0,160}?(\d+\.?\d*\s*%)`),
		regexp.MustCompile(`(?i)Expense Ratio:?\s*(\d+\.?\d*\s*%)`),
	}
)

// tickerStopWords are uppercase tokens that look symbol-like but never are.
var tickerStopWords = map[string]struct{}{
	"N/A": {}, "NA": {}, "NONE": {}, "TBD": {},
	"THE": {}, "AND": {}, "FOR": {}, "CLASS": {},
	"FUND": {}, "ETF": {}, "TRUST": {}, "NEW": {},
}

// ExtractFields pulls fund name, ticker, expense ratio, strategy and
// custodian out of cleaned filing text. Fields default to sentinels; the
// pipeline never fails here.
func ExtractFields(cleanedText string, isCrypto bool) types.StructuredFields {
	fundName := extractFundName(cleanedText)

	tickerWin := contextWindow(cleanedText, fundName, tickerWindowPre, tickerWindowPost)
	strategyWin := contextWindow(cleanedText, fundName, tickerWindowPre, strategyWindow)

	custodianDefault := NotApplicable
	if isCrypto {
		custodianDefault = UnknownField
	}

	return types.StructuredFields{
		FundName:     fundName,
		Ticker:       extractTicker(tickerWin, fundName),
		ExpenseRatio: extractExpenseRatio(tickerWin),
		Strategy:     extractStrategy(strategyWin),
		Custodian:    extractCustodian(cleanedText, custodianDefault),
	}
}

// contextWindow centers a window on the fund-name occurrence, or uses the
// head of the text when the name is unknown.
func contextWindow(text, fundName string, before, after int) string {
	if fundName == UnknownField {
		return truncate(text, before+after)
	}
	idx := strings.Index(text, fundName)
	if idx == -1 {
		return truncate(text, before+after)
	}
	return text[max(0, idx-before):min(len(text), idx+after)]
}

func extractFundName(text string) string {
	for _, re := range fundNamePatterns {
		for _, m := range re.FindAllStringSubmatch(text, 8) {
			if name := sanitizeFundName(m[1]); name != "" {
				return name
			}
		}
	}

	// Secondary: "Prospectus dated ... for X" with a fund-styled phrase
	// somewhere in X.
	if m := prospectusDatedRe.FindStringSubmatch(text); m != nil {
		if inner := fundStyledPhraseRe.FindStringSubmatch(m[1]); inner != nil {
			if name := sanitizeFundName(inner[1]); name != "" {
				return name
			}
		}
	}
	return UnknownField
}

// sanitizeFundName normalizes a raw fund-name match and returns "" when
// the match is unusable.
func sanitizeFundName(raw string) string {
	name := strings.TrimSpace(raw)
	for _, re := range fundNamePrefixes {
		name = strings.TrimSpace(re.ReplaceAllString(name, ""))
	}
	if name == "" || len(name) > maxFundNameChars {
		return ""
	}
	if r := []rune(name)[0]; !unicode.IsUpper(r) {
		return ""
	}
	lower := strings.ToLower(name)
	if _, generic := genericFundNames[lower]; generic {
		return ""
	}
	for _, frag := range navigationFragments {
		if strings.Contains(lower, frag) {
			return ""
		}
	}

	// A match listing several funds keeps only the first fund-styled
	// segment.
	if strings.Contains(name, ",") || strings.Contains(name, " and ") {
		for _, seg := range splitNameList(name) {
			seg = strings.TrimSpace(seg)
			if seg != "" && isFundStyled(seg) {
				return seg
			}
		}
	}
	return name
}

func splitNameList(name string) []string {
	var segs []string
	for _, part := range strings.Split(name, ",") {
		segs = append(segs, strings.Split(part, " and ")...)
	}
	return segs
}

func isFundStyled(s string) bool {
	return strings.HasSuffix(s, "Fund") || strings.HasSuffix(s, "Trust") || strings.HasSuffix(s, "ETF") ||
		strings.Contains(s, "Fund ") || strings.Contains(s, "Trust ") || strings.Contains(s, "ETF ")
}

// extractTicker prefers a tabular row of four share-class symbols (Class I
// column first), then labeled "Ticker Symbol(s):" forms.
func extractTicker(window, fundName string) string {
	searchFrom := window
	if fundName != UnknownField {
		if idx := strings.Index(window, fundName); idx != -1 {
			searchFrom = window[idx+len(fundName):]
		}
	}

	if m := tickerRowRe.FindStringSubmatch(searchFrom); m != nil {
		// Column 4 is the Class I share class; fall back to the first
		// real symbol among columns 1-3.
		if isTickerSymbol(m[4]) {
			return m[4]
		}
		for _, col := range m[1:4] {
			if isTickerSymbol(col) {
				return col
			}
		}
	}

	if m := tickerLabelRe.FindStringSubmatch(window); m != nil {
		labeled := m[1]
		if classI := tickerClassIRe.FindStringSubmatch(labeled); classI != nil {
			return classI[1]
		}
		for _, tok := range tickerTokenRe.FindAllString(labeled, -1) {
			if isTickerSymbol(tok) {
				return tok
			}
		}
	}
	return UnknownField
}

func isTickerSymbol(tok string) bool {
	if len(tok) < 2 || len(tok) > 6 {
		return false
	}
	_, stop := tickerStopWords[tok]
	return !stop
}

// extractExpenseRatio applies the expense patterns in precedence order:
// post-waiver total first, then gross total, then a bare label. The percent
// sign is retained; internal whitespace is stripped.
func extractExpenseRatio(window string) string {
	for _, re := range expenseRatioRes {
		if m := re.FindStringSubmatch(window); m != nil {
			return whitespaceRe.ReplaceAllString(m[1], "")
		}
	}
	return UnknownField
}

// sectionHeadings bound objective/strategy blocks.
var sectionHeadings = []string{
	"principal investment strateg",
	"investment objective",
	"fees and expenses",
	"fund fees",
	"portfolio turnover",
	"principal risks",
	"performance",
	"management",
}

func extractStrategy(window string) string {
	objective := sectionBlock(window, "investment objective")
	strategy := sectionBlock(window, "principal investment strateg")

	var parts []string
	if objective != "" {
		parts = append(parts, firstSentences(objective, strategySentences, maxStrategyChars))
	}
	if strategy != "" {
		parts = append(parts, firstSentences(strategy, strategySentences, maxStrategyChars))
	}
	if len(parts) == 0 {
		return StrategyNotFound
	}
	return strings.Join(parts, " ")
}

// sectionBlock returns the text between a heading occurrence and the next
// section heading, or "" when the heading is absent.
func sectionBlock(window, heading string) string {
	lower := strings.ToLower(window)
	start := strings.Index(lower, heading)
	if start == -1 {
		return ""
	}
	// Skip past the heading itself, including a "strategies" tail.
	body := start + len(heading)
	for body < len(window) && !unicode.IsSpace(rune(window[body])) {
		body++
	}

	end := len(window)
	for _, other := range sectionHeadings {
		if other == heading {
			continue
		}
		if i := strings.Index(lower[body:], other); i != -1 && body+i < end {
			end = body + i
		}
	}
	return strings.TrimSpace(window[body:end])
}

// FirstStrategySentences re-applies the standard strategy bound (two
// sentences, ellipsis-truncated) to possibly pre-formed text.
func FirstStrategySentences(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	return firstSentences(text, strategySentences, maxStrategyChars)
}

// firstSentences keeps at most n sentences, ellipsis-truncated to maxLen.
func firstSentences(text string, n, maxLen int) string {
	sentences := splitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	out := strings.TrimSpace(strings.Join(sentences, " "))
	if out == "" {
		out = strings.TrimSpace(text)
	}
	if len(out) > maxLen {
		out = out[:maxLen-3] + "..."
	}
	return out
}

func extractCustodian(text, fallback string) string {
	if m := custodianRe.FindStringSubmatch(text); m != nil {
		return strings.TrimRight(strings.TrimSpace(m[1]), ".,")
	}
	if strings.Contains(text, "Coinbase Custody") {
		return "Coinbase Custody"
	}
	return fallback
}
