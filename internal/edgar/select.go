package edgar

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"edgarwatch/internal/gate"
)

// Link-scoring weights for the plain directory-listing layout. Empirically
// tuned; treat as policy, not derivable values.
const (
	scoreHTMLExtension  = 30.0
	scoreTxtExtension   = 10.0
	scoreFormTypeToken  = 120.0
	scoreExhibitPenalty = -5.0
	sizeBonusDivisor    = 100_000.0
	sizeBonusCap        = 50.0
)

var exhibitNameRe = regexp.MustCompile(`(?i)(?:^|[^a-z])ex[-_]?\d|exhibit`)

// rejectedListingNames never qualify as primary documents.
var rejectedListingNames = []string{"index", "header", "filingsummary"}

var acceptedDocExtensions = []string{".htm", ".html", ".txt", ".xml"}

// SelectPrimaryDocument picks the best document link from a filing index
// page. It handles both the semantic document-table layout and the plain
// directory listing, falling back to the first acceptable link and finally
// to the index URL itself.
func SelectPrimaryDocument(indexURL, indexHTML, formType string) string {
	doc, err := html.Parse(strings.NewReader(indexHTML))
	if err != nil {
		return indexURL
	}
	normalizedForm := gate.NormalizeFormType(formType)

	if resolved := selectFromDocumentTables(doc, indexURL, normalizedForm); resolved != "" {
		return resolved
	}
	if resolved := selectFromDirectoryListing(doc, indexURL, normalizedForm); resolved != "" {
		return resolved
	}
	if resolved := firstResolvableLink(doc, indexURL); resolved != "" {
		return resolved
	}
	return indexURL
}

// selectFromDocumentTables scans "tableFile" tables: rows whose type cell
// starts with the target form type are preferred, the rest are fallback,
// and the first row with a resolvable link wins.
func selectFromDocumentTables(doc *html.Node, indexURL, normalizedForm string) string {
	for _, table := range findElements(doc, "table", "tableFile") {
		var preferred, fallback []*html.Node

		for _, row := range findElements(table, "tr", "") {
			cells := childElements(row, "td")
			if len(cells) == 0 {
				continue
			}
			typeCell := ""
			if len(cells) >= 4 {
				typeCell = extractText(cells[3])
			}
			if normalizedForm != "" && strings.HasPrefix(gate.NormalizeFormType(typeCell), normalizedForm) {
				preferred = append(preferred, row)
			} else {
				fallback = append(fallback, row)
			}
		}

		for _, row := range append(preferred, fallback...) {
			if resolved := resolveDocURL(indexURL, firstHref(row)); resolved != "" {
				return resolved
			}
		}
	}
	return ""
}

// selectFromDirectoryListing scores every row-link in a plain file listing
// and returns the highest-scoring resolvable candidate.
func selectFromDirectoryListing(doc *html.Node, indexURL, normalizedForm string) string {
	best := ""
	bestScore := 0.0

	for _, row := range findElements(doc, "tr", "") {
		href := firstHref(row)
		if href == "" {
			continue
		}
		filename := strings.ToLower(lastPathSegment(href))
		if filename == "" || containsAny(filename, rejectedListingNames) {
			continue
		}
		resolved := resolveDocURL(indexURL, href)
		if resolved == "" {
			continue
		}

		score := scoreListingCandidate(filename, normalizedForm, rowFileSize(row))
		if best == "" || score > bestScore {
			best = resolved
			bestScore = score
		}
	}
	return best
}

func scoreListingCandidate(filename, normalizedForm string, size int64) float64 {
	score := 0.0
	switch {
	case strings.HasSuffix(filename, ".htm"), strings.HasSuffix(filename, ".html"):
		score += scoreHTMLExtension
	case strings.HasSuffix(filename, ".txt"):
		score += scoreTxtExtension
	}
	if normalizedForm != "" && strings.Contains(filename, strings.ToLower(normalizedForm)) {
		score += scoreFormTypeToken
	}
	if exhibitNameRe.MatchString(filename) {
		score += scoreExhibitPenalty
	}
	bonus := float64(size) / sizeBonusDivisor
	if bonus > sizeBonusCap {
		bonus = sizeBonusCap
	}
	return score + bonus
}

// rowFileSize reads the file size from an adjacent numeric cell, when the
// listing carries one.
func rowFileSize(row *html.Node) int64 {
	for _, cell := range childElements(row, "td") {
		text := strings.TrimSpace(extractText(cell))
		if size, err := strconv.ParseInt(text, 10, 64); err == nil && size > 0 {
			return size
		}
	}
	return 0
}

func firstResolvableLink(doc *html.Node, indexURL string) string {
	for _, href := range allHrefs(doc) {
		if resolved := resolveDocURL(indexURL, href); resolved != "" {
			return resolved
		}
	}
	return ""
}

// resolveDocURL turns a raw href into an accepted absolute document URL, or
// "" when the link does not qualify. It rewrites ixviewer/ix indirections
// to the direct archive URL, resolves relative links against the index
// page, and rejects the SEC homepage, non-archive paths, index pages and
// unknown extensions.
func resolveDocURL(indexURL, href string) string {
	candidate := strings.TrimSpace(href)
	if candidate == "" {
		return ""
	}

	if direct := rewriteViewerURL(candidate); direct != "" {
		candidate = direct
	} else {
		base, err := url.Parse(indexURL)
		if err != nil {
			return ""
		}
		ref, err := url.Parse(candidate)
		if err != nil {
			return ""
		}
		candidate = base.ResolveReference(ref).String()
	}

	low := strings.ToLower(candidate)
	switch strings.TrimRight(low, "/") {
	case "https://www.sec.gov", "http://www.sec.gov":
		return ""
	}
	if !IsValidArchiveURL(candidate) {
		return ""
	}
	for _, ext := range acceptedDocExtensions {
		if strings.HasSuffix(low, ext) {
			return candidate
		}
	}
	return ""
}

// rewriteViewerURL unwraps "/ixviewer/ix.html?doc=/Archives/..." and bare
// "/ix?doc=/Archives/..." links into the direct archive URL.
func rewriteViewerURL(candidate string) string {
	parsed, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	if parsed.Path != "/ixviewer/ix.html" && parsed.Path != "/ix" {
		return ""
	}
	doc := parsed.Query().Get("doc")
	if doc == "" && strings.Contains(candidate, "doc=") {
		_, doc, _ = strings.Cut(candidate, "doc=")
	}
	if strings.HasPrefix(doc, "/Archives/") {
		return secBaseURL + doc
	}
	return ""
}

func lastPathSegment(href string) string {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	path := parsed.Path
	if q := parsed.Query().Get("doc"); q != "" {
		path = q
	}
	segs := strings.Split(strings.TrimRight(path, "/"), "/")
	return segs[len(segs)-1]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
