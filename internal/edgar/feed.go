package edgar

import (
	"encoding/xml"
	"fmt"
	"strings"

	"edgarwatch/internal/gate"
	"edgarwatch/internal/types"
)

// CurrentFilingsFeedURL is the Atom feed of the most recent EDGAR filings.
const CurrentFilingsFeedURL = "https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&count=100&output=atom"

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title    string       `xml:"title"`
	Updated  string       `xml:"updated"`
	Link     atomLink     `xml:"link"`
	Category atomCategory `xml:"category"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// ParseFeed decodes the Atom current-filings feed into entries normalized
// with the same rules the stream header extractor uses.
func ParseFeed(feedXML string) ([]types.FeedEntry, error) {
	var feed atomFeed
	if err := xml.Unmarshal([]byte(feedXML), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse atom feed: %w", err)
	}

	entries := make([]types.FeedEntry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		title := strings.TrimSpace(e.Title)
		link := strings.TrimSpace(e.Link.Href)

		formType := strings.TrimSpace(e.Category.Term)
		if formType == "" {
			// Titles read "FORM - Company (CIK) (Filer)"; form types can
			// themselves contain dashes (S-1), so cut on the spaced dash.
			formType, _, _ = strings.Cut(title, " - ")
		}
		company, cik := ExtractCompanyAndCIK(title)

		entries = append(entries, types.FeedEntry{
			FormType:        gate.NormalizeFormType(formType),
			CompanyName:     company,
			CIK:             cik,
			AccessionNumber: ExtractAccessionFromLink(link),
			FilingLink:      link,
			Updated:         strings.TrimSpace(e.Updated),
		})
	}
	return entries, nil
}

// ParseMasterIndexLine decodes one pipe-delimited daily master index line:
// CIK|Company Name|Form Type|Date Filed|Filename. Returns nil for header
// and separator lines.
func ParseMasterIndexLine(line string) *types.FeedEntry {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) < 5 {
		return nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	cik, company, formType, dateFiled, filename := parts[0], parts[1], parts[2], parts[3], parts[4]

	// The header row spells out column names; real rows carry a numeric CIK.
	if cik == "" || strings.ContainsFunc(cik, func(r rune) bool { return r < '0' || r > '9' }) {
		return nil
	}

	filingLink := ""
	if filename != "" {
		filingLink = secArchivesURL + "/" + filename
	}

	return &types.FeedEntry{
		FormType:        gate.NormalizeFormType(formType),
		CompanyName:     company,
		CIK:             cik,
		AccessionNumber: ExtractAccessionFromFilename(filename),
		FilingLink:      filingLink,
		Updated:         dateFiled,
	}
}

// ParseMasterIndex decodes an entire daily master index file, skipping
// lines without a pipe delimiter.
func ParseMasterIndex(body string) []types.FeedEntry {
	var entries []types.FeedEntry
	for line := range strings.Lines(body) {
		if !strings.Contains(line, "|") {
			continue
		}
		if entry := ParseMasterIndexLine(line); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries
}

// DedupeEntries removes duplicate filings across the feed and backfill
// sources, keyed by accession number with a CIK/form/link fallback for
// entries that carry no accession.
func DedupeEntries(entries []types.FeedEntry) []types.FeedEntry {
	seen := make(map[string]struct{}, len(entries))
	deduped := make([]types.FeedEntry, 0, len(entries))

	for _, entry := range entries {
		key := strings.TrimSpace(entry.AccessionNumber)
		if key == "" {
			key = fmt.Sprintf("%s:%s|%s|%s",
				strings.TrimSpace(entry.CIK), entry.FormType, entry.CompanyName, entry.FilingLink)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, entry)
	}
	return deduped
}
