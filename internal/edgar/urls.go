package edgar

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	secBaseURL     = "https://www.sec.gov"
	secArchivesURL = secBaseURL + "/Archives"
)

var (
	accessionFromFilenameRe = regexp.MustCompile(`(?i)/(\d{10}-\d{2}-\d{6})\.(?:txt|nc)$`)
	accessionFromLinkRe     = regexp.MustCompile(`(?i)/(\d{10}-\d{2}-\d{6})-index\.htm`)
	accessionRawDigitsRe    = regexp.MustCompile(`(?i)/data/\d+/(\d{18,})/`)
	feedTitleRe             = regexp.MustCompile(`^\s*\S+\s+-\s+(.+?)\s*\((\d{7,10})\)`)
	nonDigitRe              = regexp.MustCompile(`[^0-9]`)
)

// BuildIndexURL returns the filing's index page URL from its CIK and
// accession number. The CIK path segment has leading zeros stripped; the
// accession segment is digits only.
func BuildIndexURL(cik, accessionNumber string) string {
	cleanCIK := strings.TrimLeft(nonDigitRe.ReplaceAllString(cik, ""), "0")
	if cleanCIK == "" {
		cleanCIK = strings.TrimSpace(cik)
	}
	cleanAccession := nonDigitRe.ReplaceAllString(accessionNumber, "")
	return fmt.Sprintf("%s/edgar/data/%s/%s/index.html", secArchivesURL, cleanCIK, cleanAccession)
}

// MasterIndexURL returns the daily master index URL for a given day.
func MasterIndexURL(day time.Time) string {
	quarter := (int(day.Month())-1)/3 + 1
	return fmt.Sprintf("%s/edgar/daily-index/%d/QTR%d/master.%s.idx",
		secArchivesURL, day.Year(), quarter, day.Format("20060102"))
}

// ExtractAccessionFromFilename pulls the accession number out of a master
// index filename such as "edgar/data/320193/0000320193-24-000123.txt".
func ExtractAccessionFromFilename(filename string) string {
	if m := accessionFromFilenameRe.FindStringSubmatch(filename); m != nil {
		return m[1]
	}
	return ""
}

// ExtractAccessionFromLink pulls the accession number out of a feed link,
// either from the dashed "-index.htm" form or from a raw 18-digit archive
// directory segment.
func ExtractAccessionFromLink(link string) string {
	if m := accessionFromLinkRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	if m := accessionRawDigitsRe.FindStringSubmatch(link); m != nil {
		digits := m[1]
		return fmt.Sprintf("%s-%s-%s", digits[:10], digits[10:12], digits[12:18])
	}
	return ""
}

// ExtractCompanyAndCIK parses an Atom entry title like
// "485BPOS - Example ETF Trust (0001234567) (Filer)".
func ExtractCompanyAndCIK(title string) (company, cik string) {
	m := feedTitleRe.FindStringSubmatch(title)
	if m == nil {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// ToIXURL wraps a direct archive document URL in the inline-XBRL viewer so
// reporters get the rendered view.
func ToIXURL(docURL string) string {
	idx := strings.Index(docURL, "/Archives/")
	if idx == -1 {
		return docURL
	}
	return secBaseURL + "/ix?doc=" + docURL[idx:]
}

// IsValidArchiveURL reports whether a URL points at an actual archive
// document or accession index page, as opposed to a bare directory listing.
func IsValidArchiveURL(candidate string) bool {
	low := strings.ToLower(candidate)
	if !strings.Contains(low, "/archives/") {
		return false
	}
	segs := strings.Split(strings.TrimRight(low, "/"), "/")
	last := segs[len(segs)-1]
	if last == "index.html" || last == "index.htm" {
		return false
	}
	return true
}
