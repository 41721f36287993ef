/*
Package parse pulls structured header fields out of a framed EDGAR document
using ordered pattern fallback: the most explicit pattern for each field is
tried first, the loosest last, and the first match wins.
*/
package parse

import (
	"regexp"
	"strings"
	"time"

	"edgarwatch/internal/types"
)

var submissionBlockRe = regexp.MustCompile(`(?is)<SUBMISSION>(.*?)</SUBMISSION>`)

var documentTagRe = regexp.MustCompile(`(?i)<DOCUMENT>`)

// fieldPatterns maps a field name to its candidate patterns, most structured
// first. Each pattern captures the field value in group 1.
var fieldPatterns = map[string][]*regexp.Regexp{
	"form_type": {
		regexp.MustCompile(`(?i)<FORM-TYPE>\s*([^<\r\n]+)`),
		regexp.MustCompile(`(?i)<TYPE>\s*([^<\r\n]+)`),
		regexp.MustCompile(`(?i)FORM-TYPE:\s*([^\r\n]+)`),
		regexp.MustCompile(`(?i)CONFORMED SUBMISSION TYPE:\s*([^\r\n]+)`),
	},
	"cik": {
		regexp.MustCompile(`(?i)<CIK>\s*([^<\r\n]+)`),
		regexp.MustCompile(`(?i)CIK:\s*([0-9]+)`),
		regexp.MustCompile(`(?i)CENTRAL INDEX KEY:\s*([0-9]+)`),
	},
	"company_name": {
		regexp.MustCompile(`(?i)<COMPANY-NAME>\s*([^<\r\n]+)`),
		regexp.MustCompile(`(?i)COMPANY-NAME:\s*([^\r\n]+)`),
		regexp.MustCompile(`(?i)COMPANY CONFORMED NAME:\s*([^\r\n]+)`),
		regexp.MustCompile(`(?i)<CONFORMED-NAME>\s*([^<\r\n]+)`),
	},
	"accession_number": {
		regexp.MustCompile(`(?i)<ACCESSION-NUMBER>\s*([^<\r\n]+)`),
		regexp.MustCompile(`(?i)ACCESSION-NUMBER:\s*([^\r\n]+)`),
		regexp.MustCompile(`(?i)ACCESSION NUMBER:\s*([^\r\n]+)`),
	},
}

// ExtractField returns the first matching pattern's value for fieldName,
// whitespace-trimmed, or "" when no pattern matches.
func ExtractField(text, fieldName string) string {
	for _, re := range fieldPatterns[fieldName] {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// submissionBlock locates the header block: the <SUBMISSION> pair when
// present, otherwise everything before the first <DOCUMENT> tag.
func submissionBlock(documentText string) string {
	if m := submissionBlockRe.FindStringSubmatch(documentText); m != nil {
		return m[1]
	}
	if loc := documentTagRe.FindStringIndex(documentText); loc != nil {
		return documentText[:loc[0]]
	}
	return documentText
}

// ParseSubmission extracts header fields from one framed document. It
// returns nil when the block carries no identifying field at all; such
// blocks are silently dropped by the caller.
func ParseSubmission(documentText string) *types.ParsedFiling {
	header := submissionBlock(documentText)

	filing := &types.ParsedFiling{
		FormType:        ExtractField(header, "form_type"),
		CIK:             ExtractField(header, "cik"),
		CompanyName:     ExtractField(header, "company_name"),
		AccessionNumber: ExtractField(header, "accession_number"),
		RawSubmission:   header,
		RawText:         documentText,
		CreatedAt:       time.Now().UTC(),
	}

	if filing.FormType == "" && filing.CIK == "" && filing.CompanyName == "" {
		return nil
	}
	return filing
}
