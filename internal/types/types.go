package types

import (
	"time"
)

// ParsedFiling is one document extracted from the push-feed stream. At least
// one of FormType, CIK or CompanyName is non-empty; blocks without any
// identifying field are never promoted to a filing.
type ParsedFiling struct {
	FormType        string    `json:"form_type"`
	CIK             string    `json:"cik"`
	CompanyName     string    `json:"company_name"`
	AccessionNumber string    `json:"accession_number"`
	RawSubmission   string    `json:"raw_submission"`
	RawText         string    `json:"raw_text"`
	CreatedAt       time.Time `json:"created_at"`
}

// FeedEntry is one filing as reported by the Atom current-filings feed or a
// daily master index.
type FeedEntry struct {
	FormType        string `json:"form_type"`
	CompanyName     string `json:"company_name"`
	CIK             string `json:"cik"`
	AccessionNumber string `json:"accession_number"`
	FilingLink      string `json:"filing_link"`
	Updated         string `json:"updated"`
}

// ClassificationResult is the outcome of the alert gate. IsCrypto is only
// ever true on the keyword-matched S-1 path.
type ClassificationResult struct {
	ShouldAlert     bool     `json:"should_alert"`
	MatchedKeywords []string `json:"matched_keywords"`
	IsCrypto        bool     `json:"is_crypto"`
}

// StructuredFields holds the best-effort heuristic extraction used to anchor
// or replace the AI synopsis. Each field is either an extracted value or a
// sentinel ("Unknown", "N/A", "Not available.").
type StructuredFields struct {
	FundName     string `json:"fund_name"`
	Ticker       string `json:"ticker"`
	ExpenseRatio string `json:"expense_ratio"`
	Custodian    string `json:"custodian"`
	Strategy     string `json:"strategy"`
}

// AlertRecord is one alert-worthy filing. Identity is the accession number;
// records are immutable after creation except for the link/synopsis repair
// pass.
type AlertRecord struct {
	CreatedAt          time.Time `json:"created_at"`
	FormType           string    `json:"form_type"`
	CIK                string    `json:"cik"`
	CompanyName        string    `json:"company_name"`
	AccessionNumber    string    `json:"accession_number"`
	SECIndexURL        string    `json:"sec_index_url"`
	PrimaryDocumentURL string    `json:"primary_document_url,omitempty"`
	MatchedKeywords    []string  `json:"matched_keywords"`
	IsCrypto           bool      `json:"is_crypto"`
	Synopsis           string    `json:"synopsis"`
	EmailSent          bool      `json:"email_sent"`
	Error              string    `json:"error,omitempty"`
}

// StreamState is the persisted poll/stream state. Accession numbers land in
// SeenAccessions only after a successful (or dry-run) send so that failed
// sends are retried on the next run.
type StreamState struct {
	SeenAccessions []string `json:"seen_accessions"`
	LastRun        string   `json:"last_run"`
	LastError      string   `json:"last_error,omitempty"`
}

// RunStatus summarizes one completed poll run.
type RunStatus struct {
	LastRun         string `json:"last_run"`
	LastError       string `json:"last_error,omitempty"`
	FetchedEntries  int    `json:"fetched_entries"`
	FeedEntries     int    `json:"feed_entries"`
	BackfillEntries int    `json:"backfill_entries"`
	BackfillDays    int    `json:"backfill_days"`
	NewAlerts       int    `json:"new_alerts"`
	TotalAlerts     int    `json:"total_alerts"`
}
