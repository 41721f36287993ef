/*
Package engine orchestrates the full alert pipeline: discover filings (Atom
feed, master-index backfill, or the raw push-feed stream), classify them,
extract a synopsis, email the reporter, and record the outcome. An accession
number is only marked seen after its email goes out, so failed sends retry
on the next run.
*/
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"edgarwatch/internal/ai"
	"edgarwatch/internal/edgar"
	"edgarwatch/internal/extract"
	"edgarwatch/internal/gate"
	"edgarwatch/internal/notify"
	"edgarwatch/internal/parse"
	"edgarwatch/internal/state"
	"edgarwatch/internal/stream"
	"edgarwatch/internal/summary"
	"edgarwatch/internal/types"
)

// maxConcurrentFilings bounds parallel EDGAR fetches per run.
const maxConcurrentFilings = 10

// targetForms are the only form types the pipeline considers at all.
var targetForms = map[string]struct{}{
	"485APOS": {},
	"485BPOS": {},
	"S-1":     {},
}

// Engine wires the pipeline stages together.
type Engine struct {
	client         *edgar.Client
	store          *state.Store
	summarizer     ai.Summarizer
	sender         notify.Sender
	reporterEmail  string
	cryptoKeywords []string

	// streamBuf carries partial push-feed documents between chunks.
	streamBuf []byte
}

// Options configures a new Engine. Summarizer may be nil; the heuristic
// fallback then produces every synopsis.
type Options struct {
	Client         *edgar.Client
	Store          *state.Store
	Summarizer     ai.Summarizer
	Sender         notify.Sender
	ReporterEmail  string
	CryptoKeywords []string
}

func New(opts Options) *Engine {
	keywords := opts.CryptoKeywords
	if len(keywords) == 0 {
		keywords = gate.DefaultCryptoKeywords
	}
	return &Engine{
		client:         opts.Client,
		store:          opts.Store,
		summarizer:     opts.Summarizer,
		sender:         opts.Sender,
		reporterEmail:  opts.ReporterEmail,
		cryptoKeywords: keywords,
	}
}

// RunOnce polls the current-filings feed (plus an optional master-index
// backfill), processes every new target-form filing concurrently, and
// persists state. Per-filing failures are recorded on their alert records;
// only discovery-level failures become the run error.
func (e *Engine) RunOnce(ctx context.Context, dryRun bool, backfillDays int) error {
	status := types.RunStatus{BackfillDays: backfillDays}
	e.store.SetLastError("")

	feedEntries, feedErr := e.client.FetchFeedEntries(ctx)
	if feedErr != nil {
		log.Error().Err(feedErr).Msg("failed to fetch current-filings feed")
		e.store.SetLastError(feedErr.Error())
	}
	status.FeedEntries = len(feedEntries)

	backfillEntries, backfillErr := e.client.FetchBackfillEntries(ctx, backfillDays)
	if backfillErr != nil {
		log.Error().Err(backfillErr).Msg("failed to fetch master-index backfill")
		e.store.SetLastError(backfillErr.Error())
	}
	status.BackfillEntries = len(backfillEntries)

	// With backfill disabled the feed was the only source.
	if feedErr != nil && (backfillDays <= 0 || backfillErr != nil) {
		runErr := fmt.Errorf("all filing sources failed: %w", feedErr)
		e.store.SetLastError(runErr.Error())
		if err := e.store.Flush(status); err != nil {
			log.Error().Err(err).Msg("failed to persist state")
		}
		return runErr
	}

	entries := edgar.DedupeEntries(append(feedEntries, backfillEntries...))
	status.FetchedEntries = len(entries)

	candidates := make([]types.FeedEntry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := targetForms[gate.NormalizeFormType(entry.FormType)]; !ok {
			continue
		}
		if entry.AccessionNumber == "" || entry.CIK == "" {
			log.Debug().
				Str("company", entry.CompanyName).
				Str("form", entry.FormType).
				Msg("skipping entry without accession number or CIK")
			continue
		}
		if e.store.Seen(entry.AccessionNumber) {
			continue
		}
		candidates = append(candidates, entry)
	}

	log.Info().
		Int("fetched", len(entries)).
		Int("candidates", len(candidates)).
		Bool("dry_run", dryRun).
		Msg("processing new filings")

	status.NewAlerts = e.processEntries(ctx, candidates, dryRun)

	if err := e.store.Flush(status); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// processEntries fans candidates out to a bounded worker pool and collects
// alert records. Returns the number of alerts raised.
func (e *Engine) processEntries(ctx context.Context, candidates []types.FeedEntry, dryRun bool) int {
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentFilings)
	results := make(chan *types.AlertRecord, len(candidates))

	for _, entry := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(entry types.FeedEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- e.processEntry(ctx, entry, dryRun)
		}(entry)
	}

	wg.Wait()
	close(results)

	alerts := 0
	for record := range results {
		if record == nil {
			continue
		}
		e.store.AddAlert(*record)
		alerts++
	}
	return alerts
}

// processEntry runs the pipeline for one filing. A nil return means the
// filing did not warrant an alert; otherwise the record carries the outcome
// including any send failure.
func (e *Engine) processEntry(ctx context.Context, entry types.FeedEntry, dryRun bool) *types.AlertRecord {
	indexURL := edgar.BuildIndexURL(entry.CIK, entry.AccessionNumber)

	docURL, docText, err := e.client.FetchPrimaryDocument(ctx, indexURL, entry.FormType)
	if err != nil {
		log.Warn().Err(err).
			Str("accession", entry.AccessionNumber).
			Str("company", entry.CompanyName).
			Msg("failed to fetch primary document")
		return &types.AlertRecord{
			CreatedAt:       time.Now().UTC(),
			FormType:        gate.NormalizeFormType(entry.FormType),
			CIK:             entry.CIK,
			CompanyName:     entry.CompanyName,
			AccessionNumber: entry.AccessionNumber,
			SECIndexURL:     indexURL,
			Error:           err.Error(),
		}
	}

	cleaned := extract.CleanBoilerplate(docText)
	verdict := gate.Evaluate(entry.FormType, cleaned, e.cryptoKeywords)
	if !verdict.ShouldAlert {
		log.Debug().
			Str("accession", entry.AccessionNumber).
			Str("form", entry.FormType).
			Msg("filing below alert threshold")
		return nil
	}

	record := e.buildAlert(ctx, entry, indexURL, docURL, cleaned, verdict)
	e.deliver(ctx, record, dryRun)
	return record
}

// buildAlert assembles the alert record and its synopsis.
func (e *Engine) buildAlert(ctx context.Context, entry types.FeedEntry, indexURL, docURL, cleaned string, verdict types.ClassificationResult) *types.AlertRecord {
	narrative := extract.ExtractNarrative(cleaned, extract.DefaultNarrativeMaxChars)
	fields := extract.ExtractFields(cleaned, verdict.IsCrypto)

	synopsis := e.summarize(ctx, narrative, verdict.IsCrypto, fields)

	return &types.AlertRecord{
		CreatedAt:          time.Now().UTC(),
		FormType:           gate.NormalizeFormType(entry.FormType),
		CIK:                entry.CIK,
		CompanyName:        entry.CompanyName,
		AccessionNumber:    entry.AccessionNumber,
		SECIndexURL:        indexURL,
		PrimaryDocumentURL: docURL,
		MatchedKeywords:    verdict.MatchedKeywords,
		IsCrypto:           verdict.IsCrypto,
		Synopsis:           synopsis,
	}
}

// summarize produces the normalized synopsis, preferring the AI summarizer
// and falling back to the pure heuristic summary when it is unavailable,
// fails, or returns junk.
func (e *Engine) summarize(ctx context.Context, narrative string, isCrypto bool, fields types.StructuredFields) string {
	if e.summarizer == nil || narrative == "" {
		return summary.Fallback(fields, isCrypto)
	}

	raw, err := e.summarizer.Summarize(ctx, narrative, isCrypto)
	if err != nil {
		log.Warn().Err(err).Msg("summarizer failed, using heuristic summary")
		return summary.Fallback(fields, isCrypto)
	}
	if summary.IsLowQuality(raw) {
		log.Warn().Msg("summarizer output rejected by quality gate, using heuristic summary")
		return summary.Fallback(fields, isCrypto)
	}
	return summary.Normalize(raw, isCrypto, fields)
}

// deliver emails the alert and marks the accession seen on success. Dry runs
// go through a sender that always succeeds, so they advance state too.
func (e *Engine) deliver(ctx context.Context, record *types.AlertRecord, dryRun bool) {
	sender := e.sender
	if dryRun {
		sender = notify.DryRunSender{}
	}

	subject := fmt.Sprintf("[ETF ALERT] %s Filed by %s", record.FormType, record.CompanyName)
	body := record.Synopsis + "\n\nSEC Link: " + record.SECIndexURL

	sent, err := sender.Send(ctx, e.reporterEmail, subject, body, "")
	record.EmailSent = sent
	if err != nil {
		record.Error = err.Error()
		log.Error().Err(err).
			Str("accession", record.AccessionNumber).
			Msg("failed to send alert email")
		return
	}
	if sent {
		e.store.MarkSeen(record.AccessionNumber)
		log.Info().
			Str("accession", record.AccessionNumber).
			Str("form", record.FormType).
			Str("company", record.CompanyName).
			Bool("dry_run", dryRun).
			Msg("alert delivered")
	}
}

// IngestChunk feeds one raw push-feed chunk into the framer and processes
// every complete document it yields. The document text itself is the
// classification input; no EDGAR fetch happens on this path.
func (e *Engine) IngestChunk(ctx context.Context, chunk []byte, dryRun bool) int {
	buf := append(e.streamBuf, chunk...)
	docs, remainder := stream.Frame(buf)
	e.streamBuf = remainder

	alerts := 0
	for _, doc := range docs {
		if e.processStreamDocument(ctx, doc, dryRun) {
			alerts++
		}
	}
	return alerts
}

// processStreamDocument classifies one framed push-feed document and raises
// an alert when warranted. Returns true when an alert was recorded.
func (e *Engine) processStreamDocument(ctx context.Context, doc string, dryRun bool) bool {
	filing := parse.ParseSubmission(doc)
	if filing == nil {
		log.Debug().Msg("framed document carried no identifying header fields")
		return false
	}
	if _, ok := targetForms[gate.NormalizeFormType(filing.FormType)]; !ok {
		return false
	}
	if filing.AccessionNumber != "" && e.store.Seen(filing.AccessionNumber) {
		return false
	}

	verdict := gate.Evaluate(filing.FormType, filing.RawText, e.cryptoKeywords)
	if !verdict.ShouldAlert {
		return false
	}

	indexURL := ""
	if filing.CIK != "" && filing.AccessionNumber != "" {
		indexURL = edgar.BuildIndexURL(filing.CIK, filing.AccessionNumber)
	}

	entry := types.FeedEntry{
		FormType:        filing.FormType,
		CompanyName:     filing.CompanyName,
		CIK:             filing.CIK,
		AccessionNumber: filing.AccessionNumber,
	}
	cleaned := extract.CleanBoilerplate(filing.RawText)
	record := e.buildAlert(ctx, entry, indexURL, "", cleaned, verdict)
	e.deliver(ctx, record, dryRun)
	e.store.AddAlert(*record)

	if err := e.store.Flush(types.RunStatus{NewAlerts: 1}); err != nil {
		log.Error().Err(err).Msg("failed to persist state after stream alert")
	}
	return true
}

// RepairAlerts walks the alert history, rewrites stale primary-document
// links through the inline-XBRL viewer, and regenerates synopses that fail
// the quality gate. Returns the number of records changed.
func (e *Engine) RepairAlerts(ctx context.Context) (int, error) {
	alerts := e.store.Alerts()
	repaired := 0

	for i := range alerts {
		record := &alerts[i]
		changed := false

		if record.SECIndexURL == "" && record.CIK != "" && record.AccessionNumber != "" {
			record.SECIndexURL = edgar.BuildIndexURL(record.CIK, record.AccessionNumber)
			changed = true
		}

		if record.PrimaryDocumentURL != "" && !edgar.IsValidArchiveURL(record.PrimaryDocumentURL) {
			record.PrimaryDocumentURL = record.SECIndexURL
			changed = true
		} else if record.PrimaryDocumentURL != "" && !strings.Contains(record.PrimaryDocumentURL, "/ix?doc=") {
			if ix := edgar.ToIXURL(record.PrimaryDocumentURL); ix != record.PrimaryDocumentURL {
				record.PrimaryDocumentURL = ix
				changed = true
			}
		}

		if summary.IsLowQuality(record.Synopsis) && record.SECIndexURL != "" {
			_, docText, err := e.client.FetchPrimaryDocument(ctx, record.SECIndexURL, record.FormType)
			if err != nil {
				log.Warn().Err(err).
					Str("accession", record.AccessionNumber).
					Msg("could not refetch filing for synopsis repair")
			} else {
				cleaned := extract.CleanBoilerplate(docText)
				fields := extract.ExtractFields(cleaned, record.IsCrypto)
				record.Synopsis = summary.Fallback(fields, record.IsCrypto)
				changed = true
			}
		}

		if changed {
			repaired++
		}
	}

	if repaired > 0 {
		e.store.ReplaceAlerts(alerts)
		if err := e.store.Flush(types.RunStatus{}); err != nil {
			return repaired, fmt.Errorf("failed to persist repaired alerts: %w", err)
		}
	}
	log.Info().Int("repaired", repaired).Msg("alert repair pass complete")
	return repaired, nil
}
