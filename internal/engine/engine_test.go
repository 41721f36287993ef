package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgarwatch/internal/edgar"
	"edgarwatch/internal/state"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingSender struct {
	sent    []sentMail
	sendErr error
}

func (s *recordingSender) Send(ctx context.Context, toEmail, subject, body, attachmentPath string) (bool, error) {
	if s.sendErr != nil {
		return false, s.sendErr
	}
	s.sent = append(s.sent, sentMail{to: toEmail, subject: subject, body: body})
	return true, nil
}

func newTestEngine(t *testing.T, sender *recordingSender) (*Engine, *state.Store) {
	t.Helper()
	store, err := state.NewStore(t.TempDir(), 10)
	require.NoError(t, err)

	eng := New(Options{
		Store:         store,
		Sender:        sender,
		ReporterEmail: "reporter@example.com",
	})
	return eng, store
}

func streamDoc(formType, accession, company, body string) string {
	return fmt.Sprintf(`<SEC-DOCUMENT>
<SUBMISSION>
<ACCESSION-NUMBER>%s
<FORM-TYPE>%s
<CIK>0001234567
<COMPANY-NAME>%s
</SUBMISSION>
<DOCUMENT>
%s
</DOCUMENT>
</SEC-DOCUMENT>`, accession, formType, company, body)
}

const prospectusBody = `Grayscale Bitcoin Strategy ETF Summary Prospectus.
Ticker Symbol: BTCX
Investment Objective. The Fund seeks to provide exposure to the price of Bitcoin.
Total Annual Fund Operating Expenses After Fee Waiver 0.95 %
Principal Investment Strategies. The Fund invests in Bitcoin futures contracts and related instruments.`

func TestIngestChunk485BPOSAlerts(t *testing.T) {
	sender := &recordingSender{}
	eng, store := newTestEngine(t, sender)

	doc := streamDoc("485BPOS", "0001213900-24-000123", "Example Advisors LLC", prospectusBody)
	alerts := eng.IngestChunk(context.Background(), []byte(doc), false)

	assert.Equal(t, 1, alerts)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "reporter@example.com", sender.sent[0].to)
	assert.Equal(t, "[ETF ALERT] 485BPOS Filed by Example Advisors LLC", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body,
		"SEC Link: https://www.sec.gov/Archives/edgar/data/1234567/000121390024000123/index.html")

	// 485 forms alert unconditionally and are not crypto, so the synopsis
	// carries the four standard lines.
	records := store.Alerts()
	require.Len(t, records, 1)
	assert.True(t, records[0].EmailSent)
	assert.False(t, records[0].IsCrypto)
	assert.Len(t, strings.Split(records[0].Synopsis, "\n"), 4)
	assert.Contains(t, records[0].Synopsis, "Fund Name: Grayscale Bitcoin Strategy ETF")

	assert.True(t, store.Seen("0001213900-24-000123"))
	assert.Empty(t, eng.streamBuf)
}

func TestIngestChunkColonHeaderScenario(t *testing.T) {
	sender := &recordingSender{}
	eng, store := newTestEngine(t, sender)

	doc := "<SEC-DOCUMENT>\n<SUBMISSION>\n" +
		"FORM-TYPE: 485BPOS\nCIK: 0001234567\nCOMPANY-NAME: Example ETF Trust\n" +
		"ACCESSION-NUMBER: 0001234567-26-000321\n</SUBMISSION>\n</SEC-DOCUMENT>"

	alerts := eng.IngestChunk(context.Background(), []byte(doc), false)

	assert.Equal(t, 1, alerts)
	assert.Empty(t, eng.streamBuf)

	records := store.Alerts()
	require.Len(t, records, 1)
	assert.Equal(t, "485BPOS", records[0].FormType)
	assert.Equal(t, "0001234567", records[0].CIK)
	assert.Equal(t, "Example ETF Trust", records[0].CompanyName)
	assert.Equal(t, "0001234567-26-000321", records[0].AccessionNumber)
	assert.Equal(t,
		"https://www.sec.gov/Archives/edgar/data/1234567/000123456726000321/index.html",
		records[0].SECIndexURL)
}

func TestIngestChunkCryptoS1MatchesKeywords(t *testing.T) {
	sender := &recordingSender{}
	eng, store := newTestEngine(t, sender)

	body := "The Trust offers a Spot Bitcoin strategy with Coinbase Custody as custodian. " + prospectusBody
	doc := streamDoc("S-1", "0000320193-24-000456", "Coin Shares Trust", body)

	alerts := eng.IngestChunk(context.Background(), []byte(doc), false)

	assert.Equal(t, 1, alerts)
	records := store.Alerts()
	require.Len(t, records, 1)
	assert.True(t, records[0].IsCrypto)
	assert.Equal(t, []string{"Bitcoin", "Spot", "Coinbase Custody"}, records[0].MatchedKeywords)
	// Crypto synopses carry the custodian line.
	assert.Len(t, strings.Split(records[0].Synopsis, "\n"), 5)
	assert.Contains(t, records[0].Synopsis, "Custodian: Coinbase Custody")
}

func TestIngestChunkPlainS1StaysQuiet(t *testing.T) {
	sender := &recordingSender{}
	eng, store := newTestEngine(t, sender)

	doc := streamDoc("S-1", "0000000001-24-000001", "Software Co",
		"An offering of common stock of an enterprise software company.")

	alerts := eng.IngestChunk(context.Background(), []byte(doc), false)

	assert.Zero(t, alerts)
	assert.Empty(t, sender.sent)
	assert.Empty(t, store.Alerts())
}

func TestIngestChunkIgnoresNonTargetForms(t *testing.T) {
	sender := &recordingSender{}
	eng, _ := newTestEngine(t, sender)

	doc := streamDoc("10-K", "0000000002-24-000002", "Big Corp", "Annual report mentioning Bitcoin.")
	alerts := eng.IngestChunk(context.Background(), []byte(doc), false)

	assert.Zero(t, alerts)
	assert.Empty(t, sender.sent)
}

func TestIngestChunkSplitAcrossChunks(t *testing.T) {
	sender := &recordingSender{}
	eng, _ := newTestEngine(t, sender)

	doc := streamDoc("485APOS", "0001213900-24-000124", "Example Advisors LLC", prospectusBody)
	mid := len(doc) / 2

	assert.Zero(t, eng.IngestChunk(context.Background(), []byte(doc[:mid]), false))
	assert.Equal(t, 1, eng.IngestChunk(context.Background(), []byte(doc[mid:]), false))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "[ETF ALERT] 485APOS Filed by Example Advisors LLC", sender.sent[0].subject)
}

func TestIngestChunkSkipsSeenAccessions(t *testing.T) {
	sender := &recordingSender{}
	eng, _ := newTestEngine(t, sender)

	doc := streamDoc("485BPOS", "0001213900-24-000125", "Example Advisors LLC", prospectusBody)

	assert.Equal(t, 1, eng.IngestChunk(context.Background(), []byte(doc), false))
	assert.Zero(t, eng.IngestChunk(context.Background(), []byte(doc), false))
	assert.Len(t, sender.sent, 1)
}

func TestSendFailureLeavesAccessionUnseen(t *testing.T) {
	sender := &recordingSender{sendErr: fmt.Errorf("smtp timeout")}
	eng, store := newTestEngine(t, sender)

	doc := streamDoc("485BPOS", "0001213900-24-000126", "Example Advisors LLC", prospectusBody)
	alerts := eng.IngestChunk(context.Background(), []byte(doc), false)

	// The alert is recorded with its failure, but the accession stays
	// unmarked so the next run retries.
	assert.Equal(t, 1, alerts)
	records := store.Alerts()
	require.Len(t, records, 1)
	assert.False(t, records[0].EmailSent)
	assert.Equal(t, "smtp timeout", records[0].Error)
	assert.False(t, store.Seen("0001213900-24-000126"))

	// Retry with a working sender succeeds and marks the accession.
	sender.sendErr = nil
	assert.Equal(t, 1, eng.IngestChunk(context.Background(), []byte(doc), false))
	assert.True(t, store.Seen("0001213900-24-000126"))
}

func TestRunOnceRecordsFeedFailureAsLastError(t *testing.T) {
	// A client that cannot complete any request stands in for an
	// unreachable feed.
	dir := t.TempDir()
	store, err := state.NewStore(dir, 10)
	require.NoError(t, err)

	eng := New(Options{
		Client:        edgar.NewClient("edgarwatch tests", time.Millisecond),
		Store:         store,
		Sender:        &recordingSender{},
		ReporterEmail: "reporter@example.com",
	})

	err = eng.RunOnce(context.Background(), true, 0)

	// With backfill disabled, a feed failure is the whole run failing, and
	// the error must survive in the persisted state for the next run.
	require.Error(t, err)
	assert.Contains(t, store.LastError(), "filing sources failed")

	reloaded, reloadErr := state.NewStore(dir, 10)
	require.NoError(t, reloadErr)
	assert.NotEmpty(t, reloaded.LastError())
}

func TestDryRunMarksSeenWithoutSending(t *testing.T) {
	sender := &recordingSender{}
	eng, store := newTestEngine(t, sender)

	doc := streamDoc("485BPOS", "0001213900-24-000127", "Example Advisors LLC", prospectusBody)
	alerts := eng.IngestChunk(context.Background(), []byte(doc), true)

	assert.Equal(t, 1, alerts)
	assert.Empty(t, sender.sent)
	assert.True(t, store.Seen("0001213900-24-000127"))

	records := store.Alerts()
	require.Len(t, records, 1)
	assert.True(t, records[0].EmailSent)
}
