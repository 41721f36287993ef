package edgar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgarwatch/internal/types"
)

const sampleAtomFeed = `<?xml version="1.0" encoding="ISO-8859-1" ?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Latest Filings</title>
  <entry>
    <title>485BPOS - Example ETF Trust (0001234567) (Filer)</title>
    <link rel="alternate" type="text/html" href="https://www.sec.gov/Archives/edgar/data/1234567/000121390024000123/0001213900-24-000123-index.htm"/>
    <category scheme="https://www.sec.gov/" label="form type" term="485BPOS"/>
    <updated>2024-11-05T16:01:10-05:00</updated>
  </entry>
  <entry>
    <title>S-1 - Coin Shares Trust (0000320193) (Filer)</title>
    <link rel="alternate" type="text/html" href="https://www.sec.gov/Archives/edgar/data/320193/000032019324000456/0000320193-24-000456-index.htm"/>
    <category scheme="https://www.sec.gov/" label="form type" term="S-1"/>
    <updated>2024-11-05T16:02:33-05:00</updated>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	entries, err := ParseFeed(sampleAtomFeed)

	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "485BPOS", entries[0].FormType)
	assert.Equal(t, "Example ETF Trust", entries[0].CompanyName)
	assert.Equal(t, "0001234567", entries[0].CIK)
	assert.Equal(t, "0001213900-24-000123", entries[0].AccessionNumber)

	assert.Equal(t, "S-1", entries[1].FormType)
	assert.Equal(t, "Coin Shares Trust", entries[1].CompanyName)
	assert.Equal(t, "0000320193-24-000456", entries[1].AccessionNumber)
}

func TestParseFeedInvalidXML(t *testing.T) {
	_, err := ParseFeed("<feed><entry>")
	assert.Error(t, err)
}

func TestParseFeedFormTypeFallsBackToTitle(t *testing.T) {
	feed := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>485APOS - Another Trust (0009876543) (Filer)</title>
    <link href="https://www.sec.gov/Archives/edgar/data/9876543/000987654324000001/0009876543-24-000001-index.htm"/>
  </entry>
</feed>`

	entries, err := ParseFeed(feed)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "485APOS", entries[0].FormType)
}

func TestParseMasterIndexLine(t *testing.T) {
	line := "320193|Coin Shares Trust|S-1|2024-11-05|edgar/data/320193/0000320193-24-000456.txt"

	entry := ParseMasterIndexLine(line)

	require.NotNil(t, entry)
	assert.Equal(t, "S-1", entry.FormType)
	assert.Equal(t, "Coin Shares Trust", entry.CompanyName)
	assert.Equal(t, "320193", entry.CIK)
	assert.Equal(t, "0000320193-24-000456", entry.AccessionNumber)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/0000320193-24-000456.txt", entry.FilingLink)
	assert.Equal(t, "2024-11-05", entry.Updated)
}

func TestParseMasterIndexLineRejectsHeaderAndShortRows(t *testing.T) {
	assert.Nil(t, ParseMasterIndexLine("CIK|Company Name|Form Type|Date Filed|Filename"))
	assert.Nil(t, ParseMasterIndexLine("320193|Too|Short"))
}

func TestParseMasterIndex(t *testing.T) {
	body := `Description: Daily Index of EDGAR Dissemination Feed
Last Data Received: November 5, 2024

CIK|Company Name|Form Type|Date Filed|Filename
--------------------------------------------------
320193|Coin Shares Trust|S-1|2024-11-05|edgar/data/320193/0000320193-24-000456.txt
1234567|Example ETF Trust|485BPOS|2024-11-05|edgar/data/1234567/0001213900-24-000123.txt
`

	entries := ParseMasterIndex(body)

	require.Len(t, entries, 2)
	assert.Equal(t, "S-1", entries[0].FormType)
	assert.Equal(t, "485BPOS", entries[1].FormType)
}

func TestDedupeEntries(t *testing.T) {
	entries := []types.FeedEntry{
		{FormType: "485BPOS", AccessionNumber: "0001-24-000001", CompanyName: "From Feed"},
		{FormType: "485BPOS", AccessionNumber: "0001-24-000001", CompanyName: "From Backfill"},
		{FormType: "S-1", AccessionNumber: "0002-24-000002"},
		{FormType: "S-1", CIK: "99", FilingLink: "https://example.com/a"},
		{FormType: "S-1", CIK: "99", FilingLink: "https://example.com/a"},
		{FormType: "S-1", CIK: "99", FilingLink: "https://example.com/b"},
	}

	deduped := DedupeEntries(entries)

	require.Len(t, deduped, 4)
	// First occurrence wins.
	assert.Equal(t, "From Feed", deduped[0].CompanyName)
}
