package edgar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testIndexURL = "https://www.sec.gov/Archives/edgar/data/1234567/000121390024000123/index.html"

func TestSelectPrimaryDocumentFromTableFile(t *testing.T) {
	indexHTML := `<html><body>
<table class="tableFile" summary="Document Format Files">
  <tr><th>Seq</th><th>Description</th><th>Document</th><th>Type</th><th>Size</th></tr>
  <tr>
    <td>1</td><td>485BPOS</td>
    <td><a href="/Archives/edgar/data/1234567/000121390024000123/d86423d485bpos.htm">d86423d485bpos.htm</a></td>
    <td>485BPOS</td><td>2400123</td>
  </tr>
  <tr>
    <td>2</td><td>EX-99</td>
    <td><a href="/Archives/edgar/data/1234567/000121390024000123/ex99.htm">ex99.htm</a></td>
    <td>EX-99</td><td>12034</td>
  </tr>
</table>
</body></html>`

	got := SelectPrimaryDocument(testIndexURL, indexHTML, "485BPOS")
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/1234567/000121390024000123/d86423d485bpos.htm", got)
}

func TestSelectPrimaryDocumentRewritesViewerLinks(t *testing.T) {
	indexHTML := `<html><body>
<table class="tableFile">
  <tr>
    <td>1</td><td>485BPOS</td>
    <td><a href="/ix?doc=/Archives/edgar/data/1234567/000121390024000123/d86423d485bpos.htm">viewer</a></td>
    <td>485BPOS</td><td>100</td>
  </tr>
</table>
</body></html>`

	got := SelectPrimaryDocument(testIndexURL, indexHTML, "485BPOS")
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/1234567/000121390024000123/d86423d485bpos.htm", got)
}

func TestSelectPrimaryDocumentRewritesIXViewerLinks(t *testing.T) {
	indexHTML := `<html><body>
<table class="tableFile">
  <tr>
    <td>1</td><td>S-1</td>
    <td><a href="https://www.sec.gov/ixviewer/ix.html?doc=/Archives/edgar/data/320193/000032019324000456/forms1.htm">inline viewer</a></td>
    <td>S-1</td><td>100</td>
  </tr>
</table>
</body></html>`

	got := SelectPrimaryDocument(testIndexURL, indexHTML, "S-1")
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/000032019324000456/forms1.htm", got)
}

func TestSelectPrimaryDocumentFromDirectoryListing(t *testing.T) {
	// A plain listing with no tableFile markup: the form-named htm file wins
	// over the larger txt blob and the exhibit.
	indexHTML := `<html><body><table>
  <tr><td><a href="0001213900-24-000123-index.htm">0001213900-24-000123-index.htm</a></td><td>4000</td></tr>
  <tr><td><a href="d86423d485bpos.htm">d86423d485bpos.htm</a></td><td>2400123</td></tr>
  <tr><td><a href="ex99-1.htm">ex99-1.htm</a></td><td>90000</td></tr>
  <tr><td><a href="0001213900-24-000123.txt">complete submission</a></td><td>9800000</td></tr>
</table></body></html>`

	got := SelectPrimaryDocument(testIndexURL, indexHTML, "485BPOS")
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/1234567/000121390024000123/d86423d485bpos.htm", got)
}

func TestSelectPrimaryDocumentRejectsHomepageAndIndexLinks(t *testing.T) {
	// Nothing acceptable on the page: homepage links, a bare index page and
	// a non-archive path all fail, so the index URL itself comes back.
	indexHTML := `<html><body>
  <a href="https://www.sec.gov/">SEC Home</a>
  <a href="/Archives/edgar/data/1234567/000121390024000123/index.htm">listing</a>
  <a href="/cgi-bin/browse-edgar?action=getcompany">company search</a>
</body></html>`

	got := SelectPrimaryDocument(testIndexURL, indexHTML, "485BPOS")
	assert.Equal(t, testIndexURL, got)
}

func TestSelectPrimaryDocumentFallsBackToFirstResolvableLink(t *testing.T) {
	indexHTML := `<html><body>
  <p><a href="/Archives/edgar/data/1234567/000121390024000123/freeform.htm">a document</a></p>
</body></html>`

	got := SelectPrimaryDocument(testIndexURL, indexHTML, "485BPOS")
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/1234567/000121390024000123/freeform.htm", got)
}

func TestSelectPrimaryDocumentUnparseableHTML(t *testing.T) {
	// html.Parse is lenient; an empty page still degrades to the index URL.
	got := SelectPrimaryDocument(testIndexURL, "", "485BPOS")
	assert.Equal(t, testIndexURL, got)
}

func TestScoreListingCandidate(t *testing.T) {
	form := "485BPOS"

	formDoc := scoreListingCandidate("d86423d485bpos.htm", form, 2_400_123)
	submission := scoreListingCandidate("0001213900-24-000123.txt", form, 9_800_000)
	exhibit := scoreListingCandidate("ex99-1.htm", form, 90_000)

	assert.Greater(t, formDoc, submission)
	assert.Greater(t, formDoc, exhibit)
	// Size bonus saturates: a giant blob cannot out-score the form token.
	assert.InDelta(t, scoreTxtExtension+sizeBonusCap, submission, 0.001)
}

func TestDocumentText(t *testing.T) {
	page := `<html><head><style>body{}</style><script>var x=1;</script></head>
<body><h1>Example   ETF Trust</h1><p>Principal investment strategies.</p></body></html>`

	text := DocumentText(page)

	assert.Contains(t, text, "Example ETF Trust")
	assert.Contains(t, text, "Principal investment strategies.")
	assert.NotContains(t, text, "var x=1;")
	assert.NotContains(t, text, "body{}")
}
