/*
Package edgar talks to SEC EDGAR: the Atom current-filings feed, daily
master indexes, and filing index pages. It also holds the primary-document
selection heuristics and URL normalization rules.
*/
package edgar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"edgarwatch/internal/types"
)

// Client fetches EDGAR resources with the SEC-required User-Agent header.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient builds a client. The SEC rejects requests without a descriptive
// User-Agent, so userAgent is mandatory configuration.
func NewClient(userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body from %s: %w", url, err)
	}
	return string(body), nil
}

// StatusError reports a non-OK HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-OK status code %d from %s", e.StatusCode, e.URL)
}

// FetchFeedEntries fetches and parses the Atom current-filings feed.
func (c *Client) FetchFeedEntries(ctx context.Context) ([]types.FeedEntry, error) {
	body, err := c.get(ctx, CurrentFilingsFeedURL)
	if err != nil {
		return nil, err
	}
	return ParseFeed(body)
}

// FetchMasterIndexEntries fetches one day's master index. Days without an
// index (weekends, holidays) return no entries rather than an error.
func (c *Client) FetchMasterIndexEntries(ctx context.Context, day time.Time) ([]types.FeedEntry, error) {
	body, err := c.get(ctx, MasterIndexURL(day))
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return ParseMasterIndex(body), nil
}

// FetchBackfillEntries merges master index entries for the last
// backfillDays days, today first.
func (c *Client) FetchBackfillEntries(ctx context.Context, backfillDays int) ([]types.FeedEntry, error) {
	if backfillDays <= 0 {
		return nil, nil
	}

	today := time.Now().UTC()
	var merged []types.FeedEntry
	for offset := 0; offset < backfillDays; offset++ {
		day := today.AddDate(0, 0, -offset)
		entries, err := c.FetchMasterIndexEntries(ctx, day)
		if err != nil {
			return merged, err
		}
		merged = append(merged, entries...)
	}
	return merged, nil
}

// FetchPrimaryDocument fetches a filing's index page, selects the primary
// document, fetches it, and returns the document URL and its flattened
// text.
func (c *Client) FetchPrimaryDocument(ctx context.Context, indexURL, formType string) (docURL, text string, err error) {
	indexHTML, err := c.get(ctx, indexURL)
	if err != nil {
		return "", "", err
	}

	docURL = SelectPrimaryDocument(indexURL, indexHTML, formType)
	docHTML, err := c.get(ctx, docURL)
	if err != nil {
		return docURL, "", err
	}
	return docURL, DocumentText(docHTML), nil
}
