package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/seekerhq/seeker/internal/schema"
)

// defaultDDGURL is the DuckDuckGo lite endpoint, which has a simple and
// stable HTML structure suitable for scraping.
const defaultDDGURL = "https://lite.duckduckgo.com/lite/"

// ddgLimiter enforces a global 1 QPS limit across all DuckDuckGo
// instances and goroutines to stay polite to the free endpoint.
var ddgLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

// DuckDuckGo implements Provider against DuckDuckGo's lite HTML
// interface. No API key is required.
type DuckDuckGo struct {
	// BaseURL overrides the endpoint, primarily for tests.
	BaseURL string

	client  *http.Client
	limiter *rate.Limiter
	backoff time.Duration
}

// NewDuckDuckGo creates a DuckDuckGo provider with a modest timeout.
func NewDuckDuckGo() *DuckDuckGo {
	return NewDuckDuckGoWithClient(&http.Client{Timeout: 15 * time.Second})
}

// NewDuckDuckGoWithClient creates a DuckDuckGo provider using the
// supplied HTTP client.
func NewDuckDuckGoWithClient(client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{BaseURL: defaultDDGURL, client: client, limiter: ddgLimiter, backoff: time.Second}
}

// Name implements Provider.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search posts the query to the lite page and parses the result table.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]schema.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: duckduckgo: empty query", ErrProvider)
	}
	if maxResults <= 0 {
		maxResults = schema.DefaultMaxResults
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, wrapErr("duckduckgo", err)
	}

	formData := url.Values{}
	formData.Set("q", query)

	var resp *http.Response
	delay := d.backoff
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL, strings.NewReader(formData.Encode()))
		if err != nil {
			return nil, fmt.Errorf("duckduckgo: building request: %w", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = d.client.Do(req)
		if err != nil {
			return nil, wrapErr("duckduckgo", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		_ = resp.Body.Close()

		if attempt >= max429Retries {
			return nil, fmt.Errorf("%w: duckduckgo http 429 after %d retries", ErrProvider, attempt)
		}

		// Back off and retry on 429, doubling up to 30s.
		select {
		case <-ctx.Done():
			return nil, wrapErr("duckduckgo", ctx.Err())
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: duckduckgo http %d", ErrProvider, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: duckduckgo: parsing response: %v", ErrProvider, err)
	}

	return parseLiteResults(doc, maxResults), nil
}

// parseLiteResults extracts results from the lite page. Each hit is a
// link with class "result-link" followed by a "result-snippet" cell.
func parseLiteResults(doc *goquery.Document, maxResults int) []schema.SearchResult {
	links := doc.Find("a.result-link")
	snippets := doc.Find("td.result-snippet")

	results := make([]schema.SearchResult, 0, links.Length())
	links.EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return true
		}

		snippet := ""
		if i < snippets.Length() {
			snippet = strings.TrimSpace(snippets.Eq(i).Text())
		}
		snippet = schema.Truncate(snippet, maxSnippetLen)

		results = append(results, schema.SearchResult{
			Title:   strings.TrimSpace(s.Text()),
			URL:     strings.TrimSpace(href),
			Snippet: snippet,
		})
		return len(results) < maxResults
	})
	return results
}
