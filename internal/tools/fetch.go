package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/seekerhq/seeker/internal/schema"
)

// FetchPageInput is the argument payload for the fetch_page tool.
type FetchPageInput struct {
	URL      string `json:"url" jsonschema_description:"The http or https URL to fetch"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema_description:"Truncate the extracted text to this many characters"`
}

const (
	maxFetchBytes   = 2 << 20
	defaultMaxChars = 8000
	fetchUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// FetchPage downloads a page and extracts its readable article text,
// stripping navigation, ads and boilerplate.
func (k *Kit) FetchPage(ctx context.Context, in FetchPageInput) schema.ToolResult {
	input := map[string]any{
		"url":       in.URL,
		"max_chars": in.MaxChars,
	}
	return run(toolFetchPage, input, func() (map[string]any, error) {
		raw := strings.TrimSpace(in.URL)
		if raw == "" {
			return nil, fmt.Errorf("url must not be empty")
		}
		pageURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid url: %w", err)
		}
		if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
			return nil, fmt.Errorf("unsupported scheme %q", pageURL.Scheme)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", fetchUserAgent)

		resp, err := k.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", pageURL.Host, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", pageURL.Host, resp.StatusCode)
		}

		body := io.LimitReader(resp.Body, k.fetchSize)
		article, err := readability.FromReader(body, pageURL)
		if err != nil {
			return nil, fmt.Errorf("extract content: %w", err)
		}

		text := strings.TrimSpace(article.TextContent)
		maxChars := in.MaxChars
		if maxChars <= 0 {
			maxChars = defaultMaxChars
		}
		truncated := len(text) > maxChars
		if truncated {
			text = schema.Truncate(text, maxChars)
		}

		return map[string]any{
			"title":     article.Title,
			"site_name": article.SiteName,
			"excerpt":   article.Excerpt,
			"text":      text,
			"truncated": truncated,
		}, nil
	})
}
