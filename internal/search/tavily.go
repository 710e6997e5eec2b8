package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seekerhq/seeker/internal/schema"
)

// defaultTavilyURL is the production Tavily search endpoint.
const defaultTavilyURL = "https://api.tavily.com/search"

// maxSnippetLen bounds the snippet text carried per result.
const maxSnippetLen = 300

// max429Retries bounds how often a rate-limited request is retried
// before the call fails with ErrProvider.
const max429Retries = 3

// Tavily calls the Tavily search API.
type Tavily struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// Depth controls Tavily's search depth ("basic" or "advanced").
	Depth string

	// BaseURL overrides the endpoint, primarily for tests.
	BaseURL string

	client  *http.Client
	backoff time.Duration
}

// NewTavily constructs a Tavily provider with a modest default timeout.
func NewTavily(apiKey, depth string) *Tavily {
	return NewTavilyWithClient(apiKey, depth, &http.Client{Timeout: 10 * time.Second})
}

// NewTavilyWithClient constructs a Tavily provider using the supplied
// HTTP client, which is useful for overriding timeouts or transports.
func NewTavilyWithClient(apiKey, depth string, client *http.Client) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{APIKey: apiKey, Depth: depth, BaseURL: defaultTavilyURL, client: client, backoff: time.Second}
}

// Name implements Provider.
func (t *Tavily) Name() string { return "tavily" }

// Search posts the query to Tavily. A 429 response is retried up to
// max429Retries times with a doubling delay capped at 30s; other
// non-200 statuses fail with ErrProvider immediately.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]schema.SearchResult, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, fmt.Errorf("%w: tavily: API key is missing", ErrProvider)
	}
	if maxResults <= 0 {
		maxResults = schema.DefaultMaxResults
	}

	body := map[string]any{
		"query":        query,
		"api_key":      t.APIKey,
		"search_depth": t.Depth,
		"max_results":  maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("tavily: encoding request: %w", err)
	}

	var resp *http.Response
	delay := t.backoff
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("tavily: building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, wrapErr("tavily", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		_ = resp.Body.Close()

		if attempt >= max429Retries {
			return nil, fmt.Errorf("%w: tavily http 429 after %d retries", ErrProvider, attempt)
		}

		select {
		case <-ctx.Done():
			return nil, wrapErr("tavily", ctx.Err())
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tavily http %d", ErrProvider, resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: tavily: decoding response: %v", ErrProvider, err)
	}

	results := make([]schema.SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		snippet := schema.Truncate(r.Content, maxSnippetLen)
		results = append(results, schema.SearchResult{Title: r.Title, URL: r.URL, Snippet: snippet})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
