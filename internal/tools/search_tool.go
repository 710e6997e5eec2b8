package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/seekerhq/seeker/internal/schema"
)

// SmartSearchInput is the argument payload for the smart_search tool.
type SmartSearchInput struct {
	Query      string `json:"query" jsonschema_description:"The search query"`
	SearchType string `json:"search_type,omitempty" jsonschema_description:"Optional search type: general, news, academic, product or tech_doc. Auto-detected when empty."`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results to return"`
}

// SmartSearch runs a web search, classifying the query when no explicit
// type is given. News and academic hits carry per-result details
// (outlet and sentiment, publication year). An empty result set is not
// a fault: the output then carries a fallback summary so the caller
// always has something to say.
func (k *Kit) SmartSearch(ctx context.Context, in SmartSearchInput) schema.ToolResult {
	input := map[string]any{
		"query":       in.Query,
		"search_type": in.SearchType,
		"max_results": in.MaxResults,
	}
	return run(toolSmartSearch, input, func() (map[string]any, error) {
		query := strings.TrimSpace(in.Query)
		if query == "" {
			return nil, fmt.Errorf("query must not be empty")
		}

		searchType := schema.SearchType(in.SearchType)
		if in.SearchType == "" {
			searchType = schema.DetectSearchType(query)
		} else if !searchType.Valid() {
			return nil, fmt.Errorf("unknown search type %q", in.SearchType)
		}

		maxResults := in.MaxResults
		if maxResults <= 0 {
			maxResults = schema.DefaultMaxResults
		}
		if maxResults > schema.MaxAllowedResults {
			maxResults = schema.MaxAllowedResults
		}

		results, err := k.provider.Search(ctx, scopedQuery(query, searchType), maxResults)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		out := schema.SearchResults{
			Results:     results,
			MainContent: buildMainContent(query, searchType, results),
		}

		output := map[string]any{
			"search_type":  string(searchType),
			"result_count": len(results),
			"results":      out.Results,
			"main_content": out.MainContent,
			"suggestions":  suggestions(searchType),
		}
		if details := enrichResults(searchType, results); details != nil {
			output["details"] = details
		}
		return output, nil
	})
}

// scopedQuery biases the provider query toward the detected category.
// The provider itself has no notion of search types.
func scopedQuery(query string, t schema.SearchType) string {
	switch t {
	case schema.SearchNews:
		return query + " latest news"
	case schema.SearchAcademic:
		return query + " research paper"
	case schema.SearchProduct:
		return query + " review price"
	case schema.SearchTechDoc:
		return query + " documentation"
	default:
		return query
	}
}

func buildMainContent(query string, t schema.SearchType, results []schema.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q. Try rephrasing the query or broadening the search terms.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s results for %q.\n", len(results), t, query)
	for i, r := range results {
		if i >= 3 {
			break
		}
		snippet := r.Snippet
		if snippet == "" {
			snippet = r.URL
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, r.Title, snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}

func suggestions(t schema.SearchType) []string {
	switch t {
	case schema.SearchNews:
		return []string{"Narrow by date range", "Add a region or outlet name"}
	case schema.SearchAcademic:
		return []string{"Search for survey papers", "Add the publication year"}
	case schema.SearchProduct:
		return []string{"Compare with an alternative product", "Check recent reviews"}
	case schema.SearchTechDoc:
		return []string{"Look for the official documentation", "Search for a quickstart guide"}
	default:
		return []string{"Refine with more specific keywords"}
	}
}
