// Package schema defines the typed records exchanged between the search
// providers, the tool layer, the agent, and the workflow engine.
//
// These types are pure data. They carry jsonschema tags so Genkit can
// derive tool and output schemas from them directly.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SearchResult is a single search hit. Immutable once produced.
type SearchResult struct {
	Title   string `json:"title" jsonschema:"description=Result title"`
	URL     string `json:"url" jsonschema:"description=Result URL"`
	Snippet string `json:"snippet" jsonschema:"description=Short excerpt of the page content"`
}

// SearchResults is the agent's structured output for a search-backed
// answer: the raw hits plus a model-generated synthesis.
type SearchResults struct {
	Results     []SearchResult `json:"results" jsonschema:"description=Ordered search results"`
	MainContent string         `json:"main_content" jsonschema:"description=Synthesized answer built from the results"`
}

// ToolResult records one tool invocation. Tools never propagate internal
// faults as errors; they report them here with Success=false.
type ToolResult struct {
	ToolName      string         `json:"tool_name"`
	InputData     map[string]any `json:"input_data"`
	OutputData    map[string]any `json:"output_data"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty"`
}

// ChunkType classifies a streamed chunk.
type ChunkType string

// Chunk types emitted by streaming chat and workflow execution.
const (
	ChunkText     ChunkType = "text"
	ChunkResult   ChunkType = "result"
	ChunkSummary  ChunkType = "summary"
	ChunkError    ChunkType = "error"
	ChunkComplete ChunkType = "complete"
)

// StreamChunk is one element of a finite, one-shot streamed sequence.
type StreamChunk struct {
	Type      ChunkType `json:"chunk_type"`
	Content   any       `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ChunkID   string    `json:"chunk_id,omitempty"`
}

// NewChunk builds a StreamChunk stamped with the current time.
func NewChunk(t ChunkType, content any, id string) StreamChunk {
	return StreamChunk{Type: t, Content: content, Timestamp: time.Now(), ChunkID: id}
}

// SearchType selects the search strategy for a query.
type SearchType string

// Supported search types.
const (
	SearchGeneral  SearchType = "general"
	SearchNews     SearchType = "news"
	SearchAcademic SearchType = "academic"
	SearchProduct  SearchType = "product"
	SearchTechDoc  SearchType = "tech_doc"
)

// searchTypes is the set of valid SearchType values.
var searchTypes = map[SearchType]bool{
	SearchGeneral:  true,
	SearchNews:     true,
	SearchAcademic: true,
	SearchProduct:  true,
	SearchTechDoc:  true,
}

// Valid reports whether t is a known search type.
func (t SearchType) Valid() bool {
	return searchTypes[t]
}

// ParseSearchType converts a string into a SearchType.
// Empty input defaults to SearchGeneral.
func ParseSearchType(s string) (SearchType, error) {
	if s == "" {
		return SearchGeneral, nil
	}
	t := SearchType(strings.ToLower(s))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown search type %q", ErrInvalidConfig, s)
	}
	return t, nil
}

// Keyword tables for search type detection. Ordering matters: the first
// category with a hit wins, so news outranks academic for queries that
// mention both.
var (
	newsKeywords     = []string{"news", "latest", "breaking", "today", "announcement", "headline"}
	academicKeywords = []string{"paper", "research", "academic", "journal", "doi", "citation", "study"}
	productKeywords  = []string{"price", "buy", "product", "review", "brand", "model", "cheap"}
	techDocKeywords  = []string{"tutorial", "documentation", "docs", "api", "sdk", "code", "programming", "how to"}
)

// DetectSearchType picks a search type from keywords in the query.
// Falls back to SearchGeneral when nothing matches.
func DetectSearchType(query string) SearchType {
	q := strings.ToLower(query)

	for _, kw := range newsKeywords {
		if strings.Contains(q, kw) {
			return SearchNews
		}
	}
	for _, kw := range academicKeywords {
		if strings.Contains(q, kw) {
			return SearchAcademic
		}
	}
	for _, kw := range productKeywords {
		if strings.Contains(q, kw) {
			return SearchProduct
		}
	}
	for _, kw := range techDocKeywords {
		if strings.Contains(q, kw) {
			return SearchTechDoc
		}
	}
	return SearchGeneral
}

// Truncate shortens s to at most max bytes without splitting a UTF-8
// sequence: the cut backs off to the nearest rune boundary.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// ErrInvalidConfig indicates malformed search or tool parameters.
// It is surfaced before any external call is made.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default and boundary values for SearchConfig.
const (
	DefaultMaxResults = 5
	MaxAllowedResults = 20
)

// SearchConfig tunes a single search invocation.
type SearchConfig struct {
	Type           SearchType    `json:"search_type"`
	MaxResults     int           `json:"max_results"`
	IncludeSummary bool          `json:"include_summary"`
	TargetLanguage string        `json:"target_language,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
}

// DefaultSearchConfig returns the configuration used when the caller
// supplies nothing.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Type:           SearchGeneral,
		MaxResults:     DefaultMaxResults,
		IncludeSummary: true,
	}
}

// Validate checks the configuration before any external call is made.
func (c SearchConfig) Validate() error {
	if c.Type != "" && !c.Type.Valid() {
		return fmt.Errorf("%w: unknown search type %q", ErrInvalidConfig, c.Type)
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("%w: max_results must be non-negative, got %d", ErrInvalidConfig, c.MaxResults)
	}
	if c.MaxResults > MaxAllowedResults {
		return fmt.Errorf("%w: max_results %d exceeds limit %d", ErrInvalidConfig, c.MaxResults, MaxAllowedResults)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Normalize fills in defaults for zero-valued fields.
func (c SearchConfig) Normalize() SearchConfig {
	if c.Type == "" {
		c.Type = SearchGeneral
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	return c
}
