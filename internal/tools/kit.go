// Package tools provides the assistant's tool kit: web search with
// automatic query classification, extractive summarisation, translation,
// company and stock lookups, and page fetching. Every tool returns a
// schema.ToolResult and reports internal faults in-band rather than as
// Go errors.
package tools

import (
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/search"
)

// Tool names are the single source of truth shared by registration and
// lookup. Renaming one here renames it everywhere.
const (
	toolSmartSearch   = "smart_search"
	toolSummarize     = "summarize"
	toolTranslate     = "translate"
	toolLookupCompany = "lookup_company"
	toolLookupStock   = "lookup_stock"
	toolFetchPage     = "fetch_page"
)

var toolNames = []string{
	toolSmartSearch,
	toolSummarize,
	toolTranslate,
	toolLookupCompany,
	toolLookupStock,
	toolFetchPage,
}

// Names returns the registered tool names in registration order.
func Names() []string {
	out := make([]string, len(toolNames))
	copy(out, toolNames)
	return out
}

// Kit bundles the dependencies the tools share. A Kit is safe for
// concurrent use once constructed.
type Kit struct {
	provider  search.Provider
	g         *genkit.Genkit
	model     string
	client    *http.Client
	logger    log.Logger
	fetchSize int64
}

// Config carries the Kit dependencies. Provider and Logger are
// required; G and Model are only needed when the translate tool should
// be LLM backed.
type Config struct {
	Provider search.Provider
	G        *genkit.Genkit
	Model    string
	Client   *http.Client
	Logger   log.Logger
}

// New builds a Kit from cfg, applying defaults for optional fields.
func New(cfg Config) *Kit {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Kit{
		provider:  cfg.Provider,
		g:         cfg.G,
		model:     cfg.Model,
		client:    client,
		logger:    logger,
		fetchSize: maxFetchBytes,
	}
}

// Register defines every tool on g and returns the refs to pass to
// generation calls.
func (k *Kit) Register(g *genkit.Genkit) []ai.ToolRef {
	refs := []ai.ToolRef{
		genkit.DefineTool(g, toolSmartSearch,
			"Search the web. Detects whether the query is news, academic, product, technical documentation or general and adjusts accordingly.",
			func(tc *ai.ToolContext, in SmartSearchInput) (any, error) {
				return k.SmartSearch(tc.Context, in), nil
			}),
		genkit.DefineTool(g, toolSummarize,
			"Summarize a block of text into a few key sentences.",
			func(tc *ai.ToolContext, in SummarizeInput) (any, error) {
				return k.Summarize(tc.Context, in), nil
			}),
		genkit.DefineTool(g, toolTranslate,
			"Translate text into a target language.",
			func(tc *ai.ToolContext, in TranslateInput) (any, error) {
				return k.Translate(tc.Context, in), nil
			}),
		genkit.DefineTool(g, toolLookupCompany,
			"Look up basic profile information for a company by name.",
			func(tc *ai.ToolContext, in LookupCompanyInput) (any, error) {
				return k.LookupCompany(tc.Context, in), nil
			}),
		genkit.DefineTool(g, toolLookupStock,
			"Look up the latest quote for a stock ticker symbol.",
			func(tc *ai.ToolContext, in LookupStockInput) (any, error) {
				return k.LookupStock(tc.Context, in), nil
			}),
		genkit.DefineTool(g, toolFetchPage,
			"Fetch a web page and extract its readable text content.",
			func(tc *ai.ToolContext, in FetchPageInput) (any, error) {
				return k.FetchPage(tc.Context, in), nil
			}),
	}

	k.logger.Debug("tools registered", "count", len(refs))
	return refs
}
