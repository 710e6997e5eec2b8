package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/seekerhq/seeker/internal/schema"
)

// LookupCompanyInput is the argument payload for the lookup_company tool.
type LookupCompanyInput struct {
	Name string `json:"name" jsonschema_description:"The company name to look up"`
}

// LookupStockInput is the argument payload for the lookup_stock tool.
type LookupStockInput struct {
	Symbol string `json:"symbol" jsonschema_description:"The stock ticker symbol, e.g. AAPL"`
}

type companyProfile struct {
	Name      string
	Industry  string
	Founded   int
	HQ        string
	Employees int
	Symbol    string
}

type stockQuote struct {
	Symbol    string
	Company   string
	Price     float64
	Change    float64
	ChangePct float64
	Currency  string
}

// Static reference datasets. No external market data feed is wired, so
// lookups resolve against this table and report a failed result for
// anything it does not cover.
var (
	companies = map[string]companyProfile{
		"apple":     {Name: "Apple Inc.", Industry: "Consumer electronics", Founded: 1976, HQ: "Cupertino, US", Employees: 164000, Symbol: "AAPL"},
		"google":    {Name: "Alphabet Inc.", Industry: "Internet services", Founded: 1998, HQ: "Mountain View, US", Employees: 182000, Symbol: "GOOGL"},
		"microsoft": {Name: "Microsoft Corporation", Industry: "Software", Founded: 1975, HQ: "Redmond, US", Employees: 228000, Symbol: "MSFT"},
		"tsmc":      {Name: "Taiwan Semiconductor Manufacturing Company", Industry: "Semiconductors", Founded: 1987, HQ: "Hsinchu, TW", Employees: 76000, Symbol: "TSM"},
		"tesla":     {Name: "Tesla, Inc.", Industry: "Automotive", Founded: 2003, HQ: "Austin, US", Employees: 140000, Symbol: "TSLA"},
	}

	quotes = map[string]stockQuote{
		"AAPL":  {Symbol: "AAPL", Company: "Apple Inc.", Price: 227.52, Change: 1.83, ChangePct: 0.81, Currency: "USD"},
		"GOOGL": {Symbol: "GOOGL", Company: "Alphabet Inc.", Price: 168.34, Change: -0.92, ChangePct: -0.54, Currency: "USD"},
		"MSFT":  {Symbol: "MSFT", Company: "Microsoft Corporation", Price: 415.10, Change: 2.41, ChangePct: 0.58, Currency: "USD"},
		"TSM":   {Symbol: "TSM", Company: "Taiwan Semiconductor Manufacturing Company", Price: 172.05, Change: 3.12, ChangePct: 1.85, Currency: "USD"},
		"TSLA":  {Symbol: "TSLA", Company: "Tesla, Inc.", Price: 248.98, Change: -4.37, ChangePct: -1.72, Currency: "USD"},
	}
)

// LookupCompany resolves a company name, case-insensitively, against
// the reference dataset.
func (k *Kit) LookupCompany(_ context.Context, in LookupCompanyInput) schema.ToolResult {
	input := map[string]any{"name": in.Name}
	return run(toolLookupCompany, input, func() (map[string]any, error) {
		name := strings.ToLower(strings.TrimSpace(in.Name))
		if name == "" {
			return nil, fmt.Errorf("company name must not be empty")
		}

		profile, ok := companies[name]
		if !ok {
			for key, p := range companies {
				if strings.Contains(name, key) || strings.Contains(strings.ToLower(p.Name), name) {
					profile, ok = p, true
					break
				}
			}
		}
		if !ok {
			return nil, fmt.Errorf("no company profile for %q", in.Name)
		}

		return map[string]any{
			"name":      profile.Name,
			"industry":  profile.Industry,
			"founded":   profile.Founded,
			"hq":        profile.HQ,
			"employees": profile.Employees,
			"symbol":    profile.Symbol,
		}, nil
	})
}

// LookupStock resolves a ticker symbol against the reference dataset.
func (k *Kit) LookupStock(_ context.Context, in LookupStockInput) schema.ToolResult {
	input := map[string]any{"symbol": in.Symbol}
	return run(toolLookupStock, input, func() (map[string]any, error) {
		symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("symbol must not be empty")
		}

		quote, ok := quotes[symbol]
		if !ok {
			return nil, fmt.Errorf("no quote for symbol %q", symbol)
		}

		return map[string]any{
			"symbol":     quote.Symbol,
			"company":    quote.Company,
			"price":      quote.Price,
			"change":     quote.Change,
			"change_pct": quote.ChangePct,
			"currency":   quote.Currency,
		}, nil
	})
}
