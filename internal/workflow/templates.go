package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/seekerhq/seeker/internal/schema"
	"github.com/seekerhq/seeker/internal/tools"
)

// Template is a named workflow definition from the built-in catalog.
type Template struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required_params"`
	Steps       []Step   `json:"-"`
}

// StepIDs returns the template's step ids in declared order.
func (t Template) StepIDs() []string {
	ids := make([]string, len(t.Steps))
	for i, s := range t.Steps {
		ids[i] = s.ID
	}
	return ids
}

// Built-in template names.
const (
	TemplateComprehensiveSearch = "comprehensive_search"
	TemplateMultiSourceAnalysis = "multi_source_analysis"
	TemplateResearchReport      = "research_report"
	TemplateCompetitiveAnalysis = "competitive_analysis"
	TemplateTrendAnalysis       = "trend_analysis"
)

// Catalog is the fixed set of built-in workflow templates. Steps close
// over the tool kit; caller parameters are injected at execution time.
type Catalog map[string]Template

// NewCatalog builds the template catalog on top of kit.
func NewCatalog(kit *tools.Kit) Catalog {
	return Catalog{
		TemplateComprehensiveSearch: {
			Name:        TemplateComprehensiveSearch,
			Description: "Search general, news and academic sources, synthesize the findings and summarize them.",
			Required:    []string{"query"},
			Steps: []Step{
				{ID: "search_general", Name: "General search", Fn: searchStep(kit, schema.SearchGeneral)},
				{ID: "search_news", Name: "News search", Fn: searchStep(kit, schema.SearchNews)},
				{ID: "search_academic", Name: "Academic search", Fn: searchStep(kit, schema.SearchAcademic)},
				{ID: "synthesize_results", Name: "Synthesize results", Fn: synthesizeStep(),
					DependsOn: []string{"search_general", "search_news", "search_academic"}},
				{ID: "generate_summary", Name: "Generate summary", Fn: summaryStep(kit),
					DependsOn: []string{"synthesize_results"}},
			},
		},
		TemplateMultiSourceAnalysis: {
			Name:        TemplateMultiSourceAnalysis,
			Description: "Search two source categories and cross-reference where they agree and differ.",
			Required:    []string{"query"},
			Steps: []Step{
				{ID: "search_general", Name: "General search", Fn: searchStep(kit, schema.SearchGeneral)},
				{ID: "search_news", Name: "News search", Fn: searchStep(kit, schema.SearchNews)},
				{ID: "cross_reference", Name: "Cross-reference sources", Fn: crossReferenceStep(),
					DependsOn: []string{"search_general", "search_news"}},
				{ID: "generate_summary", Name: "Generate summary", Fn: summaryStep(kit),
					DependsOn: []string{"cross_reference"}},
			},
		},
		TemplateResearchReport: {
			Name:        TemplateResearchReport,
			Description: "Gather academic and general material and compose a structured research report.",
			Required:    []string{"query"},
			Steps: []Step{
				{ID: "search_academic", Name: "Academic search", Fn: searchStep(kit, schema.SearchAcademic)},
				{ID: "search_general", Name: "Background search", Fn: searchStep(kit, schema.SearchGeneral)},
				{ID: "compose_report", Name: "Compose report", Fn: reportStep(),
					DependsOn: []string{"search_academic", "search_general"}},
				{ID: "generate_summary", Name: "Generate summary", Fn: summaryStep(kit),
					DependsOn: []string{"compose_report"}},
			},
		},
		TemplateCompetitiveAnalysis: {
			Name:        TemplateCompetitiveAnalysis,
			Description: "Combine a company profile with news and product findings into a competitive picture.",
			Required:    []string{"company"},
			Steps: []Step{
				{ID: "lookup_company", Name: "Company profile", Fn: companyStep(kit)},
				{ID: "search_news", Name: "News search", Fn: companySearchStep(kit, schema.SearchNews)},
				{ID: "search_product", Name: "Product search", Fn: companySearchStep(kit, schema.SearchProduct)},
				{ID: "compare", Name: "Competitive comparison", Fn: compareStep(),
					DependsOn: []string{"lookup_company", "search_news", "search_product"}},
				{ID: "generate_summary", Name: "Generate summary", Fn: summaryStep(kit),
					DependsOn: []string{"compare"}},
			},
		},
		TemplateTrendAnalysis: {
			Name:        TemplateTrendAnalysis,
			Description: "Contrast current coverage with background material to describe the trend.",
			Required:    []string{"query"},
			Steps: []Step{
				{ID: "search_news", Name: "Current coverage", Fn: searchStep(kit, schema.SearchNews)},
				{ID: "search_general", Name: "Background search", Fn: searchStep(kit, schema.SearchGeneral)},
				{ID: "detect_trends", Name: "Detect trends", Fn: trendStep(),
					DependsOn: []string{"search_news", "search_general"}},
				{ID: "generate_summary", Name: "Generate summary", Fn: summaryStep(kit),
					DependsOn: []string{"detect_trends"}},
			},
		},
	}
}

// List returns template metadata sorted by name.
func (c Catalog) List() []Template {
	out := make([]Template, 0, len(c))
	for _, t := range c {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return strings.TrimSpace(s)
}

// searchStep runs one typed search over the "query" parameter.
func searchStep(kit *tools.Kit, searchType schema.SearchType) StepFunc {
	return func(ctx context.Context, params map[string]any, _ map[string]schema.ToolResult) schema.ToolResult {
		return kit.SmartSearch(ctx, tools.SmartSearchInput{
			Query:      stringParam(params, "query"),
			SearchType: string(searchType),
		})
	}
}

// companySearchStep searches for the "company" parameter instead of a
// free-form query.
func companySearchStep(kit *tools.Kit, searchType schema.SearchType) StepFunc {
	return func(ctx context.Context, params map[string]any, _ map[string]schema.ToolResult) schema.ToolResult {
		return kit.SmartSearch(ctx, tools.SmartSearchInput{
			Query:      stringParam(params, "company"),
			SearchType: string(searchType),
		})
	}
}

func companyStep(kit *tools.Kit) StepFunc {
	return func(ctx context.Context, params map[string]any, _ map[string]schema.ToolResult) schema.ToolResult {
		return kit.LookupCompany(ctx, tools.LookupCompanyInput{Name: stringParam(params, "company")})
	}
}

// depText pulls the most useful text out of a dependency output.
func depText(tr schema.ToolResult) string {
	for _, key := range []string{"synthesis", "report", "comparison", "trends", "main_content", "summary"} {
		if s, ok := tr.OutputData[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func collectSections(deps map[string]schema.ToolResult, order []string) []string {
	var sections []string
	for _, id := range order {
		if text := depText(deps[id]); text != "" {
			sections = append(sections, fmt.Sprintf("## %s\n%s", id, text))
		}
	}
	return sections
}

func depOrder(deps map[string]schema.ToolResult) []string {
	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func aggregateStep(name, key, empty string, render func(sections []string) string) StepFunc {
	return func(_ context.Context, _ map[string]any, deps map[string]schema.ToolResult) schema.ToolResult {
		return runAggregate(name, deps, func() (map[string]any, error) {
			sections := collectSections(deps, depOrder(deps))
			if len(sections) == 0 {
				return nil, fmt.Errorf("%s", empty)
			}
			return map[string]any{
				key:            render(sections),
				"source_count": len(sections),
			}, nil
		})
	}
}

// runAggregate mirrors the tool result envelope for engine-local steps
// that do not call a tool.
func runAggregate(name string, deps map[string]schema.ToolResult, fn func() (map[string]any, error)) schema.ToolResult {
	input := make(map[string]any, len(deps))
	for id := range deps {
		input[id] = "output of " + id
	}

	out, err := fn()
	if err != nil {
		return schema.ToolResult{ToolName: name, InputData: input, Success: false, OutputData: map[string]any{}, Error: err.Error()}
	}
	return schema.ToolResult{ToolName: name, InputData: input, Success: true, OutputData: out}
}

func synthesizeStep() StepFunc {
	return aggregateStep("synthesize_results", "synthesis",
		"no upstream search produced any content",
		func(sections []string) string {
			return "# Combined findings\n\n" + strings.Join(sections, "\n\n")
		})
}

func crossReferenceStep() StepFunc {
	return aggregateStep("cross_reference", "comparison",
		"no sources to cross-reference",
		func(sections []string) string {
			return "# Source comparison\n\n" + strings.Join(sections, "\n\n")
		})
}

func reportStep() StepFunc {
	return aggregateStep("compose_report", "report",
		"no material to report on",
		func(sections []string) string {
			return "# Research report\n\n" + strings.Join(sections, "\n\n")
		})
}

func compareStep() StepFunc {
	return aggregateStep("compare", "comparison",
		"no competitive data gathered",
		func(sections []string) string {
			return "# Competitive picture\n\n" + strings.Join(sections, "\n\n")
		})
}

func trendStep() StepFunc {
	return aggregateStep("detect_trends", "trends",
		"no coverage to analyze",
		func(sections []string) string {
			return "# Trend analysis\n\n" + strings.Join(sections, "\n\n")
		})
}

// summaryStep condenses the upstream text via the summarize tool.
func summaryStep(kit *tools.Kit) StepFunc {
	return func(ctx context.Context, _ map[string]any, deps map[string]schema.ToolResult) schema.ToolResult {
		var text string
		for _, id := range depOrder(deps) {
			if t := depText(deps[id]); t != "" {
				text = t
				break
			}
		}
		return kit.Summarize(ctx, tools.SummarizeInput{Text: text})
	}
}
