package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerhq/seeker/internal/schema"
	"github.com/seekerhq/seeker/internal/tools"
)

type stubProvider struct {
	failWhenContains string
}

func (p *stubProvider) Search(_ context.Context, query string, _ int) ([]schema.SearchResult, error) {
	if p.failWhenContains != "" && strings.Contains(query, p.failWhenContains) {
		return nil, errors.New("backend down")
	}
	return []schema.SearchResult{
		{Title: "Result for " + query, URL: "https://example.com/a", Snippet: "Snippet about " + query + "."},
	}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func newTestEngine(t *testing.T, provider *stubProvider) *Engine {
	t.Helper()
	e, err := NewEngine(Config{Kit: tools.New(tools.Config{Provider: provider})})
	require.NoError(t, err)
	return e
}

func TestRunRetentionCollectsOldest(t *testing.T) {
	e, err := NewEngine(Config{
		Kit:        tools.New(tools.Config{Provider: &stubProvider{}}),
		RetainRuns: 2,
	})
	require.NoError(t, err)

	params := map[string]any{"query": "go"}
	var ids []uuid.UUID
	for range 3 {
		snap, err := e.Execute(context.Background(), TemplateTrendAnalysis, params)
		require.NoError(t, err)
		ids = append(ids, snap.ID)
	}

	// The oldest terminal run is collected once the bound is exceeded.
	_, err = e.Status(ids[0])
	require.ErrorIs(t, err, ErrNotFound)

	for _, id := range ids[1:] {
		snap, err := e.Status(id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, snap.Status)
	}
}

func TestRunRetentionDefaultKeepsRecentRuns(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})

	snap, err := e.Execute(context.Background(), TemplateTrendAnalysis, map[string]any{"query": "go"})
	require.NoError(t, err)

	got, err := e.Status(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func drain(ch <-chan schema.StreamChunk) []schema.StreamChunk {
	var chunks []schema.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

func resultStepIDs(chunks []schema.StreamChunk) []string {
	var ids []string
	for _, c := range chunks {
		if c.Type == schema.ChunkResult {
			ids = append(ids, c.ChunkID)
		}
	}
	return ids
}

func TestTopoOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		want    []int
		wantErr error
	}{
		{
			name: "linear chain",
			steps: []Step{
				{ID: "a"},
				{ID: "b", DependsOn: []string{"a"}},
				{ID: "c", DependsOn: []string{"b"}},
			},
			want: []int{0, 1, 2},
		},
		{
			name: "diamond keeps declared order for ties",
			steps: []Step{
				{ID: "root"},
				{ID: "left", DependsOn: []string{"root"}},
				{ID: "right", DependsOn: []string{"root"}},
				{ID: "join", DependsOn: []string{"left", "right"}},
			},
			want: []int{0, 1, 2, 3},
		},
		{
			name: "dependency declared before dependent",
			steps: []Step{
				{ID: "late", DependsOn: []string{"early"}},
				{ID: "early"},
			},
			want: []int{1, 0},
		},
		{
			name: "cycle",
			steps: []Step{
				{ID: "a", DependsOn: []string{"b"}},
				{ID: "b", DependsOn: []string{"a"}},
			},
			wantErr: ErrCycle,
		},
		{
			name: "self cycle",
			steps: []Step{
				{ID: "a", DependsOn: []string{"a"}},
			},
			wantErr: ErrCycle,
		},
		{
			name: "unknown dependency",
			steps: []Step{
				{ID: "a", DependsOn: []string{"ghost"}},
			},
			wantErr: ErrUnknownDependency,
		},
		{
			name: "duplicate step id",
			steps: []Step{
				{ID: "a"},
				{ID: "a"},
			},
			wantErr: ErrUnknownDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := topoOrder(tt.steps)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, order)
		})
	}
}

func TestBuiltInTemplatesAreValid(t *testing.T) {
	catalog := NewCatalog(tools.New(tools.Config{Provider: &stubProvider{}}))
	require.Len(t, catalog, 5)

	for name, tmpl := range catalog {
		t.Run(name, func(t *testing.T) {
			w := &Workflow{Name: name, Steps: tmpl.Steps}
			assert.NoError(t, w.Validate())
			assert.NotEmpty(t, tmpl.Description)
			assert.NotEmpty(t, tmpl.Required)
		})
	}
}

func TestCatalogListSortedByName(t *testing.T) {
	catalog := NewCatalog(tools.New(tools.Config{Provider: &stubProvider{}}))
	list := catalog.List()

	require.Len(t, list, 5)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}
}

func TestExecuteStreamUnknownTemplate(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})

	_, _, err := e.ExecuteStream(context.Background(), "no_such_template", map[string]any{"query": "x"})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecuteStreamMissingRequiredParam(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})

	_, _, err := e.ExecuteStream(context.Background(), TemplateComprehensiveSearch, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, _, err = e.ExecuteStream(context.Background(), TemplateCompetitiveAnalysis, map[string]any{"query": "apple"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestComprehensiveSearchScenario(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})

	id, ch, err := e.ExecuteStream(context.Background(), TemplateComprehensiveSearch,
		map[string]any{"query": "quantum computing"})
	require.NoError(t, err)

	chunks := drain(ch)
	require.NotEmpty(t, chunks)

	assert.Equal(t, schema.ChunkText, chunks[0].Type)
	assert.Equal(t, []string{
		"search_general",
		"search_news",
		"search_academic",
		"synthesize_results",
		"generate_summary",
	}, resultStepIDs(chunks))
	assert.Equal(t, schema.ChunkSummary, chunks[len(chunks)-1].Type)

	snap, err := e.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	for stepID, state := range snap.StepStates {
		assert.Equal(t, StepCompleted, state, "step %s", stepID)
	}

	summary, ok := chunks[len(chunks)-1].Content.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", summary["status"])
	assert.NotEmpty(t, summary["summary"])
}

func TestStepFailureSkipsDependentsContinuesIndependent(t *testing.T) {
	// The news search is scoped with "latest news", so only that step
	// fails; the academic search is independent and still runs.
	e := newTestEngine(t, &stubProvider{failWhenContains: "latest news"})

	id, ch, err := e.ExecuteStream(context.Background(), TemplateComprehensiveSearch,
		map[string]any{"query": "quantum computing"})
	require.NoError(t, err)

	chunks := drain(ch)
	assert.Equal(t, []string{"search_general", "search_academic"}, resultStepIDs(chunks))

	var errorSteps []string
	for _, c := range chunks {
		if c.Type == schema.ChunkError {
			errorSteps = append(errorSteps, c.ChunkID)
		}
	}
	assert.Equal(t, []string{"search_news"}, errorSteps)

	snap, err := e.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, StepCompleted, snap.StepStates["search_general"])
	assert.Equal(t, StepFailed, snap.StepStates["search_news"])
	assert.Equal(t, StepCompleted, snap.StepStates["search_academic"])
	assert.Equal(t, StepSkipped, snap.StepStates["synthesize_results"])
	assert.Equal(t, StepSkipped, snap.StepStates["generate_summary"])
	assert.Contains(t, snap.Error, "search_news")
}

func TestStatusUnknownRun(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})

	_, err := e.Status(uuid.New())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecuteReturnsFinalSnapshot(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})

	snap, err := e.Execute(context.Background(), TemplateTrendAnalysis, map[string]any{"query": "edge computing"})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.True(t, snap.Outputs["detect_trends"].Success)
	assert.NotZero(t, snap.CompletedAt)
}

func TestCompetitiveAnalysisUsesCompanyProfile(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})

	snap, err := e.Execute(context.Background(), TemplateCompetitiveAnalysis, map[string]any{"company": "apple"})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "Apple Inc.", snap.Outputs["lookup_company"].OutputData["name"])
}

func TestExecuteStreamAbandonment(t *testing.T) {
	e := newTestEngine(t, &stubProvider{})
	ctx, cancel := context.WithCancel(context.Background())

	id, ch, err := e.ExecuteStream(ctx, TemplateComprehensiveSearch, map[string]any{"query": "quantum computing"})
	require.NoError(t, err)

	// Consume one chunk, then walk away.
	<-ch
	cancel()

	assert.Eventually(t, func() bool {
		snap, err := e.Status(id)
		return err == nil && snap.Status == StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	// The stream still terminates for a late reader.
	for range ch {
	}
}
