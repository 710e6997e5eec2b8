package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerhq/seeker/internal/schema"
	"github.com/seekerhq/seeker/internal/session"
	"github.com/seekerhq/seeker/internal/tools"
	"github.com/seekerhq/seeker/internal/workflow"
)

// fakeBackend scripts the assistant surface the commands depend on.
type fakeBackend struct {
	searchResult schema.SearchResults
	searchErr    error
	searchCalls  int

	replies   []string
	chatErr   error
	chatCalls int

	workflowChunks []schema.StreamChunk
	workflowErr    error

	conversations map[uuid.UUID]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{conversations: make(map[uuid.UUID]int)}
}

func (f *fakeBackend) Search(_ context.Context, _ string, _ schema.SearchConfig) (schema.SearchResults, error) {
	f.searchCalls++
	return f.searchResult, f.searchErr
}

func (f *fakeBackend) StartConversation(string) uuid.UUID {
	id := uuid.New()
	f.conversations[id] = 0
	return id
}

func (f *fakeBackend) EndConversation(id uuid.UUID) error {
	if _, ok := f.conversations[id]; !ok {
		return session.ErrNotFound
	}
	delete(f.conversations, id)
	return nil
}

func (f *fakeBackend) ConversationStats(id uuid.UUID) (session.Stats, error) {
	count, ok := f.conversations[id]
	if !ok {
		return session.Stats{}, session.ErrNotFound
	}
	return session.Stats{
		ID:           id,
		UserID:       "local",
		CreatedAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		LastActiveAt: time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC),
		MessageCount: count,
	}, nil
}

func (f *fakeBackend) ChatStream(_ context.Context, id uuid.UUID, _ string) (<-chan schema.StreamChunk, error) {
	if _, ok := f.conversations[id]; !ok {
		return nil, session.ErrNotFound
	}
	f.chatCalls++

	ch := make(chan schema.StreamChunk, 8)
	go func() {
		defer close(ch)
		if f.chatErr != nil {
			ch <- schema.NewChunk(schema.ChunkError, f.chatErr.Error(), "")
			return
		}
		reply := "ok"
		if len(f.replies) > 0 {
			reply = f.replies[(f.chatCalls-1)%len(f.replies)]
		}
		for i, word := range strings.SplitAfter(reply, " ") {
			ch <- schema.NewChunk(schema.ChunkText, word, string(rune('a'+i)))
		}
		ch <- schema.NewChunk(schema.ChunkComplete, reply, "")
	}()
	f.conversations[id] += 2
	return ch, nil
}

func (f *fakeBackend) WorkflowStream(_ context.Context, template string, _ map[string]any) (uuid.UUID, <-chan schema.StreamChunk, error) {
	if f.workflowErr != nil {
		return uuid.Nil, nil, f.workflowErr
	}
	ch := make(chan schema.StreamChunk, len(f.workflowChunks))
	for _, chunk := range f.workflowChunks {
		ch <- chunk
	}
	close(ch)
	return uuid.New(), ch, nil
}

func (f *fakeBackend) WorkflowTemplates() []workflow.Template {
	return []workflow.Template{
		{
			Name:        "comprehensive_search",
			Description: "Search several angles and synthesize the findings",
			Required:    []string{"query"},
			Steps:       []workflow.Step{{ID: "search_general"}, {ID: "generate_summary"}},
		},
		{
			Name:        "competitive_analysis",
			Description: "Compare a company against its market",
			Required:    []string{"company"},
			Steps:       []workflow.Step{{ID: "lookup_company"}},
		},
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "key value pairs",
			args: []string{"query=go generics", "company=apple"},
			want: map[string]any{"query": "go generics", "company": "apple"},
		},
		{
			name: "value containing equals",
			args: []string{"query=a=b"},
			want: map[string]any{"query": "a=b"},
		},
		{
			name: "empty args",
			args: nil,
			want: map[string]any{},
		},
		{
			name:    "missing separator",
			args:    []string{"query"},
			wantErr: true,
		},
		{
			name:    "empty key",
			args:    []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunHelpListsCommands(t *testing.T) {
	var buf bytes.Buffer
	runHelp(&buf)

	out := buf.String()
	for _, want := range []string{"seeker search", "seeker workflow", "seeker templates", "seeker interactive", "TAVILY_API_KEY"} {
		assert.Contains(t, out, want)
	}
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	runVersion(&buf)

	out := buf.String()
	assert.Contains(t, out, "Seeker v"+AppVersion)
	assert.Contains(t, out, "Build:")
	assert.Contains(t, out, "Commit:")
}

func TestSearchAndPrintRendersSources(t *testing.T) {
	b := newFakeBackend()
	b.searchResult = schema.SearchResults{
		MainContent: "Generics arrived in Go 1.18.",
		Results: []schema.SearchResult{
			{Title: "Go 1.18 Release Notes", URL: "https://go.dev/doc/go1.18", Snippet: "Type parameters."},
		},
	}

	var buf bytes.Buffer
	err := searchAndPrint(context.Background(), b, "go generics", schema.SearchConfig{}, false, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Generics arrived in Go 1.18.")
	assert.Contains(t, out, "[1] Go 1.18 Release Notes")
	assert.Contains(t, out, "https://go.dev/doc/go1.18")
}

func TestSearchAndPrintJSON(t *testing.T) {
	b := newFakeBackend()
	b.searchResult = schema.SearchResults{MainContent: "answer"}

	var buf bytes.Buffer
	err := searchAndPrint(context.Background(), b, "q", schema.SearchConfig{}, true, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"main_content": "answer"`)
}

func TestSearchAndPrintPropagatesError(t *testing.T) {
	b := newFakeBackend()
	b.searchErr = errors.New("provider down")

	var buf bytes.Buffer
	err := searchAndPrint(context.Background(), b, "q", schema.SearchConfig{}, false, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestPrintTemplates(t *testing.T) {
	var buf bytes.Buffer
	printTemplates(&buf, newFakeBackend())

	out := buf.String()
	assert.Contains(t, out, "comprehensive_search")
	assert.Contains(t, out, "search_general -> generate_summary")
	assert.Contains(t, out, "Params: query\n")
	assert.Contains(t, out, "Params: company\n")
	assert.NotContains(t, out, "query, query")
	assert.NotContains(t, out, "query, company")
}

// catalogBackend serves the real built-in template catalog so the
// listing output is checked against what the engine actually ships.
type catalogBackend struct{ *fakeBackend }

func (c catalogBackend) WorkflowTemplates() []workflow.Template {
	return workflow.NewCatalog(tools.New(tools.Config{})).List()
}

func TestPrintTemplatesBuiltInCatalog(t *testing.T) {
	var buf bytes.Buffer
	printTemplates(&buf, catalogBackend{newFakeBackend()})

	out := buf.String()
	for _, name := range []string{
		workflow.TemplateComprehensiveSearch,
		workflow.TemplateMultiSourceAnalysis,
		workflow.TemplateResearchReport,
		workflow.TemplateCompetitiveAnalysis,
		workflow.TemplateTrendAnalysis,
	} {
		assert.Contains(t, out, name)
	}

	// Each template advertises exactly its declared required params.
	assert.NotContains(t, out, "query, query")
	assert.NotContains(t, out, "query, company")
	assert.Equal(t, 4, strings.Count(out, "Params: query\n"))
	assert.Equal(t, 1, strings.Count(out, "Params: company\n"))
}

func TestStreamWorkflowRendersProgress(t *testing.T) {
	b := newFakeBackend()
	b.workflowChunks = []schema.StreamChunk{
		schema.NewChunk(schema.ChunkText, "Starting workflow comprehensive_search (2 steps)", ""),
		schema.NewChunk(schema.ChunkResult, map[string]any{"step_id": "search_general"}, "search_general"),
		schema.NewChunk(schema.ChunkSummary, map[string]any{
			"status":  "completed",
			"summary": "Two sources agree.",
		}, ""),
	}

	var buf bytes.Buffer
	err := streamWorkflow(context.Background(), b, "comprehensive_search", map[string]any{"query": "x"}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Run ID:")
	assert.Contains(t, out, "done: search_general")
	assert.Contains(t, out, "Status: completed")
	assert.Contains(t, out, "Two sources agree.")
}

func TestStreamWorkflowFailedRunReturnsError(t *testing.T) {
	b := newFakeBackend()
	b.workflowChunks = []schema.StreamChunk{
		schema.NewChunk(schema.ChunkError, map[string]any{"step_id": "search_news", "message": "boom"}, "search_news"),
		schema.NewChunk(schema.ChunkSummary, map[string]any{
			"status": "failed",
			"error":  "step search_news: boom",
		}, ""),
	}

	var buf bytes.Buffer
	err := streamWorkflow(context.Background(), b, "comprehensive_search", map[string]any{"query": "x"}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search_news")
	assert.Contains(t, buf.String(), "failed: search_news (boom)")
}

func TestStreamWorkflowUnknownTemplate(t *testing.T) {
	b := newFakeBackend()
	b.workflowErr = workflow.ErrNotFound

	var buf bytes.Buffer
	err := streamWorkflow(context.Background(), b, "nope", nil, &buf)
	require.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestRunLoopChatAndExit(t *testing.T) {
	b := newFakeBackend()
	b.replies = []string{"hello there"}

	in := strings.NewReader("hi\n/exit\n")
	var out bytes.Buffer
	err := runLoop(context.Background(), b, in, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "hello there")
	assert.Contains(t, out.String(), "Goodbye!")
	assert.Equal(t, 1, b.chatCalls)
	assert.Empty(t, b.conversations, "conversation should be ended on exit")
}

func TestRunLoopSurvivesFailedQuery(t *testing.T) {
	b := newFakeBackend()
	b.chatErr = errors.New("model unavailable")
	b.searchErr = errors.New("provider down")

	in := strings.NewReader("hi\n/search go\n/stats\n/exit\n")
	var out bytes.Buffer
	err := runLoop(context.Background(), b, in, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "model unavailable")
	assert.Contains(t, text, "provider down")
	assert.Contains(t, text, "Messages:", "loop should keep serving commands after failures")
}

func TestRunLoopSlashCommands(t *testing.T) {
	b := newFakeBackend()

	in := strings.NewReader("/help\n/version\n/templates\n/bogus\n/new\n/exit\n")
	var out bytes.Buffer
	err := runLoop(context.Background(), b, in, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "/workflow <template>")
	assert.Contains(t, text, "Seeker v")
	assert.Contains(t, text, "comprehensive_search")
	assert.Contains(t, text, "Unknown command: /bogus")
	assert.Contains(t, text, "Started a new conversation.")
}

func TestRunLoopEOFExits(t *testing.T) {
	b := newFakeBackend()

	var out bytes.Buffer
	err := runLoop(context.Background(), b, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Goodbye!")
}
