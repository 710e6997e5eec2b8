// Package assistant composes the search provider, tool kit, agent,
// session store and workflow engine into the application facade used by
// the CLI.
package assistant

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/seekerhq/seeker/internal/agent"
	"github.com/seekerhq/seeker/internal/config"
	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/schema"
	"github.com/seekerhq/seeker/internal/search"
	"github.com/seekerhq/seeker/internal/session"
	"github.com/seekerhq/seeker/internal/tools"
	"github.com/seekerhq/seeker/internal/workflow"
)

// Assistant is the top-level facade. Construct with New, release with
// Close.
type Assistant struct {
	cfg    *config.Config
	logger log.Logger

	store  *session.Store
	agent  *agent.Agent
	engine *workflow.Engine

	stopSweeper context.CancelFunc
}

// New wires the full assistant: model backend, search provider, tools,
// session store with background sweeper, agent and workflow engine.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := provideSearch(cfg, logger)
	if err != nil {
		return nil, err
	}

	return assemble(cfg, logger, g, provider)
}

// assemble builds the component graph. Split from New so tests can
// inject a fake search provider and skip model initialization.
func assemble(cfg *config.Config, logger log.Logger, g *genkit.Genkit, provider search.Provider) (*Assistant, error) {
	kit := tools.New(tools.Config{
		Provider: provider,
		G:        g,
		Model:    cfg.FullModelName(),
		Logger:   logger,
	})

	var refs []ai.ToolRef
	if g != nil {
		refs = kit.Register(g)
	}

	store := session.NewStore(session.Config{
		IdleTimeout: cfg.SessionIdleTimeout,
		Logger:      logger,
	})

	ag, err := agent.New(agent.Config{
		Genkit:   g,
		Model:    cfg.FullModelName(),
		Sessions: store,
		Kit:      kit,
		Tools:    refs,
		Logger:   logger,
		MaxTurns: cfg.MaxTurns,
		Language: cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("building agent: %w", err)
	}

	engine, err := workflow.NewEngine(workflow.Config{Kit: kit, Logger: logger, RetainRuns: cfg.WorkflowRetention})
	if err != nil {
		return nil, fmt.Errorf("building workflow engine: %w", err)
	}

	sweepCtx, cancel := context.WithCancel(context.Background())
	go store.RunSweeper(sweepCtx, cfg.SessionSweepInterval)

	return &Assistant{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		agent:       ag,
		engine:      engine,
		stopSweeper: cancel,
	}, nil
}

// Close stops background work. The Assistant must not be used after
// Close.
func (a *Assistant) Close() {
	a.stopSweeper()
}

// Search answers a one-shot query. Zero-valued fields of cfg fall back
// to the application configuration.
func (a *Assistant) Search(ctx context.Context, query string, cfg schema.SearchConfig) (schema.SearchResults, error) {
	if cfg.MaxResults == 0 {
		cfg.MaxResults = a.cfg.MaxResults
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = a.cfg.RequestTimeout
	}
	if !cfg.IncludeSummary {
		cfg.IncludeSummary = a.cfg.IncludeSummary
	}
	return a.agent.Ask(ctx, query, cfg)
}

// StartConversation allocates a conversation and returns its id.
func (a *Assistant) StartConversation(userID string) uuid.UUID {
	return a.agent.StartConversation(userID)
}

// EndConversation removes a conversation. Unknown ids return
// session.ErrNotFound.
func (a *Assistant) EndConversation(id uuid.UUID) error {
	return a.agent.EndConversation(id)
}

// ConversationStats returns metadata for a conversation.
func (a *Assistant) ConversationStats(id uuid.UUID) (session.Stats, error) {
	return a.store.Stats(id)
}

// Chat runs one conversational turn and returns the reply.
func (a *Assistant) Chat(ctx context.Context, id uuid.UUID, message string) (string, error) {
	return a.agent.Chat(ctx, id, message)
}

// ChatStream runs one conversational turn, delivering the reply as a
// finite chunk stream: text chunks followed by one complete chunk, or
// an error chunk on failure. Cancelling ctx abandons the stream and
// leaves the conversation history unmodified.
func (a *Assistant) ChatStream(ctx context.Context, id uuid.UUID, message string) (<-chan schema.StreamChunk, error) {
	// Resolve the conversation up front so unknown ids fail
	// synchronously.
	if _, err := a.store.Stats(id); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", id, err)
	}

	ch := make(chan schema.StreamChunk, 1)
	go func() {
		defer close(ch)

		seq := 0
		final, err := a.agent.ChatStream(ctx, id, message,
			func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				seq++
				select {
				case ch <- schema.NewChunk(schema.ChunkText, chunk.Text(), fmt.Sprintf("chunk-%d", seq)):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		if err != nil {
			a.logger.Warn("chat stream failed", "conversation_id", id, "error", err)
			select {
			case ch <- schema.NewChunk(schema.ChunkError, err.Error(), ""):
			case <-ctx.Done():
			}
			return
		}

		select {
		case ch <- schema.NewChunk(schema.ChunkComplete, final, ""):
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

// RunWorkflow executes a workflow template to completion.
func (a *Assistant) RunWorkflow(ctx context.Context, template string, params map[string]any) (workflow.Snapshot, error) {
	return a.engine.Execute(ctx, template, params)
}

// WorkflowStream starts a workflow template and streams its progress.
func (a *Assistant) WorkflowStream(ctx context.Context, template string, params map[string]any) (uuid.UUID, <-chan schema.StreamChunk, error) {
	return a.engine.ExecuteStream(ctx, template, params)
}

// WorkflowStatus returns a snapshot of a run. Unknown ids return
// workflow.ErrNotFound.
func (a *Assistant) WorkflowStatus(id uuid.UUID) (workflow.Snapshot, error) {
	return a.engine.Status(id)
}

// WorkflowTemplates lists the built-in templates.
func (a *Assistant) WorkflowTemplates() []workflow.Template {
	return a.engine.Templates()
}
