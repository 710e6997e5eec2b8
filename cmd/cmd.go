// Package cmd provides the seeker CLI commands.
//
// Commands:
//   - search: one-shot search with an optional model-written summary
//   - workflow: run a built-in workflow template with streamed progress
//   - templates: list the built-in workflow templates
//   - interactive: conversational REPL with slash commands
//
// All commands handle SIGINT/SIGTERM via context cancellation.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/seekerhq/seeker/internal/assistant"
	"github.com/seekerhq/seeker/internal/config"
	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/schema"
	"github.com/seekerhq/seeker/internal/session"
	"github.com/seekerhq/seeker/internal/workflow"
)

// backend is the surface of assistant.Assistant the commands use.
// Tests substitute a fake.
type backend interface {
	Search(ctx context.Context, query string, cfg schema.SearchConfig) (schema.SearchResults, error)
	StartConversation(userID string) uuid.UUID
	EndConversation(id uuid.UUID) error
	ConversationStats(id uuid.UUID) (session.Stats, error)
	ChatStream(ctx context.Context, id uuid.UUID, message string) (<-chan schema.StreamChunk, error)
	WorkflowStream(ctx context.Context, template string, params map[string]any) (uuid.UUID, <-chan schema.StreamChunk, error)
	WorkflowTemplates() []workflow.Template
}

// Execute is the main entry point for the seeker CLI.
func Execute() error {
	// A missing .env file is not an error; the environment may already
	// carry the keys.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" || os.Getenv("SEEKER_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp(os.Stdout)
		return nil
	}

	switch os.Args[1] {
	case "search":
		return runSearch(os.Args[2:], logger)
	case "workflow":
		return runWorkflow(os.Args[2:], logger)
	case "templates":
		return runTemplates(logger)
	case "interactive":
		return runInteractive(logger)
	case "version", "--version", "-v":
		runVersion(os.Stdout)
		return nil
	case "help", "--help", "-h":
		runHelp(os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// newAssistant loads configuration and assembles the full assistant.
// The returned context cancels on SIGINT/SIGTERM.
func newAssistant(logger log.Logger) (context.Context, context.CancelFunc, *assistant.Assistant, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	a, err := assistant.New(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("initialize assistant: %w", err)
	}
	return ctx, cancel, a, nil
}
