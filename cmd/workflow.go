package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/schema"
)

// runWorkflow starts a workflow template and streams its progress to
// the terminal.
func runWorkflow(args []string, logger log.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: seeker workflow <template> [key=value ...]")
	}
	template := args[0]
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}

	ctx, cancel, a, err := newAssistant(logger)
	if err != nil {
		return err
	}
	defer cancel()
	defer a.Close()

	return streamWorkflow(ctx, a, template, params, os.Stdout)
}

// runTemplates lists the built-in workflow templates.
func runTemplates(logger log.Logger) error {
	_, cancel, a, err := newAssistant(logger)
	if err != nil {
		return err
	}
	defer cancel()
	defer a.Close()

	printTemplates(os.Stdout, a)
	return nil
}

func printTemplates(w io.Writer, b backend) {
	fmt.Fprintln(w, "Built-in workflow templates:")
	fmt.Fprintln(w)
	for _, t := range b.WorkflowTemplates() {
		fmt.Fprintf(w, "  %s\n", t.Name)
		fmt.Fprintf(w, "      %s\n", t.Description)
		fmt.Fprintf(w, "      Steps: %s\n", strings.Join(t.StepIDs(), " -> "))
		fmt.Fprintf(w, "      Params: %s\n", strings.Join(t.Required, ", "))
	}
}

// parseParams converts key=value arguments into workflow parameters.
func parseParams(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}

// streamWorkflow drains the run's chunk stream, rendering progress as
// it arrives. A failed run returns an error after the stream ends.
func streamWorkflow(ctx context.Context, b backend, template string, params map[string]any, w io.Writer) error {
	id, ch, err := b.WorkflowStream(ctx, template, params)
	if err != nil {
		return fmt.Errorf("workflow %s: %w", template, err)
	}
	fmt.Fprintf(w, "Run ID: %s\n", id)

	var runErr string
	for chunk := range ch {
		switch chunk.Type {
		case schema.ChunkText:
			fmt.Fprintln(w, asText(chunk.Content))
		case schema.ChunkResult:
			if m, ok := chunk.Content.(map[string]any); ok {
				fmt.Fprintf(w, "  done: %s\n", asText(m["step_id"]))
			}
		case schema.ChunkError:
			if m, ok := chunk.Content.(map[string]any); ok {
				fmt.Fprintf(w, "  failed: %s (%s)\n", asText(m["step_id"]), asText(m["message"]))
			}
		case schema.ChunkSummary:
			runErr = printSummary(w, chunk.Content)
		}
	}

	if runErr != "" {
		return fmt.Errorf("workflow %s: %s", template, runErr)
	}
	return nil
}

// printSummary renders the closing summary chunk and returns the run's
// error message, if any.
func printSummary(w io.Writer, content any) string {
	m, ok := content.(map[string]any)
	if !ok {
		return ""
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Status: %s\n", asText(m["status"]))
	if s := asText(m["summary"]); s != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s)
	}
	return asText(m["error"])
}

func asText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
