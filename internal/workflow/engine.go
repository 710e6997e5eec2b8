package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/schema"
	"github.com/seekerhq/seeker/internal/tools"
)

// DefaultRetainRuns is how many terminal runs the engine keeps for
// status queries when Config.RetainRuns is zero.
const DefaultRetainRuns = 64

// Engine resolves workflow templates and executes them, keeping a
// bounded table of runs for status queries. Terminal runs beyond the
// retention count are collected oldest first; their ids then fail with
// ErrNotFound. Safe for concurrent use; each run guards its own state.
type Engine struct {
	mu     sync.RWMutex
	runs   map[uuid.UUID]*run
	done   []uuid.UUID
	retain int

	catalog Catalog
	logger  log.Logger
}

// Config carries the engine dependencies.
type Config struct {
	Kit    *tools.Kit
	Logger log.Logger

	// RetainRuns bounds how many terminal runs stay queryable.
	// Zero means DefaultRetainRuns.
	RetainRuns int
}

// NewEngine builds an Engine with the built-in template catalog.
// Every template's dependency graph is validated up front.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Kit == nil {
		return nil, errors.New("tool kit is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	catalog := NewCatalog(cfg.Kit)
	for name, t := range catalog {
		if _, err := topoOrder(t.Steps); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
	}

	retain := cfg.RetainRuns
	if retain <= 0 {
		retain = DefaultRetainRuns
	}

	return &Engine{
		runs:    make(map[uuid.UUID]*run),
		retain:  retain,
		catalog: catalog,
		logger:  logger,
	}, nil
}

// retire records a run as terminal and collects the oldest terminal
// runs beyond the retention bound.
func (e *Engine) retire(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.done = append(e.done, id)
	for len(e.done) > e.retain {
		delete(e.runs, e.done[0])
		e.done = e.done[1:]
	}
}

// Templates returns the catalog metadata sorted by name.
func (e *Engine) Templates() []Template {
	return e.catalog.List()
}

// Status returns a snapshot of a run. Unknown or already collected
// ids fail with ErrNotFound.
func (e *Engine) Status(id uuid.UUID) (Snapshot, error) {
	e.mu.RLock()
	r, ok := e.runs[id]
	e.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r.snapshot(), nil
}

// ExecuteStream starts the named template and returns the run id plus a
// finite chunk stream. The stream carries a text chunk at start, one
// result chunk per completed step, an error chunk per failed step, and
// ends with a summary chunk. Cancelling ctx abandons the stream; the
// run is then marked failed and in-flight tool calls observe the
// cancellation.
func (e *Engine) ExecuteStream(ctx context.Context, template string, params map[string]any) (uuid.UUID, <-chan schema.StreamChunk, error) {
	t, ok := e.catalog[template]
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("template %q: %w", template, ErrNotFound)
	}

	for _, key := range t.Required {
		if stringParam(params, key) == "" {
			return uuid.Nil, nil, fmt.Errorf("%w: %s requires %q", ErrInvalidParams, template, key)
		}
	}

	order, err := topoOrder(t.Steps)
	if err != nil {
		return uuid.Nil, nil, err
	}

	r := newRun(template, t.Steps)
	e.mu.Lock()
	e.runs[r.id] = r
	e.mu.Unlock()

	ch := make(chan schema.StreamChunk, 1)
	go e.execute(ctx, t, order, params, r, ch)

	e.logger.Info("workflow started", "template", template, "run_id", r.id)
	return r.id, ch, nil
}

// Execute runs a template to completion and returns the final run
// snapshot. Convenience wrapper over ExecuteStream.
func (e *Engine) Execute(ctx context.Context, template string, params map[string]any) (Snapshot, error) {
	id, ch, err := e.ExecuteStream(ctx, template, params)
	if err != nil {
		return Snapshot{}, err
	}
	for range ch {
	}
	return e.Status(id)
}

func (e *Engine) execute(ctx context.Context, t Template, order []int, params map[string]any, r *run, ch chan<- schema.StreamChunk) {
	// The run is terminal on every exit path. Retire before closing
	// the channel so a fully drained stream implies retention has
	// already been applied.
	defer close(ch)
	defer e.retire(r.id)

	// emit delivers a chunk unless the consumer abandoned the stream.
	emit := func(chunk schema.StreamChunk) bool {
		select {
		case ch <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	abandon := func() {
		e.logger.Debug("workflow abandoned", "run_id", r.id, "template", t.Name)
		r.fail("canceled: " + context.Cause(ctx).Error())
	}

	r.setStatus(StatusRunning)
	if !emit(schema.NewChunk(schema.ChunkText, fmt.Sprintf("Starting workflow %s (%d steps)", t.Name, len(t.Steps)), "")) {
		abandon()
		return
	}

	unusable := make(map[string]bool, len(t.Steps))
	failed := false

	for _, idx := range order {
		step := t.Steps[idx]

		if ctx.Err() != nil {
			abandon()
			return
		}

		if blocked := blockedBy(step, unusable); blocked != "" {
			r.setStepState(step.ID, StepSkipped)
			unusable[step.ID] = true
			if !emit(schema.NewChunk(schema.ChunkText,
				fmt.Sprintf("Skipping step %s: dependency %s did not complete", step.ID, blocked), step.ID)) {
				abandon()
				return
			}
			continue
		}

		r.setStepState(step.ID, StepRunning)

		deps := make(map[string]schema.ToolResult, len(step.DependsOn))
		for _, dep := range step.DependsOn {
			deps[dep] = r.snapshotOutput(dep)
		}

		out := step.Fn(ctx, params, deps)
		r.setOutput(step.ID, out)

		if !out.Success {
			r.setStepState(step.ID, StepFailed)
			unusable[step.ID] = true
			if !failed {
				failed = true
				r.fail(fmt.Sprintf("step %s: %s", step.ID, out.Error))
			}
			e.logger.Warn("workflow step failed", "run_id", r.id, "step", step.ID, "error", out.Error)
			if !emit(schema.NewChunk(schema.ChunkError, map[string]any{
				"step_id": step.ID,
				"message": out.Error,
			}, step.ID)) {
				abandon()
				return
			}
			continue
		}

		r.setStepState(step.ID, StepCompleted)
		if !emit(schema.NewChunk(schema.ChunkResult, map[string]any{
			"step_id": step.ID,
			"name":    step.Name,
			"output":  out.OutputData,
		}, step.ID)) {
			abandon()
			return
		}
	}

	if !failed {
		r.setStatus(StatusCompleted)
	}

	emit(schema.NewChunk(schema.ChunkSummary, summaryContent(r.snapshot()), ""))
	e.logger.Info("workflow finished", "run_id", r.id, "status", string(r.snapshot().Status))
}

// blockedBy returns the first dependency that failed or was skipped, or
// "" when the step is runnable.
func blockedBy(step Step, unusable map[string]bool) string {
	for _, dep := range step.DependsOn {
		if unusable[dep] {
			return dep
		}
	}
	return ""
}

// summaryContent builds the closing summary chunk from the final run
// state.
func summaryContent(snap Snapshot) map[string]any {
	var completed, failed, skipped int
	for _, state := range snap.StepStates {
		switch state {
		case StepCompleted:
			completed++
		case StepFailed:
			failed++
		case StepSkipped:
			skipped++
		}
	}

	content := map[string]any{
		"workflow_id":     snap.ID.String(),
		"template":        snap.Template,
		"status":          string(snap.Status),
		"steps_completed": completed,
		"steps_failed":    failed,
		"steps_skipped":   skipped,
	}
	if out, ok := snap.Outputs["generate_summary"]; ok && out.Success {
		if s, ok := out.OutputData["summary"].(string); ok {
			content["summary"] = s
		}
	}
	if snap.Error != "" {
		content["error"] = snap.Error
	}
	return content
}
