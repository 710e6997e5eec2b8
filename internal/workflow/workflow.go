// Package workflow implements the multi-step search workflow engine.
// A workflow is a named, fixed list of steps with declared dependencies
// on other steps' outputs. The engine validates the dependency graph,
// executes steps in topological order and streams progress chunks to
// the caller.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/seekerhq/seeker/internal/schema"
)

// Sentinel errors for template resolution and graph validation.
var (
	// ErrNotFound indicates an unknown template name or workflow id.
	ErrNotFound = errors.New("workflow not found")
	// ErrCycle indicates the dependency graph has no valid order.
	ErrCycle = errors.New("workflow dependency cycle")
	// ErrUnknownDependency indicates a dependency on a missing step id.
	ErrUnknownDependency = errors.New("unknown step dependency")
	// ErrInvalidParams indicates missing or malformed workflow
	// parameters, detected before any external call.
	ErrInvalidParams = errors.New("invalid workflow parameters")
)

// StepFunc executes one workflow step. params are the caller-supplied
// workflow parameters; deps holds the outputs of the step's declared
// dependencies, keyed by step id. Faults are reported in the returned
// ToolResult, not as panics.
type StepFunc func(ctx context.Context, params map[string]any, deps map[string]schema.ToolResult) schema.ToolResult

// Step is one node of a workflow. Static after construction.
type Step struct {
	ID        string
	Name      string
	Fn        StepFunc
	DependsOn []string
}

// Workflow is a validated, ordered list of steps.
type Workflow struct {
	ID    uuid.UUID
	Name  string
	Steps []Step
}

// Validate checks that every dependency references an existing step and
// that the graph is acyclic.
func (w *Workflow) Validate() error {
	_, err := topoOrder(w.Steps)
	return err
}

// topoOrder returns step indices in a valid topological order.
// Ties are broken by declared step order, so execution is deterministic
// even when steps are independent.
func topoOrder(steps []Step) ([]int, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if _, dup := index[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate step id %q", ErrUnknownDependency, s.ID)
		}
		index[s.ID] = i
	}

	indegree := make([]int, len(steps))
	for i, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("%w: step %q depends on %q", ErrUnknownDependency, s.ID, dep)
			}
			indegree[i]++
		}
	}

	done := make([]bool, len(steps))
	order := make([]int, 0, len(steps))

	for len(order) < len(steps) {
		picked := -1
		for i := range steps {
			if !done[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked == -1 {
			return nil, fmt.Errorf("%w: no runnable step among the remaining %d", ErrCycle, len(steps)-len(order))
		}

		done[picked] = true
		order = append(order, picked)

		for i, s := range steps {
			if done[i] {
				continue
			}
			for _, dep := range s.DependsOn {
				if dep == steps[picked].ID {
					indegree[i]--
				}
			}
		}
	}

	return order, nil
}
