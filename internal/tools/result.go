package tools

import (
	"fmt"
	"time"

	"github.com/seekerhq/seeker/internal/schema"
)

// run executes a tool body and converts its outcome into a
// schema.ToolResult. A tool never propagates an internal fault past its
// own boundary: errors and panics both surface as Success=false so the
// agent or workflow decides whether to continue.
func run(name string, input map[string]any, fn func() (map[string]any, error)) (result schema.ToolResult) {
	start := time.Now()

	result = schema.ToolResult{
		ToolName:  name,
		InputData: input,
	}

	defer func() {
		result.ExecutionTime = time.Since(start)
		if r := recover(); r != nil {
			result.Success = false
			result.OutputData = map[string]any{}
			result.Error = fmt.Sprintf("tool %s panicked: %v", name, r)
		}
	}()

	output, err := fn()
	if err != nil {
		result.Success = false
		result.OutputData = map[string]any{}
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.OutputData = output
	return result
}
