package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seekerhq/seeker/internal/schema"
)

// Status is the lifecycle state of a workflow run.
type Status string

// Run lifecycle states.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepState is the per-step execution state within a run.
type StepState string

// Per-step states. A step is skipped when one of its dependencies
// failed or was itself skipped.
const (
	StepPending   StepState = "pending"
	StepRunning   StepState = "running"
	StepCompleted StepState = "completed"
	StepFailed    StepState = "failed"
	StepSkipped   StepState = "skipped"
)

// Run is the mutable runtime instance of a workflow. All access goes
// through its mutex; Snapshot returns a consistent copy for callers.
type run struct {
	mu sync.Mutex

	id          uuid.UUID
	template    string
	status      Status
	currentStep string
	stepStates  map[string]StepState
	outputs     map[string]schema.ToolResult
	err         string
	startedAt   time.Time
	completedAt time.Time
}

// Snapshot is a point-in-time copy of a run's state.
type Snapshot struct {
	ID          uuid.UUID                    `json:"workflow_id"`
	Template    string                       `json:"template"`
	Status      Status                       `json:"status"`
	CurrentStep string                       `json:"current_step,omitempty"`
	StepStates  map[string]StepState         `json:"step_states"`
	Outputs     map[string]schema.ToolResult `json:"outputs"`
	Error       string                       `json:"error,omitempty"`
	StartedAt   time.Time                    `json:"started_at"`
	CompletedAt time.Time                    `json:"completed_at,omitempty"`
}

func newRun(template string, steps []Step) *run {
	states := make(map[string]StepState, len(steps))
	for _, s := range steps {
		states[s.ID] = StepPending
	}
	return &run{
		id:         uuid.New(),
		template:   template,
		status:     StatusPending,
		stepStates: states,
		outputs:    make(map[string]schema.ToolResult, len(steps)),
		startedAt:  time.Now(),
	}
}

func (r *run) setStepState(id string, state StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepStates[id] = state
	if state == StepRunning {
		r.currentStep = id
	}
}

func (r *run) setOutput(id string, out schema.ToolResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[id] = out
}

func (r *run) snapshotOutput(id string) schema.ToolResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputs[id]
}

func (r *run) setStatus(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	if status == StatusCompleted || status == StatusFailed {
		r.currentStep = ""
		r.completedAt = time.Now()
	}
}

func (r *run) fail(msg string) {
	r.mu.Lock()
	r.err = msg
	r.mu.Unlock()
	r.setStatus(StatusFailed)
}

func (r *run) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]StepState, len(r.stepStates))
	for k, v := range r.stepStates {
		states[k] = v
	}
	outputs := make(map[string]schema.ToolResult, len(r.outputs))
	for k, v := range r.outputs {
		outputs[k] = v
	}

	return Snapshot{
		ID:          r.id,
		Template:    r.template,
		Status:      r.status,
		CurrentStep: r.currentStep,
		StepStates:  states,
		Outputs:     outputs,
		Error:       r.err,
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
	}
}
