// Package plan implements the update_plan tool: the agent's running task
// list, shown to the user as the run progresses.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/vtcode-ai/vtcode/internal/agent"
)

// StepStatus is the lifecycle state of one plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// Step is one entry in the plan.
type Step struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
}

// Store holds the current plan for one agent run. It is safe for
// concurrent access from the tool and from whatever renders progress to
// the user.
type Store struct {
	mu    sync.Mutex
	steps []Step
}

// NewStore creates an empty plan store.
func NewStore() *Store {
	return &Store{}
}

// Steps returns a snapshot of the current plan.
func (s *Store) Steps() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// set replaces the plan, enforcing the at-most-one-in-progress invariant.
func (s *Store) set(steps []Step) error {
	inProgress := 0
	for _, st := range steps {
		if st.Status == StepInProgress {
			inProgress++
		}
	}
	if inProgress > 1 {
		return fmt.Errorf("at most one step may be in_progress, got %d", inProgress)
	}
	s.mu.Lock()
	s.steps = steps
	s.mu.Unlock()
	return nil
}

// UpdatePlanTool lets the agent replace its plan wholesale on every call.
type UpdatePlanTool struct {
	store *Store
}

// NewUpdatePlanTool creates an update_plan tool backed by store.
func NewUpdatePlanTool(store *Store) *UpdatePlanTool {
	if store == nil {
		store = NewStore()
	}
	return &UpdatePlanTool{store: store}
}

func (t *UpdatePlanTool) Name() string { return "update_plan" }

func (t *UpdatePlanTool) Description() string {
	return "Replace the current task plan. At most one step may be in_progress at a time."
}

func (t *UpdatePlanTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"explanation": map[string]interface{}{
				"type":        "string",
				"description": "Short note on why the plan changed.",
			},
			"plan": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"step": map[string]interface{}{
							"type": "string",
						},
						"status": map[string]interface{}{
							"type": "string",
							"enum": []string{"pending", "in_progress", "completed"},
						},
					},
					"required": []string{"step", "status"},
				},
			},
		},
		"required": []string{"plan"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *UpdatePlanTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Explanation string `json:"explanation"`
		Plan        []Step `json:"plan"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if len(input.Plan) == 0 {
		return toolError("plan must contain at least one step"), nil
	}
	for i, st := range input.Plan {
		if strings.TrimSpace(st.Step) == "" {
			return toolError(fmt.Sprintf("plan[%d].step is required", i)), nil
		}
		switch st.Status {
		case StepPending, StepInProgress, StepCompleted:
		default:
			return toolError(fmt.Sprintf("plan[%d].status %q is invalid", i, st.Status)), nil
		}
	}

	if err := t.store.set(input.Plan); err != nil {
		return toolError(err.Error()), nil
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"plan":        input.Plan,
		"explanation": input.Explanation,
	}, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
