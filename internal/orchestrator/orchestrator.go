// Package orchestrator creates and dispatches tasks to sub-runners (see
// internal/runner), each typed Explorer (read-only capability subset) or
// Coder (full capability subset), and carries context and handoff summaries
// between them.
//
// Grounded on internal/multiagent/orchestrator.go's task-dispatch shape
// (RegisterAgent/GetRuntime-style bookkeeping under a mutex) and
// internal/multiagent/types.go's Task/ContextItem-adjacent vocabulary,
// generalized to the create_task/launch_subagent lifecycle this component
// requires rather than the teacher's supervisor/peer-handoff model.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/contextstore"
	"github.com/vtcode-ai/vtcode/internal/runner"
	"github.com/vtcode-ai/vtcode/internal/snapshot"
	"github.com/vtcode-ai/vtcode/internal/tools"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
)

// AgentType selects the capability subset a sub-task's runner is granted.
type AgentType string

const (
	AgentExplorer AgentType = "explorer"
	AgentCoder    AgentType = "coder"
)

// TaskStatus is a sub-task's position in its lifecycle.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// ContextItemKind tags why a ContextItem was inserted.
type ContextItemKind string

const (
	ContextKindAnalysis       ContextItemKind = "analysis"
	ContextKindImplementation ContextItemKind = "implementation"
	ContextKindSummary        ContextItemKind = "summary"
	ContextKindHandoff        ContextItemKind = "handoff"
)

// ContextItem is one entry in the orchestrator's id-addressed context store.
type ContextItem struct {
	ID        string
	Kind      ContextItemKind
	Content   string
	CreatedBy string
	CreatedAt time.Time
}

// Task is one unit of delegated work.
type Task struct {
	ID          string
	AgentType   AgentType
	Title       string
	Description string
	ContextRefs []string
	Bootstrap   string
	Priority    int
	Status      TaskStatus
	Error       string
	Result      *runner.TaskResult
}

// maxHandoffSummaries bounds the shared_summary buffer; only the most
// recent handoffs are carried into the next sub-agent's prompt.
const maxHandoffSummaries = 5

// Config wires the dependencies every sub-task's runner shares.
type Config struct {
	Registry     *tools.Registry
	Snapshots    *snapshot.Manager
	Primary      agent.LLMProvider
	Fallback     agent.LLMProvider
	Model        string
	MaxToolLoops int
}

// Orchestrator holds the pending/active task set, the id-addressed context
// store, and the bounded handoff-summary buffer for one run.
//
// Invariant: an Orchestrator can never launch another Orchestrator or a
// bare runner.Runner as a "sub-agent provider" — Config.Primary/Fallback
// are typed agent.LLMProvider, and neither *Orchestrator nor *runner.Runner
// implements that interface, so the type system rules it out rather than a
// runtime check.
type Orchestrator struct {
	mu   sync.Mutex
	cfg  Config
	idFn func() string

	tasks         map[string]*Task
	contexts      map[string]*ContextItem
	sharedSummary []string
}

// New creates an Orchestrator. cfg.Primary must be non-nil; cfg.Fallback is
// optional (nil disables the fallback attempt).
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		idFn:     uuid.NewString,
		tasks:    make(map[string]*Task),
		contexts: make(map[string]*ContextItem),
	}
}

// CreateTask stores a new Pending task and returns it.
func (o *Orchestrator) CreateTask(agentType AgentType, title, description string, contextRefs []string, bootstrap string, priority int) *Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	task := &Task{
		ID:          o.idFn(),
		AgentType:   agentType,
		Title:       title,
		Description: description,
		ContextRefs: append([]string(nil), contextRefs...),
		Bootstrap:   bootstrap,
		Priority:    priority,
		Status:      TaskPending,
	}
	o.tasks[task.ID] = task
	return task
}

// Task returns a snapshot of a stored task by id.
func (o *Orchestrator) Task(id string) (*Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	task, ok := o.tasks[id]
	if !ok {
		return nil, false
	}
	clone := *task
	return &clone, true
}

// ContextItem returns a stored context item by id.
func (o *Orchestrator) ContextItem(id string) (*ContextItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.contexts[id]
	return item, ok
}

// LaunchSubagent transitions task to InProgress, constructs a runner scoped
// to its agent type, and executes it with the referenced contexts and the
// most recent handoff summaries folded into its system prompt. On return it
// records the sub-agent's context/summary/handoff artifacts and transitions
// the task to Completed or Failed.
func (o *Orchestrator) LaunchSubagent(ctx context.Context, taskID string) (*runner.TaskResult, error) {
	o.mu.Lock()
	task, ok := o.tasks[taskID]
	if !ok {
		o.mu.Unlock()
		return nil, fmt.Errorf("orchestrator: unknown task %q", taskID)
	}
	task.Status = TaskInProgress

	var contextBody strings.Builder
	for _, ref := range task.ContextRefs {
		if item, ok := o.contexts[ref]; ok {
			contextBody.WriteString(item.Content)
			contextBody.WriteString("\n")
		}
	}
	handoffs := o.lastHandoffSummariesLocked()
	o.mu.Unlock()

	var provider agent.LLMProvider = &failoverProvider{primary: o.cfg.Primary, fallback: o.cfg.Fallback}

	toolPolicy := policy.NewPolicy(policy.ProfileFull)
	if task.AgentType == AgentExplorer {
		toolPolicy = policy.NewPolicy(policy.ProfileReadOnly)
	}

	run := runner.New(runner.Config{
		Provider:     provider,
		Registry:     o.cfg.Registry,
		ToolPolicy:   toolPolicy,
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Snapshots:    o.cfg.Snapshots,
		Model:        o.cfg.Model,
		MaxToolLoops: o.cfg.MaxToolLoops,
	})

	systemPrompt := buildSystemPrompt(task, contextBody.String(), handoffs)
	result, err := run.Run(ctx, task.Description, systemPrompt)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		task.Status = TaskFailed
		task.Error = err.Error()
		return nil, err
	}

	task.Result = result
	task.Status = TaskCompleted

	kind := ContextKindImplementation
	if task.AgentType == AgentExplorer {
		kind = ContextKindAnalysis
	}
	for _, ref := range result.CreatedContexts {
		o.contexts[ref] = &ContextItem{ID: ref, Kind: kind, Content: result.Summary, CreatedBy: task.ID, CreatedAt: time.Now()}
	}

	summaryID := task.ID + "_summary"
	o.contexts[summaryID] = &ContextItem{ID: summaryID, Kind: ContextKindSummary, Content: result.Summary, CreatedBy: task.ID, CreatedAt: time.Now()}

	handoffID := task.ID + "_handoff"
	handoffContent := buildHandoffContent(task, result)
	o.contexts[handoffID] = &ContextItem{ID: handoffID, Kind: ContextKindHandoff, Content: handoffContent, CreatedBy: task.ID, CreatedAt: time.Now()}
	o.pushHandoffSummaryLocked(handoffContent)

	return result, nil
}

// lastHandoffSummariesLocked must be called with o.mu held.
func (o *Orchestrator) lastHandoffSummariesLocked() []string {
	if len(o.sharedSummary) <= maxHandoffSummaries {
		out := make([]string, len(o.sharedSummary))
		copy(out, o.sharedSummary)
		return out
	}
	start := len(o.sharedSummary) - maxHandoffSummaries
	out := make([]string, maxHandoffSummaries)
	copy(out, o.sharedSummary[start:])
	return out
}

// pushHandoffSummaryLocked must be called with o.mu held. It keeps the
// buffer bounded to maxHandoffSummaries entries.
func (o *Orchestrator) pushHandoffSummaryLocked(summary string) {
	o.sharedSummary = append(o.sharedSummary, summary)
	if len(o.sharedSummary) > maxHandoffSummaries {
		o.sharedSummary = o.sharedSummary[len(o.sharedSummary)-maxHandoffSummaries:]
	}
}

func buildSystemPrompt(task *Task, contextBody string, handoffs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s sub-agent working on: %s\n", task.AgentType, task.Title)
	if task.Bootstrap != "" {
		b.WriteString(task.Bootstrap)
		b.WriteString("\n")
	}
	if contextBody != "" {
		b.WriteString("Referenced context:\n")
		b.WriteString(contextBody)
	}
	if len(handoffs) > 0 {
		b.WriteString("Recent handoffs from other sub-agents:\n")
		for _, h := range handoffs {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func buildHandoffContent(task *Task, result *runner.TaskResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", task.AgentType, task.Title, result.Summary)
	if len(result.ModifiedFiles) > 0 {
		fmt.Fprintf(&b, " (modified: %s)", strings.Join(result.ModifiedFiles, ", "))
	}
	return b.String()
}
