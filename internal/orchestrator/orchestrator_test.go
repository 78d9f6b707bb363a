package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/tools"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
	"github.com/vtcode-ai/vtcode/pkg/models"
)

// scriptedProvider fails failCount times (if failCount > 0) before
// replaying chunks on every subsequent call.
type scriptedProvider struct {
	name      string
	chunks    []*agent.CompletionChunk
	failCount int
	calls     int
}

func (p *scriptedProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	p.calls++
	if p.calls <= p.failCount {
		return nil, errors.New("scriptedProvider: scripted failure")
	}
	out := make(chan *agent.CompletionChunk, len(p.chunks))
	for _, c := range p.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func (p *scriptedProvider) Name() string          { return p.name }
func (p *scriptedProvider) Models() []agent.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool    { return true }

// mutateTool always succeeds; used to confirm an Explorer task's read-only
// policy denies it before it ever executes.
type mutateTool struct{ executed int }

func (t *mutateTool) Name() string            { return "write_file" }
func (t *mutateTool) Description() string     { return "pretends to write a file" }
func (t *mutateTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *mutateTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	t.executed++
	return &agent.ToolResult{Content: "wrote"}, nil
}

func newTestRegistry(t *testing.T, toolList ...agent.Tool) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(policy.NewResolver())
	for _, tool := range toolList {
		if err := reg.Register(tool); err != nil {
			t.Fatalf("register %s: %v", tool.Name(), err)
		}
	}
	return reg
}

func TestOrchestrator_LaunchSubagentCompletesTaskAndRecordsHandoff(t *testing.T) {
	provider := &scriptedProvider{
		name:   "primary",
		chunks: []*agent.CompletionChunk{{Text: "task completed", Done: true}},
	}
	o := New(Config{
		Registry:     newTestRegistry(t),
		Primary:      provider,
		Model:        "test-model",
		MaxToolLoops: 5,
	})

	task := o.CreateTask(AgentExplorer, "survey the repo", "find all TODOs", nil, "", 1)
	if task.Status != TaskPending {
		t.Fatalf("expected new task to be Pending, got %s", task.Status)
	}

	result, err := o.LaunchSubagent(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("LaunchSubagent() error: %v", err)
	}
	if result.Summary != "task completed" {
		t.Errorf("expected summary %q, got %q", "task completed", result.Summary)
	}

	stored, ok := o.Task(task.ID)
	if !ok {
		t.Fatal("expected task to still be stored")
	}
	if stored.Status != TaskCompleted {
		t.Errorf("expected task to be Completed, got %s", stored.Status)
	}

	handoffID := task.ID + "_handoff"
	item, ok := o.ContextItem(handoffID)
	if !ok {
		t.Fatalf("expected a handoff context item under %q", handoffID)
	}
	if item.Kind != ContextKindHandoff {
		t.Errorf("expected handoff kind, got %s", item.Kind)
	}

	summaryID := task.ID + "_summary"
	if _, ok := o.ContextItem(summaryID); !ok {
		t.Fatalf("expected a summary context item under %q", summaryID)
	}
}

func TestOrchestrator_ExplorerTaskDeniedMutatingTool(t *testing.T) {
	toolCall := &models.ToolCall{ID: "1", Name: "write_file", Input: json.RawMessage(`{}`)}
	mutate := &mutateTool{}
	provider := &scriptedProvider{
		name:   "primary",
		chunks: []*agent.CompletionChunk{{ToolCall: toolCall}, {Done: true}},
	}

	o := New(Config{
		Registry:     newTestRegistry(t, mutate),
		Primary:      provider,
		Model:        "test-model",
		MaxToolLoops: 1,
	})
	task := o.CreateTask(AgentExplorer, "look only", "inspect the repo", nil, "", 0)

	if _, err := o.LaunchSubagent(context.Background(), task.ID); err != nil {
		t.Fatalf("LaunchSubagent() error: %v", err)
	}
	if mutate.executed != 0 {
		t.Errorf("expected the read-only policy to deny write_file before execution, got %d calls", mutate.executed)
	}
}

func TestOrchestrator_HandoffBufferStaysBounded(t *testing.T) {
	o := New(Config{
		Registry:     newTestRegistry(t),
		Primary:      &scriptedProvider{name: "primary", chunks: []*agent.CompletionChunk{{Text: "task completed", Done: true}}},
		Model:        "test-model",
		MaxToolLoops: 5,
	})

	for i := 0; i < maxHandoffSummaries+3; i++ {
		task := o.CreateTask(AgentCoder, "task "+strconv.Itoa(i), "do work", nil, "", 0)
		if _, err := o.LaunchSubagent(context.Background(), task.ID); err != nil {
			t.Fatalf("LaunchSubagent(%d) error: %v", i, err)
		}
	}

	o.mu.Lock()
	got := len(o.sharedSummary)
	o.mu.Unlock()
	if got != maxHandoffSummaries {
		t.Errorf("expected shared_summary to stay bounded at %d, got %d", maxHandoffSummaries, got)
	}
}

func TestFailoverProvider_RetriesPrimaryThenFallsBack(t *testing.T) {
	primary := &scriptedProvider{name: "primary", failCount: primaryMaxAttempts}
	fallback := &scriptedProvider{name: "fallback", chunks: []*agent.CompletionChunk{{Text: "recovered via fallback", Done: true}}}
	fp := &failoverProvider{primary: primary, fallback: fallback}

	start := time.Now()
	stream, err := fp.Complete(context.Background(), &agent.CompletionRequest{})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	var text string
	for chunk := range stream {
		text += chunk.Text
	}
	if text != "recovered via fallback" {
		t.Errorf("expected fallback text, got %q", text)
	}
	if primary.calls != primaryMaxAttempts {
		t.Errorf("expected primary to be tried %d times, got %d", primaryMaxAttempts, primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("expected fallback to be tried exactly once, got %d", fallback.calls)
	}
	if elapsed < primaryInitialDelay {
		t.Errorf("expected at least the first backoff delay to elapse, took %s", elapsed)
	}
}

func TestFailoverProvider_FatalWhenFallbackAlsoEmpty(t *testing.T) {
	primary := &scriptedProvider{name: "primary", failCount: primaryMaxAttempts}
	fallback := &scriptedProvider{name: "fallback", chunks: nil}
	fp := &failoverProvider{primary: primary, fallback: fallback}

	_, err := fp.Complete(context.Background(), &agent.CompletionRequest{})
	if err == nil {
		t.Fatal("expected an error when both primary and fallback are exhausted")
	}
}
