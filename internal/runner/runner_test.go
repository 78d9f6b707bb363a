package runner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/contextstore"
	"github.com/vtcode-ai/vtcode/internal/filecache"
	"github.com/vtcode-ai/vtcode/internal/metrics"
	"github.com/vtcode-ai/vtcode/internal/snapshot"
	"github.com/vtcode-ai/vtcode/internal/tools"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
	"github.com/vtcode-ai/vtcode/pkg/models"
)

// scriptedProvider replays one CompletionChunk slice per call to Complete,
// advancing through turns sequentially.
type scriptedProvider struct {
	turns [][]*agent.CompletionChunk
	calls int
}

func (p *scriptedProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	if p.calls >= len(p.turns) {
		return nil, errors.New("scriptedProvider: no more turns scripted")
	}
	chunks := p.turns[p.calls]
	p.calls++
	out := make(chan *agent.CompletionChunk, len(chunks))
	for _, c := range chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func (p *scriptedProvider) Name() string          { return "scripted" }
func (p *scriptedProvider) Models() []agent.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool    { return true }

// sequentialOnlyProvider is a scriptedProvider that reports no parallel
// tool-call support, used to exercise the runner's per-provider fallback.
type sequentialOnlyProvider struct {
	scriptedProvider
}

func (p *sequentialOnlyProvider) SupportsParallelToolCalls() bool { return false }

// slowTool sleeps before succeeding and records when each call started, so
// tests can tell concurrent dispatch apart from sequential dispatch by
// elapsed wall-clock time.
type slowTool struct {
	name  string
	delay time.Duration
	mu    sync.Mutex
	starts []time.Time
}

func (t *slowTool) Name() string            { return t.name }
func (t *slowTool) Description() string     { return "sleeps before succeeding" }
func (t *slowTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *slowTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	t.mu.Lock()
	t.starts = append(t.starts, time.Now())
	t.mu.Unlock()
	time.Sleep(t.delay)
	return &agent.ToolResult{Content: "ok"}, nil
}

// echoTool always succeeds, returning its input verbatim.
type echoTool struct{ name string }

func (t *echoTool) Name() string            { return t.name }
func (t *echoTool) Description() string     { return "echoes input back" }
func (t *echoTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *echoTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	return &agent.ToolResult{Content: string(params)}, nil
}

// flakyTool fails failCount times before succeeding, used to exercise the
// adaptive retry schedule.
type flakyTool struct {
	name      string
	failCount int
	calls     int
}

func (t *flakyTool) Name() string            { return t.name }
func (t *flakyTool) Description() string     { return "fails a fixed number of times" }
func (t *flakyTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *flakyTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	t.calls++
	if t.calls <= t.failCount {
		return &agent.ToolResult{Content: "transient failure", IsError: true}, nil
	}
	return &agent.ToolResult{Content: "recovered"}, nil
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

func TestRunner_CompletesOnKeywordWithoutToolCalls(t *testing.T) {
	provider := &scriptedProvider{
		turns: [][]*agent.CompletionChunk{
			{{Text: "task completed", Done: true}},
		},
	}
	r := New(Config{
		Provider:     provider,
		Registry:     newTestRegistry(t),
		ToolPolicy:   policy.NewPolicy(policy.ProfileFull),
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Model:        "test-model",
		MaxToolLoops: 5,
	})

	result, err := r.Run(context.Background(), "do the thing", "system prompt")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Summary != "task completed" {
		t.Errorf("expected summary %q, got %q", "task completed", result.Summary)
	}
	if provider.calls != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", provider.calls)
	}
}

func TestRunner_DispatchesToolCallsAndRecordsModifiedFiles(t *testing.T) {
	toolCall := models.ToolCall{ID: "1", Name: "write_file", Input: json.RawMessage(`{"path":"out.txt"}`)}
	provider := &scriptedProvider{
		turns: [][]*agent.CompletionChunk{
			{{ToolCall: &toolCall}, {Done: true}},
			{{Text: "task completed", Done: true}},
		},
	}
	r := New(Config{
		Provider:     provider,
		Registry:     newTestRegistry(t, &echoTool{name: "write_file"}),
		ToolPolicy:   policy.NewPolicy(policy.ProfileFull),
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Model:        "test-model",
		MaxToolLoops: 5,
	})

	result, err := r.Run(context.Background(), "write a file", "system prompt")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.ModifiedFiles) != 1 || result.ModifiedFiles[0] != "out.txt" {
		t.Errorf("expected modified_files to contain out.txt, got %v", result.ModifiedFiles)
	}
	if provider.calls != 2 {
		t.Errorf("expected 2 provider calls (tool turn + follow-up), got %d", provider.calls)
	}
}

func TestRunner_RetriesFailingToolBeforeSurfacingError(t *testing.T) {
	flaky := &flakyTool{name: "run_terminal_cmd", failCount: 2}
	toolCall := models.ToolCall{ID: "1", Name: "run_terminal_cmd", Input: json.RawMessage(`{"command":["ls"]}`)}
	provider := &scriptedProvider{
		turns: [][]*agent.CompletionChunk{
			{{ToolCall: &toolCall}, {Done: true}},
			{{Text: "task completed", Done: true}},
		},
	}
	r := New(Config{
		Provider:     provider,
		Registry:     newTestRegistry(t, flaky),
		ToolPolicy:   policy.NewPolicy(policy.ProfileFull),
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Model:        "test-model",
		MaxToolLoops: 5,
	})

	start := time.Now()
	result, err := r.Run(context.Background(), "run a command", "system prompt")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 attempts (2 failures + 1 success), got %d", flaky.calls)
	}
	if elapsed < 600*time.Millisecond {
		t.Errorf("expected at least the 200ms+400ms retry schedule to elapse, took %s", elapsed)
	}
	if len(result.ExecutedCommands) != 1 || result.ExecutedCommands[0] != "ls" {
		t.Errorf("expected executed_commands to contain ls, got %v", result.ExecutedCommands)
	}
}

func TestRunner_StopsAtMaxToolLoopsWithoutCompletionSignal(t *testing.T) {
	provider := &scriptedProvider{
		turns: [][]*agent.CompletionChunk{
			{{Text: "still working", Done: true}},
			{{Text: "still working", Done: true}},
		},
	}
	r := New(Config{
		Provider:     provider,
		Registry:     newTestRegistry(t),
		ToolPolicy:   policy.NewPolicy(policy.ProfileFull),
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Model:        "test-model",
		MaxToolLoops: 2,
	})

	result, err := r.Run(context.Background(), "keep going", "system prompt")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected exactly MaxToolLoops provider calls, got %d", provider.calls)
	}
	if result.Summary != "still working" {
		t.Errorf("expected last assistant text as summary, got %q", result.Summary)
	}
}

func TestRunner_WritesSnapshotPerTurn(t *testing.T) {
	dir := t.TempDir()
	provider := &scriptedProvider{
		turns: [][]*agent.CompletionChunk{
			{{Text: "task completed", Done: true}},
		},
	}
	r := New(Config{
		Provider:     provider,
		Registry:     newTestRegistry(t),
		ToolPolicy:   policy.NewPolicy(policy.ProfileFull),
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Snapshots:    snapshot.NewManager(snapshot.Config{Dir: dir}),
		Model:        "test-model",
		MaxToolLoops: 5,
	})

	result, err := r.Run(context.Background(), "do the thing", "system prompt")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no snapshot warnings, got %v", result.Warnings)
	}
	if _, err := snapshot.NewManager(snapshot.Config{Dir: dir}).Load(1); err != nil {
		t.Errorf("expected a snapshot for turn 1: %v", err)
	}
}

func TestRunner_SnapshotIncludesDecisionAndRecoverySummaries(t *testing.T) {
	dir := t.TempDir()
	flaky := &flakyTool{name: "run_terminal_cmd", failCount: 1}
	toolCall := models.ToolCall{ID: "1", Name: "run_terminal_cmd", Input: json.RawMessage(`{"command":["ls"]}`)}
	provider := &scriptedProvider{
		turns: [][]*agent.CompletionChunk{
			{{ToolCall: &toolCall}, {Done: true}},
			{{Text: "task completed", Done: true}},
		},
	}
	r := New(Config{
		Provider:     provider,
		Registry:     newTestRegistry(t, flaky),
		ToolPolicy:   policy.NewPolicy(policy.ProfileFull),
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Snapshots:    snapshot.NewManager(snapshot.Config{Dir: dir}),
		Model:        "test-model",
		MaxToolLoops: 5,
	})

	if _, err := r.Run(context.Background(), "run a command", "system prompt"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	snap, err := snapshot.NewManager(snapshot.Config{Dir: dir}).Load(1)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(snap.DecisionTrackerSummary) != 1 || snap.DecisionTrackerSummary[0] != "turn 1: called run_terminal_cmd" {
		t.Errorf("expected a decision entry for turn 1's tool call, got %v", snap.DecisionTrackerSummary)
	}
	if len(snap.ErrorRecoverySummary) != 1 {
		t.Errorf("expected one error recovery entry for the flaky tool's retry, got %v", snap.ErrorRecoverySummary)
	}
}

func TestRunner_RecordsLLMAndCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cache := filecache.New(filecache.Config{})

	provider := &scriptedProvider{
		turns: [][]*agent.CompletionChunk{
			{{Text: "task completed", Done: true}},
		},
	}
	r := New(Config{
		Provider:     provider,
		Registry:     newTestRegistry(t),
		ToolPolicy:   policy.NewPolicy(policy.ProfileFull),
		ContextStore: contextstore.New(contextstore.DefaultConfig(), nil),
		Model:        "test-model",
		MaxToolLoops: 5,
		Cache:        cache,
		Metrics:      m,
	})

	if _, err := r.Run(context.Background(), "do the thing", "system prompt"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if count := testutil.ToFloat64(m.LLMRequestCounter.WithLabelValues("scripted", "test-model", "success")); count != 1 {
		t.Errorf("expected 1 successful LLM request recorded, got %v", count)
	}
	if hitRate := testutil.ToFloat64(m.CacheHitRate); hitRate < 0 || hitRate > 1 {
		t.Errorf("expected cache hit rate in [0,1], got %v", hitRate)
	}
}

func TestRunner_DispatchToolCallsRunsConcurrentlyByDefault(t *testing.T) {
	tool := &slowTool{name: "slow", delay: 60 * time.Millisecond}
	r := New(Config{
		Provider: &scriptedProvider{},
		Registry: newTestRegistry(t, tool),
	})

	calls := []models.ToolCall{
		{ID: "1", Name: "slow", Input: json.RawMessage(`{}`)},
		{ID: "2", Name: "slow", Input: json.RawMessage(`{}`)},
	}
	start := time.Now()
	r.dispatchToolCalls(context.Background(), calls)
	elapsed := time.Since(start)
	if elapsed >= 2*tool.delay {
		t.Errorf("expected concurrent dispatch well under 2x the per-call delay, took %s", elapsed)
	}
}

func TestRunner_DispatchToolCallsRunsSequentiallyWhenConfigDisables(t *testing.T) {
	tool := &slowTool{name: "slow", delay: 30 * time.Millisecond}
	disabled := false
	r := New(Config{
		Provider: &scriptedProvider{},
		Registry: newTestRegistry(t, tool),
		Loop:     LoopConfig{ParallelToolCalls: &disabled},
	})

	calls := []models.ToolCall{
		{ID: "1", Name: "slow", Input: json.RawMessage(`{}`)},
		{ID: "2", Name: "slow", Input: json.RawMessage(`{}`)},
	}
	start := time.Now()
	r.dispatchToolCalls(context.Background(), calls)
	elapsed := time.Since(start)
	if elapsed < 2*tool.delay {
		t.Errorf("expected sequential dispatch to take at least 2x the per-call delay, took %s", elapsed)
	}
}

func TestRunner_DispatchToolCallsFallsBackForNonParallelProvider(t *testing.T) {
	tool := &slowTool{name: "slow", delay: 30 * time.Millisecond}
	r := New(Config{
		Provider: &sequentialOnlyProvider{},
		Registry: newTestRegistry(t, tool),
	})

	calls := []models.ToolCall{
		{ID: "1", Name: "slow", Input: json.RawMessage(`{}`)},
		{ID: "2", Name: "slow", Input: json.RawMessage(`{}`)},
	}
	start := time.Now()
	r.dispatchToolCalls(context.Background(), calls)
	elapsed := time.Since(start)
	if elapsed < 2*tool.delay {
		t.Errorf("expected a provider reporting no parallel support to force sequential dispatch, took %s", elapsed)
	}
}
