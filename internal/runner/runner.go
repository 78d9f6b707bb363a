// Package runner implements the agent's per-task execution loop: build a
// request from the running message list, call the provider, dispatch any
// tool calls through the gated registry, and feed every exchange into the
// context store and snapshot manager until the task completes or the turn
// budget is exhausted.
//
// Grounded on internal/agent/tool_exec.go's ToolExecutor (concurrent
// dispatch, per-call timeout, retry-with-backoff shape) and the overall
// turn/termination loop of internal/agent/runtime.go's Runtime.Run.
// LLM and tool-dispatch counters follow the same promauto idiom as the
// teacher's observability.Metrics.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/contextstore"
	"github.com/vtcode-ai/vtcode/internal/filecache"
	"github.com/vtcode-ai/vtcode/internal/metrics"
	"github.com/vtcode-ai/vtcode/internal/snapshot"
	"github.com/vtcode-ai/vtcode/internal/tools"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
	"github.com/vtcode-ai/vtcode/pkg/models"
)

// retryDelays is the fixed adaptive-retry schedule for a failing tool call:
// 200ms, then 400ms, then 800ms, matching SPEC_FULL.md's C7 retry shape
// exactly rather than deriving it from a generic exponential helper.
var retryDelays = []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}

// completionKeywords end the task when found (case-insensitively) in the
// assistant's latest text content.
var completionKeywords = []string{
	"task completed", "done", "finished", "complete", "i am done",
}

// TaskResult is returned once the runner's loop terminates.
type TaskResult struct {
	Summary          string
	ModifiedFiles    []string
	ExecutedCommands []string
	Warnings         []string
	CreatedContexts  []string
}

// Config wires a Runner's dependencies. Plan enforcement (at most one
// in_progress step) is already applied inside plan.UpdatePlanTool.Execute
// whenever that tool is registered, so Runner itself does not need a
// reference to the plan store.
type Config struct {
	Provider     agent.LLMProvider
	Registry     *tools.Registry
	ToolPolicy   *policy.Policy
	ContextStore *contextstore.Store
	Snapshots    *snapshot.Manager
	Model        string
	MaxToolLoops int
	Loop         LoopConfig

	// Cache and Metrics are both optional. When set, the overall cache hit
	// rate is sampled into Metrics.CacheHitRate once per turn.
	Cache   *filecache.Cache
	Metrics *metrics.Metrics
}

// LoopConfig tunes how the Runner drives each turn's tool-call batch.
type LoopConfig struct {
	// ParallelToolCalls gates concurrent tool dispatch: nil (the zero
	// value) defers to the active provider's own SupportsParallelToolCalls
	// capability, if it reports one; explicitly false always forces
	// sequential dispatch regardless of what the provider supports.
	ParallelToolCalls *bool
}

// parallelCapableProvider is implemented by providers that can tell the
// runner whether they support issuing more than one tool call per turn
// for concurrent dispatch. Providers that don't implement it are treated
// as capable, preserving the runner's historical always-concurrent
// behavior for them.
type parallelCapableProvider interface {
	SupportsParallelToolCalls() bool
}

// Runner executes one task to completion (or exhaustion) through a single
// provider, with concurrent tool dispatch gated by the Config's policy.
type Runner struct {
	cfg          Config
	maxToolLoops int

	// decisionLog and errorRecoveryLog accumulate across the whole run and
	// are written into every snapshot from the turn they were observed on
	// onward, per SPEC_FULL.md's decision_tracker_summary / error_recovery_summary.
	decisionLog      []string
	errorRecoveryLog []string
	logMu            sync.Mutex
}

// New creates a Runner. MaxToolLoops defaults to 25 if unset.
func New(cfg Config) *Runner {
	maxLoops := cfg.MaxToolLoops
	if maxLoops <= 0 {
		maxLoops = 25
	}
	return &Runner{cfg: cfg, maxToolLoops: maxLoops}
}

// Run executes task starting from systemPrompt, looping until a completion
// keyword is observed or the turn budget is exhausted.
func (r *Runner) Run(ctx context.Context, task, systemPrompt string) (*TaskResult, error) {
	messages := []agent.CompletionMessage{
		{Role: "user", Content: task},
	}

	result := &TaskResult{}
	modified := map[string]struct{}{}
	commands := map[string]struct{}{}
	hasCompleted := false

	for turn := 1; turn <= r.maxToolLoops; turn++ {
		req := &agent.CompletionRequest{
			Model:    r.cfg.Model,
			System:   systemPrompt,
			Messages: messages,
		}
		if r.cfg.Registry != nil {
			req.Tools = r.cfg.Registry.AsLLMTools()
		}

		text, toolCalls, err := r.complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("runner: turn %d: %w", turn, err)
		}

		if len(toolCalls) > 0 {
			assistantMsg := agent.CompletionMessage{Role: "assistant", ToolCalls: toolCalls}
			messages = append(messages, assistantMsg)

			toolResults := r.dispatchToolCalls(ctx, toolCalls)
			for i, tc := range toolCalls {
				res := toolResults[i]
				recordSideEffects(tc, res, modified, commands)
				r.decisionLog = append(r.decisionLog, fmt.Sprintf("turn %d: called %s", turn, tc.Name))
			}
			messages = append(messages, agent.CompletionMessage{Role: "tool", ToolResults: toolResults})

			if r.cfg.ContextStore != nil {
				for _, tc := range toolCalls {
					r.cfg.ContextStore.AddMessage(toolCallSummary(tc), "tool_call")
				}
				for _, tr := range toolResults {
					msgType := "tool_result"
					if tr.IsError {
						msgType = "tool_error"
					}
					r.cfg.ContextStore.AddMessage(tr.Content, msgType)
				}
			}
		} else {
			messages = append(messages, agent.CompletionMessage{Role: "assistant", Content: text})
			if r.cfg.ContextStore != nil {
				r.cfg.ContextStore.AddMessage(text, "assistant")
			}
		}

		if err := r.snapshotTurn(turn, messages); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot write failed at turn %d: %v", turn, err))
		}
		r.sampleCacheHitRate()

		if isCompletionSignal(text) {
			hasCompleted = true
		}
		if hasCompleted {
			result.Summary = text
			break
		}
		if text == "" && len(toolCalls) == 0 && turn == r.maxToolLoops {
			result.Summary = "task ended without an explicit completion signal"
		}
	}

	if result.Summary == "" {
		result.Summary = lastAssistantText(messages)
	}
	for f := range modified {
		result.ModifiedFiles = append(result.ModifiedFiles, f)
	}
	for c := range commands {
		result.ExecutedCommands = append(result.ExecutedCommands, c)
	}
	return result, nil
}

// complete drains the provider's streaming channel into a single text
// result plus any tool calls observed.
func (r *Runner) complete(ctx context.Context, req *agent.CompletionRequest) (string, []models.ToolCall, error) {
	start := time.Now()
	chunks, err := r.cfg.Provider.Complete(ctx, req)
	if err != nil {
		r.recordLLMOutcome(req.Model, start, "error")
		return "", nil, err
	}

	var sb strings.Builder
	var calls []models.ToolCall
	for chunk := range chunks {
		if chunk.Error != nil {
			r.recordLLMOutcome(req.Model, start, "error")
			return "", nil, chunk.Error
		}
		sb.WriteString(chunk.Text)
		if chunk.ToolCall != nil {
			calls = append(calls, *chunk.ToolCall)
		}
	}
	r.recordLLMOutcome(req.Model, start, "success")
	return sb.String(), calls, nil
}

func (r *Runner) recordLLMOutcome(model string, start time.Time, status string) {
	if r.cfg.Metrics == nil {
		return
	}
	provider := ""
	if r.cfg.Provider != nil {
		provider = r.cfg.Provider.Name()
	}
	r.cfg.Metrics.LLMRequestDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	r.cfg.Metrics.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
}

func (r *Runner) sampleCacheHitRate() {
	if r.cfg.Metrics == nil || r.cfg.Cache == nil {
		return
	}
	r.cfg.Metrics.CacheHitRate.Set(r.cfg.Cache.Stats().OverallHitRate())
}

// dispatchToolCalls runs a turn's tool calls through the gated registry,
// applying the adaptive retry schedule to any call that fails. Calls run
// concurrently only when parallelDispatchAllowed permits it; otherwise
// they run sequentially in the order the provider issued them, preserving
// the same response-ordering contract either way.
func (r *Runner) dispatchToolCalls(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, len(calls))

	if !r.parallelDispatchAllowed() || len(calls) <= 1 {
		for i, call := range calls {
			results[i] = r.dispatchOne(ctx, call)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc models.ToolCall) {
			defer wg.Done()
			results[idx] = r.dispatchOne(ctx, tc)
		}(i, call)
	}
	wg.Wait()
	return results
}

// parallelDispatchAllowed reports whether this turn's tool calls may run
// concurrently: the Config can force sequential dispatch outright, and
// absent that override the active provider's own capability decides.
func (r *Runner) parallelDispatchAllowed() bool {
	if r.cfg.Loop.ParallelToolCalls != nil && !*r.cfg.Loop.ParallelToolCalls {
		return false
	}
	if pc, ok := r.cfg.Provider.(parallelCapableProvider); ok {
		return pc.SupportsParallelToolCalls()
	}
	return true
}

func (r *Runner) dispatchOne(ctx context.Context, tc models.ToolCall) models.ToolResult {
	if r.cfg.Registry == nil {
		return models.ToolResult{ToolCallID: tc.ID, Content: "no tool registry configured", IsError: true}
	}

	start := time.Now()
	var lastResult *agent.ToolResult
	attempts := 0
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		attempts++
		res, err := r.cfg.Registry.Dispatch(ctx, r.cfg.ToolPolicy, tc.Name, tc.Input)
		if err != nil {
			lastResult = &agent.ToolResult{Content: err.Error(), IsError: true}
		} else {
			lastResult = res
		}
		if !lastResult.IsError {
			break
		}
		if attempt < len(retryDelays) {
			select {
			case <-time.After(retryDelays[attempt]):
			case <-ctx.Done():
				return models.ToolResult{ToolCallID: tc.ID, Content: ctx.Err().Error(), IsError: true}
			}
		}
	}

	if attempts > 1 {
		outcome := "succeeded"
		if lastResult.IsError {
			outcome = "failed"
		}
		r.logMu.Lock()
		r.errorRecoveryLog = append(r.errorRecoveryLog, fmt.Sprintf("tool %s: retried %d time(s), %s", tc.Name, attempts-1, outcome))
		r.logMu.Unlock()
	}

	if r.cfg.Metrics != nil {
		status := "success"
		if lastResult.IsError {
			status = "error"
		}
		r.cfg.Metrics.ToolExecutionDuration.WithLabelValues(tc.Name).Observe(time.Since(start).Seconds())
		r.cfg.Metrics.ToolExecutionCounter.WithLabelValues(tc.Name, status).Inc()
	}

	return models.ToolResult{ToolCallID: tc.ID, Content: lastResult.Content, IsError: lastResult.IsError}
}

func (r *Runner) snapshotTurn(turn int, messages []agent.CompletionMessage) error {
	if r.cfg.Snapshots == nil {
		return nil
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	var ctxState json.RawMessage = []byte("{}")
	if r.cfg.ContextStore != nil {
		if data, err := json.Marshal(r.cfg.ContextStore.Messages()); err == nil {
			ctxState = data
		}
	}
	return r.cfg.Snapshots.WriteWithSummaries(turn, payload, ctxState, 0, r.decisionLog, r.errorRecoveryLog)
}

func isCompletionSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range completionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lastAssistantText(messages []agent.CompletionMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" && messages[i].Content != "" {
			return messages[i].Content
		}
	}
	return ""
}

func toolCallSummary(tc models.ToolCall) string {
	return fmt.Sprintf("call %s: %s", tc.Name, string(tc.Input))
}

// recordSideEffects tracks file mutations and shell commands observed from
// successful tool calls, per SPEC_FULL.md's TaskResults.modified_files /
// executed_commands fields.
func recordSideEffects(tc models.ToolCall, res models.ToolResult, modified, commands map[string]struct{}) {
	if res.IsError {
		return
	}
	switch tc.Name {
	case "write_file", "edit_file", "apply_patch", "delete_file":
		var params struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(tc.Input, &params); err == nil && params.Path != "" {
			modified[params.Path] = struct{}{}
		}
	case "run_terminal_cmd", "bash":
		var params struct {
			Command []string `json:"command"`
		}
		if err := json.Unmarshal(tc.Input, &params); err == nil && len(params.Command) > 0 {
			commands[strings.Join(params.Command, " ")] = struct{}{}
		}
	}
}
