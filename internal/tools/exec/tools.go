package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
)

// ExecTool runs shell commands as the run_terminal_cmd (alias bash) tool.
// Every command is checked against guard before the manager ever sees it,
// independent of whatever Allow/Prompt/Deny tier the tool name itself
// resolved to.
type ExecTool struct {
	name    string
	manager *Manager
	guard   *policy.ShellGuard
}

// NewExecTool creates an exec tool with the given name and shell guard. A
// nil guard disables command-level denial (tier-level policy still applies).
func NewExecTool(name string, manager *Manager, guard *policy.ShellGuard) *ExecTool {
	if strings.TrimSpace(name) == "" {
		name = "run_terminal_cmd"
	}
	return &ExecTool{name: name, manager: manager, guard: guard}
}

func (t *ExecTool) Name() string { return t.name }

func (t *ExecTool) Description() string {
	return "Run a shell command in the workspace (supports optional background execution)."
}

func (t *ExecTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Command and its arguments, e.g. [\"ls\", \"-la\"]. Joined and run through the shell.",
			},
			"working_dir": map[string]interface{}{
				"type":        "string",
				"description": "Working directory (relative to workspace).",
			},
			"env": map[string]interface{}{
				"type":        "object",
				"description": "Environment overrides (string values).",
			},
			"input": map[string]interface{}{
				"type":        "string",
				"description": "Stdin content to pass to the command.",
			},
			"timeout_secs": map[string]interface{}{
				"type":        "integer",
				"description": "Timeout in seconds (default 30, 0 = no timeout).",
				"minimum":     0,
			},
			"mode": map[string]interface{}{
				"type":        "string",
				"description": "terminal runs synchronously and returns stdout/stderr; streaming runs in the background and returns a process id to poll via the process tool; pty is not supported in this build.",
				"enum":        []string{"terminal", "pty", "streaming"},
			},
		},
		"required": []string{"command"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

const defaultExecTimeoutSecs = 30

func (t *ExecTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return toolError("exec manager unavailable"), nil
	}
	var input struct {
		Command     []string          `json:"command"`
		WorkingDir  string            `json:"working_dir"`
		Env         map[string]string `json:"env"`
		Input       string            `json:"input"`
		TimeoutSecs *int              `json:"timeout_secs"`
		Mode        string            `json:"mode"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	command := strings.TrimSpace(strings.Join(input.Command, " "))
	if command == "" {
		return toolError("command is required"), nil
	}
	if t.guard != nil {
		if denied, reason := t.guard.Check(command); denied {
			return toolError("command denied: " + reason), nil
		}
	}

	timeoutSecs := defaultExecTimeoutSecs
	if input.TimeoutSecs != nil {
		timeoutSecs = *input.TimeoutSecs
	}
	timeout := time.Duration(timeoutSecs) * time.Second

	mode := strings.ToLower(strings.TrimSpace(input.Mode))
	if mode == "" {
		mode = "terminal"
	}

	switch mode {
	case "terminal":
		result, err := t.manager.runSync(ctx, command, input.WorkingDir, input.Env, input.Input, timeout)
		if err != nil {
			return toolError(err.Error()), nil
		}
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return toolError(fmt.Sprintf("encode result: %v", err)), nil
		}
		return &agent.ToolResult{Content: string(payload)}, nil

	case "streaming":
		proc, err := t.manager.startBackground(ctx, command, input.WorkingDir, input.Env, input.Input, timeout)
		if err != nil {
			return toolError(err.Error()), nil
		}
		payload, _ := json.MarshalIndent(map[string]interface{}{
			"status":     "running",
			"process_id": proc.id,
		}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil

	case "pty":
		return toolError("mode=pty is not supported: this build has no PTY backend"), nil

	default:
		return toolError(fmt.Sprintf("unsupported mode %q", input.Mode)), nil
	}
}

// ProcessTool inspects and manages background exec processes.
type ProcessTool struct {
	manager *Manager
}

// NewProcessTool creates a process tool.
func NewProcessTool(manager *Manager) *ProcessTool {
	return &ProcessTool{manager: manager}
}

func (t *ProcessTool) Name() string { return "process" }

func (t *ProcessTool) Description() string {
	return "Manage background exec processes (list, status, log, write, kill, remove)."
}

func (t *ProcessTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"description": "Action: list, status, log, write, kill, remove.",
			},
			"process_id": map[string]interface{}{
				"type":        "string",
				"description": "Process id for actions that target a process.",
			},
			"input": map[string]interface{}{
				"type":        "string",
				"description": "Input for write action.",
			},
		},
		"required": []string{"action"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *ProcessTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	if t.manager == nil {
		return toolError("process manager unavailable"), nil
	}
	var input struct {
		Action    string `json:"action"`
		ProcessID string `json:"process_id"`
		Input     string `json:"input"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	action := strings.ToLower(strings.TrimSpace(input.Action))
	if action == "" {
		return toolError("action is required"), nil
	}

	switch action {
	case "list":
		payload, _ := json.MarshalIndent(map[string]interface{}{"processes": t.manager.list()}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	case "status", "log", "write", "kill", "remove":
		if strings.TrimSpace(input.ProcessID) == "" {
			return toolError("process_id is required"), nil
		}
		proc, ok := t.manager.get(strings.TrimSpace(input.ProcessID))
		if !ok {
			return toolError("process not found"), nil
		}
		switch action {
		case "status":
			payload, _ := json.MarshalIndent(proc.info(), "", "  ")
			return &agent.ToolResult{Content: string(payload)}, nil
		case "log":
			payload, _ := json.MarshalIndent(map[string]interface{}{
				"stdout": proc.stdout.String(),
				"stderr": proc.stderr.String(),
				"status": proc.status(),
			}, "", "  ")
			return &agent.ToolResult{Content: string(payload)}, nil
		case "write":
			if proc.stdin == nil {
				return toolError("process stdin unavailable"), nil
			}
			if input.Input == "" {
				return toolError("input is required"), nil
			}
			if _, err := proc.stdin.Write([]byte(input.Input)); err != nil {
				return toolError(fmt.Sprintf("write stdin: %v", err)), nil
			}
			payload, _ := json.MarshalIndent(map[string]interface{}{
				"status": "written",
			}, "", "  ")
			return &agent.ToolResult{Content: string(payload)}, nil
		case "kill":
			if proc.cmd.Process == nil {
				return toolError("process not running"), nil
			}
			if err := proc.cmd.Process.Kill(); err != nil {
				return toolError(fmt.Sprintf("kill process: %v", err)), nil
			}
			payload, _ := json.MarshalIndent(map[string]interface{}{
				"status": "killed",
			}, "", "  ")
			return &agent.ToolResult{Content: string(payload)}, nil
		case "remove":
			if proc.status() == "running" {
				return toolError("process still running"), nil
			}
			if !t.manager.remove(proc.id) {
				return toolError("remove failed"), nil
			}
			payload, _ := json.MarshalIndent(map[string]interface{}{
				"status": "removed",
			}, "", "  ")
			return &agent.ToolResult{Content: string(payload)}, nil
		}
	}
	return toolError("unsupported action"), nil
}

func toolError(message string) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
