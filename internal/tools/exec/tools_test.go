package exec

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/vtcode-ai/vtcode/internal/tools/policy"
)

func TestExecTool_DeniesGuardedCommand(t *testing.T) {
	mgr := NewManager(t.TempDir())
	guard, err := policy.NewShellGuard(nil, nil)
	if err != nil {
		t.Fatalf("NewShellGuard() error: %v", err)
	}
	tool := NewExecTool("run_terminal_cmd", mgr, guard)

	params, _ := json.Marshal(map[string]interface{}{"command": []string{"rm", "-rf", "/"}})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected guarded command to be denied")
	}
}

func TestExecToolRunsCommand(t *testing.T) {
	mgr := NewManager(t.TempDir())
	tool := NewExecTool("run_terminal_cmd", mgr, nil)
	params, _ := json.Marshal(map[string]interface{}{
		"command": []string{"echo", "hello"},
	})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello") {
		t.Fatalf("expected stdout in result: %s", result.Content)
	}
}

func TestExecTool_PTYModeUnsupported(t *testing.T) {
	mgr := NewManager(t.TempDir())
	tool := NewExecTool("run_terminal_cmd", mgr, nil)
	params, _ := json.Marshal(map[string]interface{}{
		"command": []string{"echo", "hi"},
		"mode":    "pty",
	})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected mode=pty to be rejected since no PTY backend is wired")
	}
}

func TestProcessToolLifecycle(t *testing.T) {
	mgr := NewManager(t.TempDir())
	execTool := NewExecTool("run_terminal_cmd", mgr, nil)
	procTool := NewProcessTool(mgr)

	params, _ := json.Marshal(map[string]interface{}{
		"command": []string{"echo", "background"},
		"mode":    "streaming",
	})
	result, err := execTool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content)
	}

	var payload struct {
		ProcessID string `json:"process_id"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if payload.ProcessID == "" {
		t.Fatalf("expected process_id")
	}

	time.Sleep(50 * time.Millisecond)
	statusParams, _ := json.Marshal(map[string]interface{}{
		"action":     "status",
		"process_id": payload.ProcessID,
	})
	statusResult, err := procTool.Execute(context.Background(), statusParams)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if statusResult.IsError {
		t.Fatalf("expected status success: %s", statusResult.Content)
	}

	removeParams, _ := json.Marshal(map[string]interface{}{
		"action":     "remove",
		"process_id": payload.ProcessID,
	})
	removeResult, err := procTool.Execute(context.Background(), removeParams)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removeResult.IsError {
		t.Fatalf("expected remove success: %s", removeResult.Content)
	}
}
