package plan

import (
	"context"
	"encoding/json"
	"testing"
)

func TestUpdatePlanTool_AcceptsValidPlan(t *testing.T) {
	tool := NewUpdatePlanTool(nil)
	params, _ := json.Marshal(map[string]interface{}{
		"plan": []map[string]string{
			{"step": "read the file", "status": "completed"},
			{"step": "edit the file", "status": "in_progress"},
			{"step": "run tests", "status": "pending"},
		},
	})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
	if len(tool.store.Steps()) != 3 {
		t.Fatalf("expected 3 steps stored, got %d", len(tool.store.Steps()))
	}
}

func TestUpdatePlanTool_RejectsMultipleInProgress(t *testing.T) {
	tool := NewUpdatePlanTool(nil)
	params, _ := json.Marshal(map[string]interface{}{
		"plan": []map[string]string{
			{"step": "a", "status": "in_progress"},
			{"step": "b", "status": "in_progress"},
		},
	})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected rejection of two in_progress steps")
	}
}

func TestUpdatePlanTool_RejectsEmptyPlan(t *testing.T) {
	tool := NewUpdatePlanTool(nil)
	params, _ := json.Marshal(map[string]interface{}{"plan": []map[string]string{}})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected rejection of empty plan")
	}
}
