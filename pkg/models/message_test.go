package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		constant Role
		expected string
	}{
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
		{RoleSystem, "system"},
		{RoleTool, "tool"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestMessage_Text(t *testing.T) {
	msg := Message{
		Role: RoleUser,
		Parts: []Part{
			{Type: PartText, Text: "hello "},
			{Type: PartText, Text: "world"},
		},
	}
	if got := msg.Text(); got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}
}

func TestMessage_ToolCalls(t *testing.T) {
	call := FunctionCall{ID: "call-1", Name: "read_file", Arguments: json.RawMessage(`{"path":"a.go"}`)}
	msg := Message{
		Role: RoleAssistant,
		Parts: []Part{
			{Type: PartText, Text: "reading"},
			{Type: PartFunctionCall, FunctionCall: &call},
		},
	}
	calls := msg.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("ToolCalls() length = %d, want 1", len(calls))
	}
	if calls[0].Name != "read_file" {
		t.Errorf("ToolCalls()[0].Name = %q, want %q", calls[0].Name, "read_file")
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	call := FunctionCall{ID: "tc-1", Name: "search", Arguments: json.RawMessage(`{"q":"test"}`)}
	original := Message{
		ID:        "msg-123",
		Role:      RoleAssistant,
		Parts:     []Part{{Type: PartText, Text: "hello"}, {Type: PartFunctionCall, FunctionCall: &call}},
		CreatedAt: now,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.ID != original.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, original.ID)
	}
	if len(decoded.Parts) != 2 {
		t.Errorf("Parts length = %d, want 2", len(decoded.Parts))
	}
	if decoded.ToolCalls()[0].Name != "search" {
		t.Errorf("ToolCalls()[0].Name = %q, want %q", decoded.ToolCalls()[0].Name, "search")
	}
}

func TestNewFunctionResponseMessage(t *testing.T) {
	resp := FunctionResponse{ToolCallID: "tc-1", Name: "search", Response: json.RawMessage(`{"ok":true}`)}
	msg := NewFunctionResponseMessage(resp)

	if msg.Role != RoleTool {
		t.Errorf("Role = %v, want %v", msg.Role, RoleTool)
	}
	if len(msg.Parts) != 1 || msg.Parts[0].Type != PartFunctionResponse {
		t.Fatalf("expected single function_response part, got %+v", msg.Parts)
	}
	if msg.Parts[0].FunctionResponse.ToolCallID != "tc-1" {
		t.Errorf("ToolCallID = %q, want %q", msg.Parts[0].FunctionResponse.ToolCallID, "tc-1")
	}
}

func TestToolCall_Struct(t *testing.T) {
	tc := ToolCall{
		ID:    "tc-123",
		Name:  "web_search",
		Input: json.RawMessage(`{"query": "test query"}`),
	}

	if tc.ID != "tc-123" {
		t.Errorf("ID = %q, want %q", tc.ID, "tc-123")
	}
	if tc.Name != "web_search" {
		t.Errorf("Name = %q, want %q", tc.Name, "web_search")
	}
}

func TestToolResult_Struct(t *testing.T) {
	tr := ToolResult{
		ToolCallID: "tc-123",
		Content:    "Search results here",
		IsError:    false,
	}

	if tr.ToolCallID != "tc-123" {
		t.Errorf("ToolCallID = %q, want %q", tr.ToolCallID, "tc-123")
	}
	if tr.IsError {
		t.Error("IsError should be false")
	}

	trError := ToolResult{
		ToolCallID: "tc-456",
		Content:    "Error occurred",
		IsError:    true,
	}
	if !trError.IsError {
		t.Error("IsError should be true")
	}
}
