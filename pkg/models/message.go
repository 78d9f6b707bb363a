package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// PartType discriminates the union carried by a Part.
type PartType string

const (
	PartText             PartType = "text"
	PartFunctionCall     PartType = "function_call"
	PartFunctionResponse PartType = "function_response"
)

// Part is one untagged element of a Message's content. Exactly one of the
// type-specific fields is populated, matching PartType.
type Part struct {
	Type             PartType          `json:"type"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// FunctionCall is the model's request to execute a tool.
type FunctionCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// FunctionResponse carries a tool's result back to the model. ToolCallID
// binds it to the FunctionCall it answers when the provider supplies ids;
// otherwise Name is used for binding (see invariant 7 in SPEC_FULL.md).
type FunctionResponse struct {
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name"`
	Response   json.RawMessage `json:"response"`
	IsError    bool            `json:"is_error,omitempty"`
}

// Message is a single turn in a conversation: an ordered sequence of parts
// authored by one role. Messages are append-only once added to a Conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"created_at"`
}

// Text returns the concatenation of all text parts, used by the compaction
// engine and by completion-keyword detection.
func (m Message) Text() string {
	out := ""
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// ToolCalls returns every function-call part in the message, in order.
func (m Message) ToolCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if p.Type == PartFunctionCall && p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(role Role, text string) Message {
	return Message{
		Role:      role,
		Parts:     []Part{{Type: PartText, Text: text}},
		CreatedAt: time.Now(),
	}
}

// NewFunctionCallMessage wraps a set of tool calls as one assistant message.
func NewFunctionCallMessage(calls []FunctionCall) Message {
	parts := make([]Part, len(calls))
	for i := range calls {
		c := calls[i]
		parts[i] = Part{Type: PartFunctionCall, FunctionCall: &c}
	}
	return Message{Role: RoleAssistant, Parts: parts, CreatedAt: time.Now()}
}

// NewFunctionResponseMessage wraps one tool result as a tool message.
func NewFunctionResponseMessage(resp FunctionResponse) Message {
	return Message{
		Role:      RoleTool,
		Parts:     []Part{{Type: PartFunctionResponse, FunctionResponse: &resp}},
		CreatedAt: time.Now(),
	}
}

// ToolCall is the wire-level representation used by provider adapters and
// the tool dispatcher — narrower than FunctionCall, index-friendly for
// concurrent execution bookkeeping (see internal/runner).
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID  string       `json:"tool_call_id"`
	Content     string       `json:"content"`
	IsError     bool         `json:"is_error,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is an image or file sent with a message or tool result to a
// vision-capable model. URL is either an http(s) URL or a data: URL that
// carries the bytes inline.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}
