// Package tools assembles the individual tool implementations
// (internal/tools/files, exec, web, plan, search) into one registry gated
// by internal/tools/policy, following the same Register/Get/Execute shape
// as internal/agent's own ToolRegistry.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
)

// CapabilityLevel ranks how much access a tool grants the model, from
// read-only inspection up to arbitrary shell execution. Levels are
// monotone: a registry configured with a max level exposes every tool at
// or below it, never a tool above it.
type CapabilityLevel int

const (
	// Basic covers tools with no workspace side effects beyond their own
	// declared purpose (plan updates, outbound HTTP via curl).
	Basic CapabilityLevel = iota
	// FileReading covers read-only workspace file access.
	FileReading
	// FileListing covers directory enumeration.
	FileListing
	// Bash covers arbitrary shell command execution.
	Bash
	// Editing covers file mutation (write, edit, delete, patch).
	Editing
	// CodeSearch covers structural/content code search across the
	// workspace (ripgrep, ast-grep).
	CodeSearch
)

// String renders a CapabilityLevel the way config/CLI values name it.
func (l CapabilityLevel) String() string {
	switch l {
	case Basic:
		return "basic"
	case FileReading:
		return "file_reading"
	case FileListing:
		return "file_listing"
	case Bash:
		return "bash"
	case Editing:
		return "editing"
	case CodeSearch:
		return "code_search"
	default:
		return "unknown"
	}
}

// MaxCapabilityLevel is the highest level a registry can be configured
// with; used as the default (unrestricted) ceiling.
const MaxCapabilityLevel = CodeSearch

// ParseCapabilityLevel parses a config/CLI-facing level name. An empty or
// unrecognized name resolves to MaxCapabilityLevel (unrestricted), so an
// absent config value never accidentally locks tools out.
func ParseCapabilityLevel(name string) CapabilityLevel {
	switch name {
	case "basic":
		return Basic
	case "file_reading":
		return FileReading
	case "file_listing":
		return FileListing
	case "bash":
		return Bash
	case "editing":
		return Editing
	case "code_search":
		return CodeSearch
	default:
		return MaxCapabilityLevel
	}
}

// Registry holds every tool available to an agent run, each validated
// against its own JSON Schema declaration at registration time and gated
// by a policy.Resolver at dispatch time. Each tool also carries a
// CapabilityLevel, filtered against the registry's configured max level
// both when declarations are handed to a provider and at dispatch.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]agent.Tool
	schemas  map[string]*jsonschema.Schema
	levels   map[string]CapabilityLevel
	maxLevel CapabilityLevel
	resolver *policy.Resolver
}

// NewRegistry creates an empty registry. resolver may be nil, in which case
// Dispatch always allows every registered tool. The registry starts
// unrestricted (MaxCapabilityLevel); call SetMaxLevel to cap it.
func NewRegistry(resolver *policy.Resolver) *Registry {
	if resolver == nil {
		resolver = policy.NewResolver()
	}
	return &Registry{
		tools:    make(map[string]agent.Tool),
		schemas:  make(map[string]*jsonschema.Schema),
		levels:   make(map[string]CapabilityLevel),
		maxLevel: MaxCapabilityLevel,
		resolver: resolver,
	}
}

// SetMaxLevel caps which registered tools AsLLMTools and Dispatch expose.
func (r *Registry) SetMaxLevel(level CapabilityLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxLevel = level
}

// Register compiles tool's declared JSON Schema and adds it to the
// registry at CapabilityLevel Basic. Most tools should use
// RegisterWithLevel instead; this exists for tools with no elevated
// capability and for tests.
func (r *Registry) Register(tool agent.Tool) error {
	return r.RegisterWithLevel(tool, Basic)
}

// RegisterWithLevel compiles tool's declared JSON Schema and adds it to
// the registry at the given CapabilityLevel. A tool whose Schema() does
// not compile is rejected outright — a bad declaration at startup is
// cheaper to fix than a silently unenforced one at call time.
func (r *Registry) RegisterWithLevel(tool agent.Tool, level CapabilityLevel) error {
	compiler := jsonschema.NewCompiler()
	schemaURL := "mem://" + tool.Name() + ".json"
	if err := compiler.AddResource(schemaURL, bytes.NewReader(tool.Schema())); err != nil {
		return fmt.Errorf("tool %q: add schema resource: %w", tool.Name(), err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("tool %q: compile schema: %w", tool.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	r.schemas[tool.Name()] = schema
	r.levels[tool.Name()] = level
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (agent.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[policy.NormalizeTool(name)]
	if ok {
		return tool, true
	}
	tool, ok = r.tools[name]
	return tool, ok
}

// AsLLMTools returns every registered tool at or below the registry's
// configured max CapabilityLevel, for passing to a provider's
// tool-declaration list. A tool above the ceiling never reaches the model
// as a callable declaration, regardless of what the per-call policy gate
// would have allowed.
func (r *Registry) AsLLMTools() []agent.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]agent.Tool, 0, len(r.tools))
	for name, t := range r.tools {
		if r.levels[name] > r.maxLevel {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Dispatch resolves tool's policy decision, validates params against its
// compiled schema, and executes it. A Deny decision and a schema
// validation failure both surface as an error ToolResult rather than a Go
// error, matching how a failed tool call is normally reported back to the
// model.
func (r *Registry) Dispatch(ctx context.Context, toolPolicy *policy.Policy, name string, params json.RawMessage) (*agent.ToolResult, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	resolver := r.resolver
	level := r.levels[name]
	maxLevel := r.maxLevel
	r.mu.RUnlock()
	if !ok {
		return &agent.ToolResult{Content: "tool not found: " + name, IsError: true}, nil
	}
	if level > maxLevel {
		return &agent.ToolResult{Content: "tool above configured capability level: " + name, IsError: true}, nil
	}

	switch resolver.Decide(toolPolicy, name) {
	case policy.Deny:
		return &agent.ToolResult{Content: "tool denied by policy: " + name, IsError: true}, nil
	case policy.Prompt:
		return &agent.ToolResult{Content: "tool requires approval: " + name, IsError: true}, nil
	}

	if schema != nil {
		var data interface{}
		if err := json.Unmarshal(params, &data); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
		}
		if err := schema.Validate(data); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("parameters failed schema validation: %v", err), IsError: true}, nil
		}
	}

	return tool.Execute(ctx, params)
}

// DispatchApproved executes a tool whose Prompt-tier approval has already
// been granted out of band (e.g. via policy.ApprovalManager), skipping the
// policy check but still validating against the compiled schema.
func (r *Registry) DispatchApproved(ctx context.Context, name string, params json.RawMessage) (*agent.ToolResult, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	level := r.levels[name]
	maxLevel := r.maxLevel
	r.mu.RUnlock()
	if !ok {
		return &agent.ToolResult{Content: "tool not found: " + name, IsError: true}, nil
	}
	if level > maxLevel {
		return &agent.ToolResult{Content: "tool above configured capability level: " + name, IsError: true}, nil
	}
	if schema != nil {
		var data interface{}
		if err := json.Unmarshal(params, &data); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
		}
		if err := schema.Validate(data); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("parameters failed schema validation: %v", err), IsError: true}, nil
		}
	}
	return tool.Execute(ctx, params)
}
