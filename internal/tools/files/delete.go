package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/filecache"
)

// DeleteTool removes a file from the workspace.
type DeleteTool struct {
	resolver Resolver
	cache    *filecache.Cache
}

// NewDeleteTool creates a delete_file tool scoped to the workspace.
func NewDeleteTool(cfg Config) *DeleteTool {
	return &DeleteTool{resolver: Resolver{Root: cfg.Workspace}, cache: cfg.Cache}
}

// Name returns the tool name.
func (t *DeleteTool) Name() string { return "delete_file" }

// Description returns the tool description.
func (t *DeleteTool) Description() string {
	return "Delete a file in the workspace. Refuses to delete directories."
}

// Schema returns the JSON schema for the tool parameters.
func (t *DeleteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to delete (relative to workspace).",
			},
		},
		"required": []string{"path"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute deletes the named file.
func (t *DeleteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("stat file: %v", err)), nil
	}
	if info.IsDir() {
		return toolError("refusing to delete a directory"), nil
	}

	if err := os.Remove(resolved); err != nil {
		return toolError(fmt.Sprintf("delete file: %v", err)), nil
	}

	if t.cache != nil {
		t.cache.InvalidatePrefix("read_file:" + resolved)
		t.cache.InvalidatePrefix("list_files:" + filepath.Dir(resolved))
	}

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"path":    input.Path,
		"deleted": true,
	}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}
