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

// WriteTool implements file writes within the workspace.
type WriteTool struct {
	resolver Resolver
	cache    *filecache.Cache
}

// NewWriteTool creates a write_file tool scoped to the workspace.
func NewWriteTool(cfg Config) *WriteTool {
	return &WriteTool{resolver: Resolver{Root: cfg.Workspace}, cache: cfg.Cache}
}

// Name returns the tool name.
func (t *WriteTool) Name() string {
	return "write_file"
}

// Description returns the tool description.
func (t *WriteTool) Description() string {
	return "Write content to a file in the workspace. mode selects overwrite (default), append, skip_if_exists, or patch."
}

// Schema returns the JSON schema for the tool parameters.
func (t *WriteTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to write (relative to workspace).",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "File contents to write. Required for every mode except patch.",
			},
			"patch": map[string]interface{}{
				"type":        "string",
				"description": "Unified diff to apply instead of content. Required for mode=patch.",
			},
			"mode": map[string]interface{}{
				"type":        "string",
				"description": "overwrite replaces the file's contents (default); append adds to the end; skip_if_exists writes only if the file is absent; patch applies a unified diff via content's patch field.",
				"enum":        []string{"overwrite", "append", "skip_if_exists", "patch"},
				"default":     "overwrite",
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

type writeInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Patch   string `json:"patch"`
	Mode    string `json:"mode"`
}

// Execute writes file contents per the requested mode.
func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input writeInput
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolError("path is required"), nil
	}

	mode := strings.ToLower(strings.TrimSpace(input.Mode))
	if mode == "" {
		mode = "overwrite"
	}

	switch mode {
	case "overwrite", "append":
		return t.writeDirect(input, mode == "append")
	case "skip_if_exists":
		return t.writeSkipIfExists(input)
	case "patch":
		return t.writePatch(input)
	default:
		return toolError(fmt.Sprintf("unsupported mode %q", input.Mode)), nil
	}
}

func (t *WriteTool) writeDirect(input writeInput, appendMode bool) (*agent.ToolResult, error) {
	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return toolError(fmt.Sprintf("create directory: %v", err)), nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return toolError(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return toolError(fmt.Sprintf("write file: %v", err)), nil
	}

	t.invalidateCache(resolved)

	mode := "overwrite"
	if appendMode {
		mode = "append"
	}
	return t.encodeResult(map[string]interface{}{
		"path":          input.Path,
		"mode":          mode,
		"bytes_written": n,
	})
}

// writeSkipIfExists writes input.Content only if the target file does not
// already exist, reporting skipped=true rather than an error when it does.
func (t *WriteTool) writeSkipIfExists(input writeInput) (*agent.ToolResult, error) {
	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if _, err := os.Stat(resolved); err == nil {
		return t.encodeResult(map[string]interface{}{
			"path":    input.Path,
			"mode":    "skip_if_exists",
			"skipped": true,
		})
	} else if !os.IsNotExist(err) {
		return toolError(fmt.Sprintf("stat file: %v", err)), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return toolError(fmt.Sprintf("create directory: %v", err)), nil
	}
	if err := os.WriteFile(resolved, []byte(input.Content), 0o644); err != nil {
		return toolError(fmt.Sprintf("write file: %v", err)), nil
	}

	t.invalidateCache(resolved)
	return t.encodeResult(map[string]interface{}{
		"path":          input.Path,
		"mode":          "skip_if_exists",
		"skipped":       false,
		"bytes_written": len(input.Content),
	})
}

// writePatch applies input.Patch as a unified diff against input.Path,
// reusing the same parseUnifiedDiff/applyFilePatch logic as ApplyPatchTool
// rather than duplicating it.
func (t *WriteTool) writePatch(input writeInput) (*agent.ToolResult, error) {
	if strings.TrimSpace(input.Patch) == "" {
		return toolError("patch is required for mode=patch"), nil
	}
	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read file: %v", err)), nil
	}

	patches, err := parseUnifiedDiff(input.Patch)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if len(patches) != 1 {
		return toolError("write_file mode=patch expects a single-file patch; use apply_patch for multi-file diffs"), nil
	}

	updated, err := applyFilePatch(string(data), patches[0])
	if err != nil {
		return toolError(fmt.Sprintf("apply patch: %v", err)), nil
	}
	if err := os.WriteFile(resolved, []byte(updated.Content), 0o644); err != nil {
		return toolError(fmt.Sprintf("write file: %v", err)), nil
	}

	t.invalidateCache(resolved)
	return t.encodeResult(map[string]interface{}{
		"path":          input.Path,
		"mode":          "patch",
		"lines_added":   updated.Added,
		"lines_removed": updated.Removed,
	})
}

func (t *WriteTool) invalidateCache(resolved string) {
	if t.cache == nil {
		return
	}
	t.cache.InvalidatePrefix("read_file:" + resolved)
	t.cache.InvalidatePrefix("list_files:" + filepath.Dir(resolved))
}

func (t *WriteTool) encodeResult(result map[string]interface{}) (*agent.ToolResult, error) {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
