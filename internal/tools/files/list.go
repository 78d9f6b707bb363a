package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/filecache"
)

// defaultIgnoredDirs are always skipped during traversal, independent of any
// .gitignore content, matching the workspace tools' usual defaults.
var defaultIgnoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
}

// ListTool lists or searches workspace files. Mode selects the behavior:
//   - "list" (default): immediate children of path.
//   - "recursive": every file under path.
//   - "find_name": every file under path whose name matches Pattern (glob).
//   - "find_content": every file under path containing Pattern (substring).
type ListTool struct {
	resolver Resolver
	cache    *filecache.Cache
	maxItems int
}

// NewListTool creates a list_files tool scoped to the workspace.
func NewListTool(cfg Config) *ListTool {
	return &ListTool{resolver: Resolver{Root: cfg.Workspace}, cache: cfg.Cache, maxItems: 1000}
}

// Name returns the tool name.
func (t *ListTool) Name() string { return "list_files" }

// Description returns the tool description.
func (t *ListTool) Description() string {
	return "List files in the workspace. Supports list/recursive/find_name/find_content modes with pagination."
}

// Schema returns the JSON schema for the tool parameters.
func (t *ListTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list (relative to workspace, default '.').",
			},
			"mode": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"list", "recursive", "find_name", "find_content"},
				"description": "Listing mode (default 'list').",
			},
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob for find_name, substring for find_content.",
			},
			"max_items": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum entries to return (default 1000).",
				"minimum":     1,
			},
			"include_hidden": map[string]interface{}{
				"type":        "boolean",
				"description": "Include dotfiles (default false).",
			},
			"offset": map[string]interface{}{
				"type":        "integer",
				"description": "Skip this many matches for pagination (default 0).",
				"minimum":     0,
			},
		},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute lists or searches files per the requested mode.
func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Path          string `json:"path"`
		Mode          string `json:"mode"`
		Pattern       string `json:"pattern"`
		MaxItems      int    `json:"max_items"`
		IncludeHidden bool   `json:"include_hidden"`
		Offset        int    `json:"offset"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if input.Path == "" {
		input.Path = "."
	}
	if input.Mode == "" {
		input.Mode = "list"
	}
	maxItems := input.MaxItems
	if maxItems <= 0 {
		maxItems = t.maxItems
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	cacheKey := filecache.DirKey(resolved+"|"+input.Mode+"|"+input.Pattern, maxItems, input.IncludeHidden)
	if t.cache != nil {
		if cached, ok := t.cache.GetDirListing(cacheKey); ok {
			return &agent.ToolResult{Content: string(cached)}, nil
		}
	}

	var entries []string
	switch input.Mode {
	case "list":
		entries, err = t.listImmediate(resolved, input.IncludeHidden)
	case "recursive":
		entries, err = t.walk(resolved, input.IncludeHidden, nil, false)
	case "find_name":
		if input.Pattern == "" {
			return toolError("pattern is required for find_name"), nil
		}
		entries, err = t.walk(resolved, input.IncludeHidden, &input.Pattern, false)
	case "find_content":
		if input.Pattern == "" {
			return toolError("pattern is required for find_content"), nil
		}
		entries, err = t.walk(resolved, input.IncludeHidden, &input.Pattern, true)
	default:
		return toolError("unknown mode: " + input.Mode), nil
	}
	if err != nil {
		return toolError(err.Error()), nil
	}

	sort.Strings(entries)

	total := len(entries)
	truncated := false
	if input.Offset > 0 && input.Offset < len(entries) {
		entries = entries[input.Offset:]
	} else if input.Offset >= len(entries) {
		entries = nil
	}
	if len(entries) > maxItems {
		entries = entries[:maxItems]
		truncated = true
	}

	result := map[string]interface{}{
		"path":      input.Path,
		"mode":      input.Mode,
		"entries":   entries,
		"total":     total,
		"truncated": truncated,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}

	if t.cache != nil {
		t.cache.PutDirListing(cacheKey, payload)
	}

	return &agent.ToolResult{Content: string(payload)}, nil
}

func (t *ListTool) listImmediate(dir string, includeHidden bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !includeHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() && defaultIgnoredDirs[e.Name()] {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func (t *ListTool) walk(root string, includeHidden bool, pattern *string, matchContent bool) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		base := d.Name()
		if !includeHidden && strings.HasPrefix(base, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if defaultIgnoredDirs[base] {
				return filepath.SkipDir
			}
			return nil
		}

		if pattern == nil {
			matches = append(matches, rel)
			return nil
		}
		if matchContent {
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				return nil
			}
			if strings.Contains(string(data), *pattern) {
				matches = append(matches, rel)
			}
			return nil
		}
		if ok, _ := filepath.Match(*pattern, base); ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
