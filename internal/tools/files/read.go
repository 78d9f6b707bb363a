package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/filecache"
)

// Config controls filesystem tool defaults.
type Config struct {
	Workspace    string
	MaxReadBytes int
	MaxReadLines int // default 2000; files longer than this are head/tail truncated
	Cache        *filecache.Cache
}

const (
	defaultMaxReadLines = 2000
	headLines           = 800
	tailLines           = 800
)

// ReadTool implements a safe, cache-backed file reader.
type ReadTool struct {
	resolver   Resolver
	maxReadLen int
	maxLines   int
	cache      *filecache.Cache
}

// NewReadTool creates a read_file tool scoped to the workspace.
func NewReadTool(cfg Config) *ReadTool {
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = 200000
	}
	lines := cfg.MaxReadLines
	if lines <= 0 {
		lines = defaultMaxReadLines
	}
	return &ReadTool{
		resolver:   Resolver{Root: cfg.Workspace},
		maxReadLen: limit,
		maxLines:   lines,
		cache:      cfg.Cache,
	}
}

// Name returns the tool name.
func (t *ReadTool) Name() string { return "read_file" }

// Description returns the tool description.
func (t *ReadTool) Description() string {
	return "Read a file from the workspace. Long files are truncated to the first and last lines with a marker in between."
}

// Schema returns the JSON schema for the tool parameters.
func (t *ReadTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file (relative to workspace, or absolute).",
			},
			"max_bytes": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum bytes to read (capped by tool default).",
				"minimum":     0,
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

// Execute reads a file with safety limits, consulting the file cache first.
func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		Path     string `json:"path"`
		MaxBytes int    `json:"max_bytes"`
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

	limit := t.maxReadLen
	if input.MaxBytes > 0 && input.MaxBytes < limit {
		limit = input.MaxBytes
	}

	var raw []byte
	cacheKey := "read_file:" + resolved
	if t.cache != nil {
		if cached, ok := t.cache.GetFile(cacheKey); ok {
			raw = cached
		}
	}
	if raw == nil {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return toolError(fmt.Sprintf("open file: %v", err)), nil
		}
		raw = data
		if t.cache != nil {
			t.cache.PutFile(cacheKey, data)
		}
	}

	byteTruncated := false
	if len(raw) > limit {
		raw = raw[:limit]
		byteTruncated = true
	}

	content, lineTruncated, totalLines := truncateByLines(string(raw), t.maxLines)

	result := map[string]interface{}{
		"path":       input.Path,
		"content":    content,
		"bytes":      len(raw),
		"truncated":  byteTruncated || lineTruncated,
		"line_count": totalLines,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}

	return &agent.ToolResult{Content: string(payload)}, nil
}

// truncateByLines returns content unchanged if it has maxLines lines or
// fewer. Otherwise it keeps the first headLines and last tailLines, joined
// by a marker noting how many lines were elided.
func truncateByLines(content string, maxLines int) (result string, truncated bool, totalLines int) {
	lines := strings.Split(content, "\n")
	totalLines = len(lines)
	if totalLines <= maxLines {
		return content, false, totalLines
	}

	head := lines[:headLines]
	tail := lines[totalLines-tailLines:]
	elided := totalLines - headLines - tailLines

	var b strings.Builder
	b.WriteString(strings.Join(head, "\n"))
	b.WriteString(fmt.Sprintf("\n... [%d lines omitted] ...\n", elided))
	b.WriteString(strings.Join(tail, "\n"))
	return b.String(), true, totalLines
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
