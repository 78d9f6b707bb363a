package search

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestGrepSearchTool_RejectsEmptyPattern(t *testing.T) {
	dir := t.TempDir()
	tool := NewGrepSearchTool(dir)
	params, _ := json.Marshal(map[string]interface{}{"pattern": ""})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected empty pattern to be rejected")
	}
}

func TestGrepSearchTool_RejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	tool := NewGrepSearchTool(dir)
	params, _ := json.Marshal(map[string]interface{}{"pattern": "foo", "path": "../../etc"})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected path escape to be rejected")
	}
}

func TestGrepSearchTool_MultiModeRequiresPatterns(t *testing.T) {
	dir := t.TempDir()
	tool := NewGrepSearchTool(dir)
	params, _ := json.Marshal(map[string]interface{}{"mode": "multi"})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected mode=multi without patterns to be rejected")
	}
}

func TestGrepSearchTool_SimilarityModeRequiresReferenceFile(t *testing.T) {
	dir := t.TempDir()
	tool := NewGrepSearchTool(dir)
	params, _ := json.Marshal(map[string]interface{}{"mode": "similarity"})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected mode=similarity without reference_file to be rejected")
	}
}

func TestParseRipgrepJSON_ExtractsStructuredMatches(t *testing.T) {
	raw := []byte(
		`{"type":"context","data":{"path":{"text":"a.go"},"lines":{"text":"before\n"},"line_number":1}}` + "\n" +
			`{"type":"match","data":{"path":{"text":"a.go"},"lines":{"text":"hit\n"},"line_number":2,"submatches":[{"start":3}]}}` + "\n",
	)
	matches, err := parseRipgrepJSON(raw)
	if err != nil {
		t.Fatalf("parseRipgrepJSON() error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Path != "a.go" || m.Line != 2 || m.Column != 4 || m.Content != "hit" {
		t.Errorf("unexpected match: %+v", m)
	}
	if len(m.ContextBefore) != 1 || m.ContextBefore[0] != "before" {
		t.Errorf("expected context_before to contain 'before', got %v", m.ContextBefore)
	}
}

func TestSimilarity_IdenticalStringsScoreOne(t *testing.T) {
	if got := similarity("func Foo()", "func Foo()"); got != 1 {
		t.Errorf("similarity() = %v, want 1", got)
	}
}

func TestAstGrepSearchTool_RequiresLang(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	tool := NewAstGrepSearchTool(dir)
	params, _ := json.Marshal(map[string]interface{}{"pattern": "func $NAME() {}"})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected missing lang to be rejected")
	}
}
