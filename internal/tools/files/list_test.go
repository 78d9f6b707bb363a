package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupTree(t *testing.T, root string) {
	t.Helper()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	must(os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))
	must(os.WriteFile(filepath.Join(root, "pkg", "lib.go"), []byte("package pkg\n// TODO fix"), 0o644))
	must(os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	must(os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0o644))
}

func TestListTool_ListImmediate(t *testing.T) {
	root := t.TempDir()
	setupTree(t, root)
	tool := NewListTool(Config{Workspace: root})

	params, _ := json.Marshal(map[string]interface{}{"path": "."})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if strings.Contains(result.Content, ".git") {
		t.Error("expected .git to be excluded from listing")
	}
	if !strings.Contains(result.Content, "main.go") {
		t.Error("expected main.go in listing")
	}
}

func TestListTool_FindContent(t *testing.T) {
	root := t.TempDir()
	setupTree(t, root)
	tool := NewListTool(Config{Workspace: root})

	params, _ := json.Marshal(map[string]interface{}{
		"path":    ".",
		"mode":    "find_content",
		"pattern": "TODO",
	})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result.Content, "lib.go") {
		t.Fatalf("expected lib.go match, got %s", result.Content)
	}
}

func TestDeleteTool_RemovesFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewDeleteTool(Config{Workspace: root})

	params, _ := json.Marshal(map[string]interface{}{"path": "gone.txt"})
	if _, err := tool.Execute(context.Background(), params); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file to be removed")
	}
}

func TestDeleteTool_RefusesDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	tool := NewDeleteTool(Config{Workspace: root})

	params, _ := json.Marshal(map[string]interface{}{"path": "sub"})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for directory delete")
	}
}
