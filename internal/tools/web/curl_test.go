package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/vtcode-ai/vtcode/internal/tools/policy"
)

func TestCurlTool_DeniesNonHTTPS(t *testing.T) {
	tool := NewCurlTool(policy.NewCurlGuard(false, nil, 0))
	params, _ := json.Marshal(map[string]interface{}{"url": "http://example.com"})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected plain http to be denied")
	}
}

func TestCurlTool_FetchesAllowedHost(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "https://")
	host = strings.SplitN(host, ":", 2)[0]
	guard := policy.NewCurlGuard(false, []string{host}, 0)
	tool := NewCurlTool(guard)
	tool.client = srv.Client()

	params, _ := json.Marshal(map[string]interface{}{"url": srv.URL})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "\"status\": 200") {
		t.Errorf("expected status 200 in result, got %s", result.Content)
	}
	if !strings.Contains(result.Content, "security_notice") || !strings.Contains(result.Content, "allowlist") {
		t.Errorf("expected security_notice referencing the allowlist, got %s", result.Content)
	}
}

func TestCurlTool_RejectsUnsupportedMethod(t *testing.T) {
	tool := NewCurlTool(policy.NewCurlGuard(false, nil, 0))
	params, _ := json.Marshal(map[string]interface{}{"url": "https://example.com", "method": "POST"})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected POST to be rejected, curl only supports GET/HEAD")
	}
}

func TestCurlTool_SaveResponseWritesTempFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("saved body"))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "https://")
	host = strings.SplitN(host, ":", 2)[0]
	guard := policy.NewCurlGuard(false, []string{host}, 0)
	tool := NewCurlTool(guard)
	tool.client = srv.Client()

	params, _ := json.Marshal(map[string]interface{}{"url": srv.URL, "save_response": true})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", result.Content)
	}

	var payload struct {
		BodyPath string `json:"body_path"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if payload.BodyPath == "" {
		t.Fatal("expected body_path to be set")
	}
	data, err := os.ReadFile(payload.BodyPath)
	if err != nil {
		t.Fatalf("read saved body: %v", err)
	}
	if string(data) != "saved body" {
		t.Errorf("expected saved body contents, got %q", string(data))
	}
	os.Remove(payload.BodyPath)
}
