package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vtcode.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
workspace:
  root: /tmp/workspace
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Policy.Profile != "coding" {
		t.Errorf("expected default policy profile %q, got %q", "coding", cfg.Policy.Profile)
	}
	if cfg.Cache.SmallThresholdBytes != 50*1024 {
		t.Errorf("expected default small threshold 50KB, got %d", cfg.Cache.SmallThresholdBytes)
	}
	if cfg.Snapshots.Dir != ".vtcode/snapshots" {
		t.Errorf("expected default snapshots dir, got %q", cfg.Snapshots.Dir)
	}
	if cfg.Orchestrator.MaxHandoffDepth != 5 {
		t.Errorf("expected default max handoff depth 5, got %d", cfg.Orchestrator.MaxHandoffDepth)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("expected default logging level/format info/json, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("VTCODE_TEST_API_KEY", "sk-test-value")
	path := writeTempConfig(t, `
workspace:
  root: /tmp/workspace
providers:
  anthropic:
    api_key: ${VTCODE_TEST_API_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-test-value" {
		t.Errorf("expected expanded api key, got %q", cfg.Providers.Anthropic.APIKey)
	}
}

func TestLoad_EnvOverrideTakesPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-env-value")
	path := writeTempConfig(t, `
workspace:
  root: /tmp/workspace
providers:
  anthropic:
    api_key: sk-file-value
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-env-value" {
		t.Errorf("expected env override to win, got %q", cfg.Providers.Anthropic.APIKey)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, `
workspace:
  root: /tmp/workspace
nonexistent_section:
  foo: bar
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown top-level field")
	}
}

func TestLoad_RejectsInvertedCacheThresholds(t *testing.T) {
	path := writeTempConfig(t, `
workspace:
  root: /tmp/workspace
cache:
  small_threshold_bytes: 1000000
  medium_threshold_bytes: 500
  large_threshold_bytes: 2000000
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a validation error for inverted cache thresholds")
	}
	if _, ok := err.(*ConfigValidationError); !ok {
		t.Errorf("expected *ConfigValidationError, got %T", err)
	}
}

func TestLoad_RejectsInvalidPolicyProfile(t *testing.T) {
	path := writeTempConfig(t, `
workspace:
  root: /tmp/workspace
policy:
  profile: omniscient
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected a validation error for an unrecognized policy profile")
	}
}
