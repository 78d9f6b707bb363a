// Package config loads and validates the typed configuration tree for a
// VTCode run: workspace root and ignore files, provider credentials, cache
// tier thresholds, tool policy, compaction limits, snapshot retention, and
// orchestrator model selection.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for a VTCode run.
type Config struct {
	Workspace    WorkspaceConfig    `yaml:"workspace"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Cache        CacheConfig        `yaml:"cache"`
	Policy       PolicyConfig       `yaml:"policy"`
	Compaction   CompactionConfig   `yaml:"compaction"`
	Snapshots    SnapshotsConfig    `yaml:"snapshots"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// WorkspaceConfig roots every file-touching tool at a single directory.
type WorkspaceConfig struct {
	// Root is the directory every tool-resolved path must stay inside.
	Root string `yaml:"root"`

	// IgnoreFiles lists gitignore-style ignore files consulted by
	// list_files/grep_search/read_file, tried in order.
	// Default: [".vtcodeignore", ".vtagentgitignore"]
	IgnoreFiles []string `yaml:"ignore_files"`
}

// ProvidersConfig holds per-backend credentials and connection overrides.
type ProvidersConfig struct {
	Anthropic ProviderCredentials `yaml:"anthropic"`
	OpenAI    ProviderCredentials `yaml:"openai"`
	Gemini    ProviderCredentials `yaml:"gemini"`
}

// ProviderCredentials configures one LLM backend.
type ProviderCredentials struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
}

// CacheConfig sizes the file/directory cache's tiers (see internal/filecache).
type CacheConfig struct {
	// SmallThresholdBytes is the largest size kept in the small LRU tier.
	// Default: 50KB
	SmallThresholdBytes int64 `yaml:"small_threshold_bytes"`

	// MediumThresholdBytes is the largest size kept in the TTL-bounded
	// medium tier. Default: 500KB
	MediumThresholdBytes int64 `yaml:"medium_threshold_bytes"`

	// LargeThresholdBytes is the largest size ever cached; files above
	// this are read straight through. Default: 2MB
	LargeThresholdBytes int64 `yaml:"large_threshold_bytes"`

	// MaxMemoryBytes bounds the cache's total resident size across tiers.
	// Default: 100MB
	MaxMemoryBytes int64 `yaml:"max_memory_bytes"`
}

// PolicyConfig seeds the tool policy gate (see internal/tools/policy).
type PolicyConfig struct {
	// Profile is the bundled starting policy: "readonly", "coding",
	// "full", or "minimal".
	Profile string `yaml:"profile"`

	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`

	// ShellDenyRegex lists regular expressions matched against the
	// joined command line; a match denies the call before it spawns.
	ShellDenyRegex []string `yaml:"shell_deny_regex"`

	// ShellDenyGlob lists glob patterns matched against the command's
	// first argument (the binary path), same deny-before-spawn effect.
	ShellDenyGlob []string `yaml:"shell_deny_glob"`

	// MaxCapabilityLevel caps which tools the registry exposes to the model
	// at all, independent of the Allow/Deny/profile gate: "basic",
	// "file_reading", "file_listing", "bash", "editing", or "code_search".
	// Empty means unrestricted (the registry's highest level).
	MaxCapabilityLevel string `yaml:"max_capability_level"`
}

// CompactionConfig bounds the context store's uncompressed message window
// (see internal/contextstore).
type CompactionConfig struct {
	MaxUncompressedMessages int  `yaml:"max_uncompressed_messages"`
	MaxMemoryMB             int  `yaml:"max_memory_mb"`
	CompactionIntervalSecs  int  `yaml:"compaction_interval_seconds"`
	AutoCompact             bool `yaml:"auto_compact"`
}

// SnapshotsConfig controls per-turn snapshot persistence (see
// internal/snapshot).
type SnapshotsConfig struct {
	Dir          string `yaml:"dir"`
	Enabled      bool   `yaml:"enabled"`
	AutoCleanup  bool   `yaml:"auto_cleanup"`
	MaxSnapshots int    `yaml:"max_snapshots"`
}

// OrchestratorConfig selects the primary/fallback models a multi-agent run
// uses (see internal/orchestrator).
type OrchestratorConfig struct {
	PrimaryModel    string `yaml:"primary_model"`
	FallbackModel   string `yaml:"fallback_model"`
	MaxHandoffDepth int    `yaml:"max_handoff_depth"`
}

// LoggingConfig is the logging section of the config file. Load applies its
// defaults and validates its values; the CLI's logger does not read it.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error". Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// Load reads, expands, decodes, defaults, and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: expected single document")
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if value := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); value != "" {
		cfg.Providers.Anthropic.APIKey = value
	}
	if value := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); value != "" {
		cfg.Providers.OpenAI.APIKey = value
	}
	if value := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); value != "" {
		cfg.Providers.Gemini.APIKey = value
	}
	if value := strings.TrimSpace(os.Getenv("VTCODE_WORKSPACE_ROOT")); value != "" {
		cfg.Workspace.Root = value
	}
	if value := strings.TrimSpace(os.Getenv("VTCODE_LOG_LEVEL")); value != "" {
		cfg.Logging.Level = value
	}
	if value := strings.TrimSpace(os.Getenv("VTCODE_MAX_HANDOFF_DEPTH")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			cfg.Orchestrator.MaxHandoffDepth = parsed
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	applyWorkspaceDefaults(&cfg.Workspace)
	applyCacheDefaults(&cfg.Cache)
	applyPolicyDefaults(&cfg.Policy)
	applyCompactionDefaults(&cfg.Compaction)
	applySnapshotsDefaults(&cfg.Snapshots)
	applyOrchestratorDefaults(&cfg.Orchestrator)
	applyLoggingDefaults(&cfg.Logging)
}

func applyWorkspaceDefaults(cfg *WorkspaceConfig) {
	if cfg.Root == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.Root = wd
		}
	}
	if len(cfg.IgnoreFiles) == 0 {
		cfg.IgnoreFiles = []string{".vtcodeignore", ".vtagentgitignore"}
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.SmallThresholdBytes <= 0 {
		cfg.SmallThresholdBytes = 50 * 1024
	}
	if cfg.MediumThresholdBytes <= 0 {
		cfg.MediumThresholdBytes = 500 * 1024
	}
	if cfg.LargeThresholdBytes <= 0 {
		cfg.LargeThresholdBytes = 2 * 1024 * 1024
	}
	if cfg.MaxMemoryBytes <= 0 {
		cfg.MaxMemoryBytes = 100 * 1024 * 1024
	}
}

func applyPolicyDefaults(cfg *PolicyConfig) {
	if cfg.Profile == "" {
		cfg.Profile = "coding"
	}
}

func applyCompactionDefaults(cfg *CompactionConfig) {
	if cfg.MaxUncompressedMessages <= 0 {
		cfg.MaxUncompressedMessages = 200
	}
	if cfg.MaxMemoryMB <= 0 {
		cfg.MaxMemoryMB = 16
	}
	if cfg.CompactionIntervalSecs <= 0 {
		cfg.CompactionIntervalSecs = 120
	}
}

func applySnapshotsDefaults(cfg *SnapshotsConfig) {
	if cfg.Dir == "" {
		cfg.Dir = ".vtcode/snapshots"
	}
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = 50
	}
}

func applyOrchestratorDefaults(cfg *OrchestratorConfig) {
	if cfg.MaxHandoffDepth <= 0 {
		cfg.MaxHandoffDepth = 5
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
}

// ConfigValidationError collects every validation issue found in one pass,
// mirroring the teacher's aggregate-then-report config validation idiom.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validLogFormats = map[string]bool{"json": true, "text": true}
var validProfiles = map[string]bool{"readonly": true, "coding": true, "full": true, "minimal": true}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var issues []string

	if cfg.Workspace.Root == "" {
		issues = append(issues, "workspace.root must not be empty")
	}
	if !validProfiles[cfg.Policy.Profile] {
		issues = append(issues, `policy.profile must be "readonly", "coding", "full", or "minimal"`)
	}
	if cfg.Cache.SmallThresholdBytes >= cfg.Cache.MediumThresholdBytes {
		issues = append(issues, "cache.small_threshold_bytes must be less than cache.medium_threshold_bytes")
	}
	if cfg.Cache.MediumThresholdBytes >= cfg.Cache.LargeThresholdBytes {
		issues = append(issues, "cache.medium_threshold_bytes must be less than cache.large_threshold_bytes")
	}
	if cfg.Compaction.MaxUncompressedMessages < 0 {
		issues = append(issues, "compaction.max_uncompressed_messages must be >= 0")
	}
	if cfg.Snapshots.MaxSnapshots < 0 {
		issues = append(issues, "snapshots.max_snapshots must be >= 0")
	}
	if cfg.Orchestrator.MaxHandoffDepth < 0 {
		issues = append(issues, "orchestrator.max_handoff_depth must be >= 0")
	}
	if !validLogLevels[cfg.Logging.Level] {
		issues = append(issues, `logging.level must be "debug", "info", "warn", or "error"`)
	}
	if !validLogFormats[cfg.Logging.Format] {
		issues = append(issues, `logging.format must be "json" or "text"`)
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
