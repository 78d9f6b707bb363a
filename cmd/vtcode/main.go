// Package main provides the CLI entry point for VTCode, a terminal-based,
// LLM-driven coding assistant.
//
// VTCode runs a single task against a workspace with one agent runner, or
// fans a task out across explorer/coder sub-agents via the orchestrator.
//
// # Basic Usage
//
// Run a single task:
//
//	vtcode run --config vtcode.yaml "rename function old to new in src/lib.rs"
//
// Run a multi-agent task:
//
//	vtcode orchestrate --config vtcode.yaml "add rate limiting to the auth module"
//
// # Environment Variables
//
//   - VTCODE_CONFIG: Path to the configuration file (default: vtcode.yaml)
//   - VTCODE_WORKSPACE_ROOT: Overrides workspace.root
//   - VTCODE_LOG_LEVEL: Overrides logging.level
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY: provider credentials
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vtcode",
		Short: "VTCode - terminal-based, LLM-driven coding assistant",
		Long: `VTCode runs an agent loop that reads/edits/searches a workspace and
calls out to an LLM provider (Anthropic, OpenAI, or Gemini), dispatching
tool calls under a configurable policy gate.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildOrchestrateCmd(),
	)

	return rootCmd
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("VTCODE_CONFIG"); env != "" {
		return env
	}
	return "vtcode.yaml"
}
