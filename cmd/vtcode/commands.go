package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vtcode-ai/vtcode/internal/config"
	"github.com/vtcode-ai/vtcode/internal/contextstore"
	"github.com/vtcode-ai/vtcode/internal/metrics"
	"github.com/vtcode-ai/vtcode/internal/orchestrator"
	"github.com/vtcode-ai/vtcode/internal/runner"
	"github.com/vtcode-ai/vtcode/internal/snapshot"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
)

func buildRunCmd() *cobra.Command {
	var configPath string
	var model string
	var maxToolLoops int

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a single task with one agent runner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if model != "" {
				cfg.Orchestrator.PrimaryModel = model
			}
			effectiveModel := model
			if effectiveModel == "" {
				effectiveModel = cfg.Orchestrator.PrimaryModel
			}
			if effectiveModel == "" {
				return fmt.Errorf("a model must be set via --model or orchestrator.primary_model")
			}

			provider, err := providerFor(effectiveModel, cfg.Providers)
			if err != nil {
				return err
			}
			cache := buildCache(cfg)
			registry, err := buildRegistry(cfg, cache)
			if err != nil {
				return err
			}

			toolPolicy := policy.NewPolicy(policy.Profile(cfg.Policy.Profile)).
				WithAllow(cfg.Policy.Allow...).
				WithDeny(cfg.Policy.Deny...)

			var snapshots *snapshot.Manager
			if cfg.Snapshots.Enabled {
				snapshots = snapshot.NewManager(snapshot.Config{
					Dir:          cfg.Snapshots.Dir,
					AutoCleanup:  cfg.Snapshots.AutoCleanup,
					MaxSnapshots: cfg.Snapshots.MaxSnapshots,
				})
			}

			loops := maxToolLoops
			if loops <= 0 {
				loops = 25
			}

			run := runner.New(runner.Config{
				Provider:   provider,
				Registry:   registry,
				ToolPolicy: toolPolicy,
				ContextStore: contextstore.New(contextstore.Config{
					MaxUncompressedMessages: cfg.Compaction.MaxUncompressedMessages,
					MaxMemoryMB:             cfg.Compaction.MaxMemoryMB,
					CompactionIntervalSecs:  cfg.Compaction.CompactionIntervalSecs,
					AutoCompact:             cfg.Compaction.AutoCompact,
				}, nil),
				Snapshots:    snapshots,
				Model:        effectiveModel,
				MaxToolLoops: loops,
				Cache:        cache,
				Metrics:      metrics.New(prometheus.DefaultRegisterer),
			})

			result, err := run.Run(cmd.Context(), args[0], defaultSystemPrompt(cfg.Workspace.Root))
			if err != nil {
				return err
			}
			return printTaskResult(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&model, "model", "", "Model id (overrides orchestrator.primary_model)")
	cmd.Flags().IntVar(&maxToolLoops, "max-tool-loops", 0, "Maximum provider turns before stopping (default 25)")

	return cmd
}

func buildOrchestrateCmd() *cobra.Command {
	var configPath string
	var agentType string

	cmd := &cobra.Command{
		Use:   "orchestrate [task]",
		Short: "Run a task as one sub-agent task under the orchestrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Orchestrator.PrimaryModel == "" {
				return fmt.Errorf("orchestrator.primary_model must be set in config")
			}

			primary, err := providerFor(cfg.Orchestrator.PrimaryModel, cfg.Providers)
			if err != nil {
				return err
			}

			registry, err := buildRegistry(cfg, buildCache(cfg))
			if err != nil {
				return err
			}

			var snapshots *snapshot.Manager
			if cfg.Snapshots.Enabled {
				snapshots = snapshot.NewManager(snapshot.Config{
					Dir:          cfg.Snapshots.Dir,
					AutoCleanup:  cfg.Snapshots.AutoCleanup,
					MaxSnapshots: cfg.Snapshots.MaxSnapshots,
				})
			}

			orchConfig := orchestrator.Config{
				Registry:     registry,
				Snapshots:    snapshots,
				Primary:      primary,
				Model:        cfg.Orchestrator.PrimaryModel,
				MaxToolLoops: 25,
			}
			if cfg.Orchestrator.FallbackModel != "" {
				fb, err := providerFor(cfg.Orchestrator.FallbackModel, cfg.Providers)
				if err != nil {
					return err
				}
				orchConfig.Fallback = fb
			}

			o := orchestrator.New(orchConfig)
			kind := orchestrator.AgentCoder
			if strings.EqualFold(agentType, "explorer") {
				kind = orchestrator.AgentExplorer
			}

			task := o.CreateTask(kind, args[0], args[0], nil, "", 0)
			result, err := o.LaunchSubagent(cmd.Context(), task.ID)
			if err != nil {
				return err
			}
			return printTaskResult(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&agentType, "agent-type", "coder", `Sub-agent capability subset: "explorer" or "coder"`)

	return cmd
}

func defaultSystemPrompt(workspaceRoot string) string {
	return fmt.Sprintf("You are a coding agent working in the workspace rooted at %s. Use the available tools to complete the task, then state that the task is complete.", workspaceRoot)
}

func printTaskResult(cmd *cobra.Command, result *runner.TaskResult) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
