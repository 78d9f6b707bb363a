package main

import (
	"fmt"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/config"
	"github.com/vtcode-ai/vtcode/internal/filecache"
	"github.com/vtcode-ai/vtcode/internal/tools"
	"github.com/vtcode-ai/vtcode/internal/tools/exec"
	"github.com/vtcode-ai/vtcode/internal/tools/files"
	"github.com/vtcode-ai/vtcode/internal/tools/plan"
	"github.com/vtcode-ai/vtcode/internal/tools/policy"
	"github.com/vtcode-ai/vtcode/internal/tools/search"
	"github.com/vtcode-ai/vtcode/internal/tools/web"
)

// buildCache constructs the multi-tier file cache shared by the file tools
// and the runner's cache-hit-rate metric.
func buildCache(cfg *config.Config) *filecache.Cache {
	return filecache.New(filecache.Config{
		SmallThresholdBytes:  cfg.Cache.SmallThresholdBytes,
		MediumThresholdBytes: cfg.Cache.MediumThresholdBytes,
		LargeThresholdBytes:  cfg.Cache.LargeThresholdBytes,
		MaxMemoryUsageBytes:  cfg.Cache.MaxMemoryBytes,
	})
}

// buildRegistry assembles every workspace tool behind one policy-gated
// registry, following the same Register-then-Dispatch wiring as
// internal/tools.Registry's own doc comment describes.
func buildRegistry(cfg *config.Config, cache *filecache.Cache) (*tools.Registry, error) {
	filesCfg := files.Config{
		Workspace: cfg.Workspace.Root,
		Cache:     cache,
	}

	shellGuard, err := policy.NewShellGuard(cfg.Policy.ShellDenyRegex, cfg.Policy.ShellDenyGlob)
	if err != nil {
		return nil, fmt.Errorf("build shell guard: %w", err)
	}
	curlGuard := policy.NewCurlGuard(false, nil, 10*1024*1024)

	execManager := exec.NewManager(cfg.Workspace.Root)
	planStore := plan.NewStore()

	registry := tools.NewRegistry(policy.NewResolver())
	registry.SetMaxLevel(tools.ParseCapabilityLevel(cfg.Policy.MaxCapabilityLevel))

	leveled := []struct {
		tool  agent.Tool
		level tools.CapabilityLevel
	}{
		{files.NewReadTool(filesCfg), tools.FileReading},
		{files.NewWriteTool(filesCfg), tools.Editing},
		{files.NewEditTool(filesCfg), tools.Editing},
		{files.NewDeleteTool(filesCfg), tools.Editing},
		{files.NewListTool(filesCfg), tools.FileListing},
		{files.NewApplyPatchTool(filesCfg), tools.Editing},
		{search.NewGrepSearchTool(cfg.Workspace.Root), tools.CodeSearch},
		{search.NewRipgrepSearchTool(cfg.Workspace.Root), tools.CodeSearch},
		{search.NewAstGrepSearchTool(cfg.Workspace.Root), tools.CodeSearch},
		{exec.NewExecTool("run_terminal_cmd", execManager, shellGuard), tools.Bash},
		{web.NewCurlTool(curlGuard), tools.Basic},
		{plan.NewUpdatePlanTool(planStore), tools.Basic},
	}
	for _, lt := range leveled {
		if err := registry.RegisterWithLevel(lt.tool, lt.level); err != nil {
			return nil, fmt.Errorf("register tool %q: %w", lt.tool.Name(), err)
		}
	}

	return registry, nil
}
