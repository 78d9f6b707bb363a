package policy

import (
	"os"
	"regexp"
	"strings"
)

// shellDenyEnvAgent is the default {AGENT} substitution used when no
// specific agent type applies (the top-level, non-orchestrated runner).
// Orchestrator sub-agents use their own AgentType ("explorer"/"coder") so
// VTCODE_EXPLORER_COMMANDS_DENY_REGEX and VTCODE_CODER_COMMANDS_DENY_REGEX
// can be configured independently of the default.
const shellDenyEnvAgent = "agent"

// ShellGuard evaluates a proposed shell command against a deny list before
// the run_terminal_cmd/bash tool is allowed to execute it, independent of
// the Allow/Prompt/Deny tier the tool itself resolved to. A command that
// matches any deny rule is refused even if run_terminal_cmd is in the
// policy's allow list.
type ShellGuard struct {
	denyRegexps []*regexp.Regexp
	denyGlobs   []string
}

// DefaultDenyPatterns lists destructive or irreversible shell invocations
// denied regardless of policy: filesystem wipes, disk writes, fork bombs,
// privilege escalation, and credential exfiltration via pipe-to-shell.
var DefaultDenyPatterns = []string{
	`rm\s+(-\w*r\w*f|-\w*f\w*r)\s+/(\s|$)`,
	`rm\s+(-\w*r\w*f|-\w*f\w*r)\s+~`,
	`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`,
	`mkfs\.\w+`,
	`dd\s+if=.*of=/dev/`,
	`>\s*/dev/sd\w`,
	`chmod\s+-R\s+777\s+/`,
	`curl\s+.*\|\s*(sudo\s+)?(ba)?sh`,
	`wget\s+.*\|\s*(sudo\s+)?(ba)?sh`,
	`sudo\s+`,
}

// NewShellGuard compiles the default deny patterns plus any additional
// regexps and shell-style globs supplied by configuration, unioned with
// VTCODE_AGENT_COMMANDS_DENY_REGEX. Use NewShellGuardForAgent to scope the
// environment variable to a specific orchestrator AgentType instead.
func NewShellGuard(extraRegexps, extraGlobs []string) (*ShellGuard, error) {
	return NewShellGuardForAgent(extraRegexps, extraGlobs, shellDenyEnvAgent)
}

// NewShellGuardForAgent is NewShellGuard scoped to agentType's own deny-regex
// environment variable: VTCODE_{AGENT}_COMMANDS_DENY_REGEX (agentType
// upper-cased), comma-separated. Per SPEC_FULL.md §4.2 this set is unioned
// with the static config patterns, not a replacement for them.
func NewShellGuardForAgent(extraRegexps, extraGlobs []string, agentType string) (*ShellGuard, error) {
	g := &ShellGuard{}
	all := append(append([]string{}, DefaultDenyPatterns...), extraRegexps...)
	all = append(all, envDenyPatterns(agentType)...)
	for _, pat := range all {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, err
		}
		g.denyRegexps = append(g.denyRegexps, re)
	}
	g.denyGlobs = extraGlobs
	return g, nil
}

// envDenyPatterns reads VTCODE_{AGENT}_COMMANDS_DENY_REGEX and splits it on
// commas into individual regex patterns. Returns nil if unset or blank.
func envDenyPatterns(agentType string) []string {
	agentType = strings.TrimSpace(agentType)
	if agentType == "" {
		agentType = shellDenyEnvAgent
	}
	key := "VTCODE_" + strings.ToUpper(agentType) + "_COMMANDS_DENY_REGEX"
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Check returns a non-empty reason if command is denied, or "" if it may
// proceed. Matching is case-insensitive and ignores leading/trailing space.
func (g *ShellGuard) Check(command string) (denied bool, reason string) {
	trimmed := strings.TrimSpace(command)
	lower := strings.ToLower(trimmed)

	for _, re := range g.denyRegexps {
		if re.MatchString(lower) {
			return true, "command matches denied pattern: " + re.String()
		}
	}
	for _, glob := range g.denyGlobs {
		// A glob is matched as an anchored regex in which "*" means ".*".
		re, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(strings.ToLower(glob)), `\*`, ".*") + "$")
		if err != nil {
			continue
		}
		if re.MatchString(lower) {
			return true, "command matches denied glob: " + glob
		}
		// Glob against each whitespace-separated token too, so a glob like
		// "*.exe" denies "./payload.exe arg1" not just the full line.
		for _, tok := range strings.Fields(lower) {
			if re.MatchString(tok) {
				return true, "command matches denied glob: " + glob
			}
		}
	}
	return false, ""
}
