// Package policy implements the tool policy gate: every tool call the agent
// runner wants to execute is resolved to an Allow/Prompt/Deny decision before
// it reaches the tool registry.
package policy

import "strings"

// Decision is the three-way outcome of evaluating a tool call against a
// Policy. Deny always wins over Prompt, which always wins over Allow.
type Decision string

const (
	Allow  Decision = "allow"
	Prompt Decision = "prompt"
	Deny   Decision = "deny"
)

// Profile names a bundled starting policy that Allow/Prompt/Deny rules layer
// on top of.
type Profile string

const (
	// ProfileReadOnly permits only tools that cannot mutate the workspace
	// or run arbitrary commands. Used for Explorer sub-agents.
	ProfileReadOnly Profile = "readonly"

	// ProfileCoding is the default profile: file mutation and shell
	// execution require prompting, reads and search do not.
	ProfileCoding Profile = "coding"

	// ProfileFull allows every registered tool with no prompting.
	ProfileFull Profile = "full"

	// ProfileMinimal allows only plan bookkeeping and workspace reads.
	ProfileMinimal Profile = "minimal"
)

// Policy is the set of rules a Resolver evaluates a tool call against.
// Allow/Prompt/Deny are tool names or group references ("group:fs"); a
// bare "*" in Deny denies everything not explicitly allowed elsewhere.
type Policy struct {
	Profile Profile
	Allow   []string
	Prompt  []string
	Deny    []string
}

// NewPolicy creates a policy with the given profile as its base.
func NewPolicy(profile Profile) *Policy {
	return &Policy{Profile: profile}
}

// WithAllow adds tools to the allow list and returns the policy for chaining.
func (p *Policy) WithAllow(tools ...string) *Policy {
	p.Allow = append(p.Allow, tools...)
	return p
}

// WithPrompt adds tools to the prompt list and returns the policy for chaining.
func (p *Policy) WithPrompt(tools ...string) *Policy {
	p.Prompt = append(p.Prompt, tools...)
	return p
}

// WithDeny adds tools to the deny list and returns the policy for chaining.
func (p *Policy) WithDeny(tools ...string) *Policy {
	p.Deny = append(p.Deny, tools...)
	return p
}

// ProfileDefaults gives each Profile its base Allow/Prompt list, expanded
// through ToolGroups by the Resolver at decision time.
var ProfileDefaults = map[Profile]*Policy{
	ProfileReadOnly: {
		Allow: []string{"group:readonly"},
		Deny:  []string{"*"},
	},
	ProfileCoding: {
		Allow:  []string{"group:readonly", "group:search"},
		Prompt: []string{"group:mutate", "group:exec"},
	},
	ProfileFull: {
		Allow: []string{"*"},
	},
	ProfileMinimal: {
		Allow: []string{"list_files", "read_file", "update_plan"},
		Deny:  []string{"*"},
	},
}

// ToolAliases maps alternate spellings onto VTCode's canonical tool names.
var ToolAliases = map[string]string{
	"bash":         "run_terminal_cmd",
	"shell":        "run_terminal_cmd",
	"apply-patch":  "apply_patch",
	"grep":         "grep_search",
	"ripgrep":      "rp_search",
	"astgrep":      "ast_grep_search",
	"ast-grep":     "ast_grep_search",
	"ls":           "list_files",
	"cat":          "read_file",
	"rm":           "delete_file",
}

// NormalizeTool lowercases, trims, and resolves aliases for a single tool name.
func NormalizeTool(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := ToolAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// NormalizeTools applies NormalizeTool to every entry in a slice.
func NormalizeTools(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeTool(n)
	}
	return out
}

// Merge combines policies in order; later policies' profile wins, and
// allow/prompt/deny lists accumulate.
func Merge(policies ...*Policy) *Policy {
	result := &Policy{}
	for _, p := range policies {
		if p == nil {
			continue
		}
		if p.Profile != "" {
			result.Profile = p.Profile
		}
		result.Allow = append(result.Allow, p.Allow...)
		result.Prompt = append(result.Prompt, p.Prompt...)
		result.Deny = append(result.Deny, p.Deny...)
	}
	return result
}
