package policy

import "testing"

func TestDecide_DenyWinsOverAllow(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileFull).WithDeny("write_file")

	if got := r.Decide(p, "write_file"); got != Deny {
		t.Fatalf("Decide() = %v, want Deny", got)
	}
	if got := r.Decide(p, "read_file"); got != Allow {
		t.Fatalf("Decide() = %v, want Allow", got)
	}
}

func TestDecide_CodingProfilePromptsMutation(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileCoding)

	if got := r.Decide(p, "write_file"); got != Prompt {
		t.Fatalf("Decide(write_file) = %v, want Prompt", got)
	}
	if got := r.Decide(p, "read_file"); got != Allow {
		t.Fatalf("Decide(read_file) = %v, want Allow", got)
	}
	if got := r.Decide(p, "run_terminal_cmd"); got != Prompt {
		t.Fatalf("Decide(run_terminal_cmd) = %v, want Prompt", got)
	}
}

func TestDecide_ReadOnlyProfileDeniesMutation(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileReadOnly)

	if got := r.Decide(p, "write_file"); got != Deny {
		t.Fatalf("Decide(write_file) = %v, want Deny", got)
	}
	if got := r.Decide(p, "read_file"); got != Allow {
		t.Fatalf("Decide(read_file) = %v, want Allow", got)
	}
}

func TestNormalizeTool_ResolvesAliases(t *testing.T) {
	if got := NormalizeTool("bash"); got != "run_terminal_cmd" {
		t.Errorf("NormalizeTool(bash) = %q, want run_terminal_cmd", got)
	}
	if got := NormalizeTool("  Grep "); got != "grep_search" {
		t.Errorf("NormalizeTool(Grep) = %q, want grep_search", got)
	}
}

func TestExpandGroups_DedupesAcrossGroups(t *testing.T) {
	r := NewResolver()
	expanded := r.ExpandGroups([]string{"group:readonly", "group:search", "read_file"})

	count := 0
	for _, t := range expanded {
		if t == "read_file" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("read_file appeared %d times, want 1", count)
	}
}
