package policy

import "testing"

func TestGetGroupTools_KnownGroup(t *testing.T) {
	tools, ok := GetGroupTools("group:exec")
	if !ok {
		t.Fatal("expected group:exec to exist")
	}
	found := false
	for _, tl := range tools {
		if tl == "run_terminal_cmd" {
			found = true
		}
	}
	if !found {
		t.Error("group:exec should include run_terminal_cmd")
	}
}

func TestIsGroup(t *testing.T) {
	if !IsGroup("group:readonly") {
		t.Error("group:readonly should be recognized as a group")
	}
	if IsGroup("read_file") {
		t.Error("read_file should not be recognized as a group")
	}
}
