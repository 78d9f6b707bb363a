package contextstore

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_AddMessageSummarizesAndExtractsKeyInfo(t *testing.T) {
	s := New(DefaultConfig(), fixedClock(time.Unix(0, 0)))
	s.AddMessage("an error occurred in the function call", "assistant")

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 compacted message, got %d", len(msgs))
	}
	if msgs[0].Summary != "an error occurred in the function call" {
		t.Errorf("expected verbatim summary for short content, got %q", msgs[0].Summary)
	}
	found := map[string]bool{}
	for _, kw := range msgs[0].KeyInfo {
		found[kw] = true
	}
	if !found["error"] || !found["function"] {
		t.Errorf("expected key_info to include error and function, got %v", msgs[0].KeyInfo)
	}

	enhanced := s.Enhanced()
	if len(enhanced) != 1 {
		t.Fatalf("expected 1 enhanced message, got %d", len(enhanced))
	}
	if enhanced[0].Priority != PriorityHigh {
		t.Errorf("expected high priority for an error+function message, got %s", enhanced[0].Priority)
	}
}

func TestStore_SummarizeTruncatesLongContent(t *testing.T) {
	s := New(DefaultConfig(), fixedClock(time.Unix(0, 0)))
	long := strings.Repeat("a", 500)
	s.AddMessage(long, "user")

	msgs := s.Messages()
	if !strings.HasSuffix(msgs[0].Summary, "...") {
		t.Error("expected truncated summary to end with ellipsis")
	}
	if len(msgs[0].Summary) != summaryMaxChars+3 {
		t.Errorf("expected summary length %d, got %d", summaryMaxChars+3, len(msgs[0].Summary))
	}
}

func TestStore_CompactsOnMessageCountThreshold(t *testing.T) {
	cfg := Config{MaxUncompressedMessages: 5, MaxMemoryMB: 1000, CompactionIntervalSecs: 0, AutoCompact: false}
	s := New(cfg, fixedClock(time.Unix(0, 0)))

	var lastResult *CompactionResult
	for i := 0; i < 10; i++ {
		if r := s.AddMessage("message content", "user"); r != nil {
			lastResult = r
		}
	}

	if lastResult == nil {
		t.Fatal("expected compaction to have triggered")
	}
	if len(s.Messages()) > cfg.MaxUncompressedMessages {
		t.Errorf("expected compacted store to respect the threshold, got %d messages", len(s.Messages()))
	}
}

func TestStore_SuggestionsAreNonMutating(t *testing.T) {
	cfg := Config{MaxUncompressedMessages: 3, MaxMemoryMB: 1000, CompactionIntervalSecs: 0, AutoCompact: false}
	s := New(cfg, fixedClock(time.Unix(0, 0)))
	s.AddMessage("a", "user")
	s.AddMessage("b", "user")

	before := len(s.Messages())
	suggestions := s.Suggestions()
	after := len(s.Messages())

	if before != after {
		t.Fatal("Suggestions() must not mutate store state")
	}
	if len(suggestions) != 0 {
		t.Errorf("expected no suggestions below threshold, got %d", len(suggestions))
	}
}

func TestStore_SuggestsCompactionOverCountThreshold(t *testing.T) {
	cfg := Config{MaxUncompressedMessages: 5, MaxMemoryMB: 1000, CompactionIntervalSecs: 0, AutoCompact: false}
	s := New(cfg, fixedClock(time.Unix(0, 0)))
	// Fill below the threshold so AddMessage does not compact, then lower the
	// threshold so the store is 2 messages over it when Suggestions runs.
	s.AddMessage("a", "user")
	s.AddMessage("b", "user")
	s.AddMessage("c", "user")
	s.cfg.MaxUncompressedMessages = 1
	suggestions := s.Suggestions()
	found := false
	for _, sug := range suggestions {
		if sug.Urgency == "" {
			t.Error("expected every suggestion to carry an urgency")
		}
		if sug.Action == "compact_now" && sug.Urgency == UrgencyHigh && sug.EstimatedSavings == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a high-urgency compact_now suggestion saving 2 messages, got %+v", suggestions)
	}
}
