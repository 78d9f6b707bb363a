package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_WriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{Dir: dir})

	messages := json.RawMessage(`[{"role":"user","content":"hi"}]`)
	ctxState := json.RawMessage(`{"turn":1}`)
	if err := m.Write(1, messages, ctxState, 1700000000); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	snap, err := m.Load(1)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if snap.Turn != 1 {
		t.Errorf("expected turn 1, got %d", snap.Turn)
	}
	if !snap.APIKeyMasked {
		t.Error("expected api_key_masked to be true")
	}
	if snap.Checksum == "" {
		t.Error("expected a non-empty checksum")
	}
}

func TestManager_LoadRejectsTamperedChecksum(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{Dir: dir})
	if err := m.Write(1, json.RawMessage(`[]`), json.RawMessage(`{}`), 0); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	path := filepath.Join(dir, "turn_1.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	snap.Messages = json.RawMessage(`[{"role":"user","content":"tampered"}]`)
	tampered, _ := json.MarshalIndent(snap, "", "  ")
	if err := os.WriteFile(path, tampered, 0600); err != nil {
		t.Fatalf("write tampered snapshot: %v", err)
	}

	if _, err := m.Load(1); err == nil {
		t.Fatal("expected Load() to reject a tampered checksum")
	}
}

func TestManager_WriteWithSummariesPersistsDecisionAndRecoveryLogs(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{Dir: dir})

	decisions := []string{"turn 1: called write_file"}
	recoveries := []string{"tool run_terminal_cmd: retried 2 time(s), succeeded"}
	if err := m.WriteWithSummaries(1, json.RawMessage(`[]`), json.RawMessage(`{}`), 0, decisions, recoveries); err != nil {
		t.Fatalf("WriteWithSummaries() error: %v", err)
	}

	snap, err := m.Load(1)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(snap.DecisionTrackerSummary) != 1 || snap.DecisionTrackerSummary[0] != decisions[0] {
		t.Errorf("expected decision_tracker_summary %v, got %v", decisions, snap.DecisionTrackerSummary)
	}
	if len(snap.ErrorRecoverySummary) != 1 || snap.ErrorRecoverySummary[0] != recoveries[0] {
		t.Errorf("expected error_recovery_summary %v, got %v", recoveries, snap.ErrorRecoverySummary)
	}
}

func TestManager_RestoreReturnsNotImplementedAfterValidating(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{Dir: dir})
	if err := m.Write(1, json.RawMessage(`[]`), json.RawMessage(`{}`), 0); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	_, err := m.Restore(1, RestoreFull)
	if !errors.Is(err, ErrRestoreNotImplemented) {
		t.Fatalf("expected ErrRestoreNotImplemented, got %v", err)
	}
}

func TestManager_CleanupRetainsOnlyMaxSnapshots(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{Dir: dir, AutoCleanup: true, MaxSnapshots: 2})

	for turn := 1; turn <= 5; turn++ {
		if err := m.Write(turn, json.RawMessage(`[]`), json.RawMessage(`{}`), int64(turn)); err != nil {
			t.Fatalf("Write(%d) error: %v", turn, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 retained snapshots, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "turn_5.json")); err != nil {
		t.Error("expected the most recent snapshot (turn 5) to survive cleanup")
	}
	if _, err := os.Stat(filepath.Join(dir, "turn_1.json")); !os.IsNotExist(err) {
		t.Error("expected the oldest snapshot (turn 1) to be removed by cleanup")
	}
}
