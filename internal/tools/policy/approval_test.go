package policy

import (
	"context"
	"testing"
	"time"
)

func TestApprovalManager_ApproveUnblocksWaiter(t *testing.T) {
	m := NewApprovalManager(time.Minute)
	req := m.Request("write_file", `{"path":"a.go"}`, "task-1")

	done := make(chan error, 1)
	go func() {
		done <- m.WaitForApproval(context.Background(), req.ID)
	}()

	time.Sleep(150 * time.Millisecond)
	if err := m.Approve(req.ID); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitForApproval() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForApproval did not return after approval")
	}
}

func TestApprovalManager_DenyReturnsError(t *testing.T) {
	m := NewApprovalManager(time.Minute)
	req := m.Request("run_terminal_cmd", `{"command":"rm -rf /tmp/x"}`, "task-1")

	if err := m.Deny(req.ID, "too risky"); err != nil {
		t.Fatalf("Deny() error: %v", err)
	}

	err := m.WaitForApproval(context.Background(), req.ID)
	if err == nil {
		t.Fatal("expected error after deny")
	}
}

func TestApprovalManager_RequestInvokesHandler(t *testing.T) {
	m := NewApprovalManager(time.Minute)
	var seen *ApprovalRequest
	m.SetApprovalRequiredHandler(func(r *ApprovalRequest) { seen = r })

	req := m.Request("write_file", `{}`, "task-2")
	if seen == nil || seen.ID != req.ID {
		t.Fatal("expected handler to be invoked with the new request")
	}
}

func TestApprovalManager_ListPending(t *testing.T) {
	m := NewApprovalManager(time.Minute)
	m.Request("write_file", `{}`, "task-1")
	req2 := m.Request("delete_file", `{}`, "task-1")
	m.Approve(req2.ID)

	pending := m.ListPending()
	if len(pending) != 1 {
		t.Fatalf("ListPending() len = %d, want 1", len(pending))
	}
}
