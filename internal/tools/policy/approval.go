package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrApprovalDenied  = errors.New("approval denied")
	ErrApprovalExpired = errors.New("approval expired")
)

// ApprovalStatus is the current state of an ApprovalRequest.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusDenied   ApprovalStatus = "denied"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// ApprovalRequest represents one tool call that resolved to Prompt and is
// waiting on a user decision before the agent runner proceeds.
type ApprovalRequest struct {
	ID          string
	ToolName    string
	Input       string // JSON-encoded tool input, shown to the user
	TaskID      string
	RequestedAt time.Time
	ExpiresAt   time.Time
	Status      ApprovalStatus
	DecidedAt   *time.Time
	DenialReason string
}

// ApprovalManager tracks in-flight Prompt-tier approval requests for one
// agent run. The CLI frontend calls Approve/Deny from the user's response;
// the agent runner blocks on WaitForApproval.
type ApprovalManager struct {
	mu      sync.Mutex
	timeout time.Duration
	reqs    map[string]*ApprovalRequest

	onRequired func(*ApprovalRequest)

	counter int64
}

// NewApprovalManager creates a manager with the given approval timeout
// (requests left undecided past this are treated as expired/denied).
func NewApprovalManager(timeout time.Duration) *ApprovalManager {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ApprovalManager{
		timeout: timeout,
		reqs:    make(map[string]*ApprovalRequest),
	}
}

// SetApprovalRequiredHandler sets the callback invoked synchronously when a
// new approval request is created, typically to render a prompt to the user.
func (m *ApprovalManager) SetApprovalRequiredHandler(fn func(*ApprovalRequest)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRequired = fn
}

// Request creates a pending approval request for toolName and returns it.
func (m *ApprovalManager) Request(toolName, input, taskID string) *ApprovalRequest {
	m.mu.Lock()
	m.counter++
	req := &ApprovalRequest{
		ID:          fmt.Sprintf("apr_%d_%d", time.Now().UnixNano(), m.counter),
		ToolName:    toolName,
		Input:       input,
		TaskID:      taskID,
		RequestedAt: time.Now(),
		ExpiresAt:   time.Now().Add(m.timeout),
		Status:      ApprovalStatusPending,
	}
	m.reqs[req.ID] = req
	cb := m.onRequired
	m.mu.Unlock()

	if cb != nil {
		cb(req)
	}
	return req
}

// Approve marks a pending request approved.
func (m *ApprovalManager) Approve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.reqs[id]
	if !ok {
		return fmt.Errorf("approval request not found: %s", id)
	}
	if req.Status != ApprovalStatusPending {
		return fmt.Errorf("request already decided: %s", req.Status)
	}
	if time.Now().After(req.ExpiresAt) {
		req.Status = ApprovalStatusExpired
		return ErrApprovalExpired
	}
	now := time.Now()
	req.Status = ApprovalStatusApproved
	req.DecidedAt = &now
	return nil
}

// Deny marks a pending request denied with reason.
func (m *ApprovalManager) Deny(id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.reqs[id]
	if !ok {
		return fmt.Errorf("approval request not found: %s", id)
	}
	if req.Status != ApprovalStatusPending {
		return fmt.Errorf("request already decided: %s", req.Status)
	}
	now := time.Now()
	req.Status = ApprovalStatusDenied
	req.DecidedAt = &now
	req.DenialReason = reason
	return nil
}

// WaitForApproval blocks until id is approved, denied, expired, or ctx is
// cancelled, polling every 100ms (requests are decided from a separate
// goroutine reading terminal input).
func (m *ApprovalManager) WaitForApproval(ctx context.Context, id string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.mu.Lock()
			req, ok := m.reqs[id]
			if ok && req.Status == ApprovalStatusPending && time.Now().After(req.ExpiresAt) {
				req.Status = ApprovalStatusExpired
			}
			var status ApprovalStatus
			var reason string
			if ok {
				status = req.Status
				reason = req.DenialReason
			}
			m.mu.Unlock()

			if !ok {
				return fmt.Errorf("approval request not found: %s", id)
			}
			switch status {
			case ApprovalStatusApproved:
				return nil
			case ApprovalStatusDenied:
				if reason != "" {
					return fmt.Errorf("%w: %s", ErrApprovalDenied, reason)
				}
				return ErrApprovalDenied
			case ApprovalStatusExpired:
				return ErrApprovalExpired
			}
		}
	}
}

// ListPending returns all currently pending approval requests.
func (m *ApprovalManager) ListPending() []*ApprovalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*ApprovalRequest
	now := time.Now()
	for _, req := range m.reqs {
		if req.Status != ApprovalStatusPending {
			continue
		}
		if now.After(req.ExpiresAt) {
			req.Status = ApprovalStatusExpired
			continue
		}
		pending = append(pending, req)
	}
	return pending
}
