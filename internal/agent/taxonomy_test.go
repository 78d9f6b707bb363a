package agent

import (
	"errors"
	"testing"
	"time"
)

func TestAPIError_RetryableByStatusCode(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{403, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		err := NewAPIError(tc.status, "boom")
		if err.Retryable != tc.retryable {
			t.Errorf("status %d: expected retryable=%v, got %v", tc.status, tc.retryable, err.Retryable)
		}
	}
}

func TestIsTaxonomyRetryable(t *testing.T) {
	if !IsTaxonomyRetryable(NewNetworkError("dial tcp: connection refused", nil)) {
		t.Error("expected NetworkError to be retryable")
	}
	if !IsTaxonomyRetryable(NewAPIError(503, "service unavailable")) {
		t.Error("expected a 503 APIError to be retryable")
	}
	if IsTaxonomyRetryable(NewAPIError(401, "unauthorized")) {
		t.Error("expected a 401 APIError not to be retryable")
	}
	if IsTaxonomyRetryable(NewConsistencyError("plan invariant violated")) {
		t.Error("expected ConsistencyError not to be retryable")
	}
}

func TestIsFatalTaxonomyError(t *testing.T) {
	if !IsFatalTaxonomyError(NewPolicyError("run_terminal_cmd", "matched shell deny regex")) {
		t.Error("expected PolicyError to be fatal")
	}
	if !IsFatalTaxonomyError(NewConsistencyError("checksum mismatch")) {
		t.Error("expected ConsistencyError to be fatal")
	}
	if !IsFatalTaxonomyError(NewAPIError(403, "forbidden")) {
		t.Error("expected a 403 APIError to be fatal")
	}
	if IsFatalTaxonomyError(NewAPIError(429, "rate limited")) {
		t.Error("expected a 429 APIError not to be fatal")
	}
	if IsFatalTaxonomyError(NewToolCallError("read_file", ToolCallNotFound, "no such file")) {
		t.Error("expected ToolCallError not to be fatal (it is surfaced to the model instead)")
	}
}

func TestToolCallError_UnwrapsCause(t *testing.T) {
	cause := errors.New("enoent")
	err := NewToolCallError("read_file", ToolCallIO, "failed to read").WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestTimeoutError_Message(t *testing.T) {
	err := NewTimeoutError("first_chunk", 30*time.Second)
	want := "timeout error: first_chunk exceeded 30s"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
