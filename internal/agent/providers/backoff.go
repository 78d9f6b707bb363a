package providers

import (
	"math"
	"time"
)

// defaultRetryBase and defaultMaxRetries set the shared retry shape for all
// three provider backends: base*2^attempt backoff, capped, with a small
// total attempt count so a wedged provider fails fast instead of holding a
// stream open for minutes.
const (
	defaultRetryBase  = 100 * time.Millisecond
	defaultMaxRetries = 2 // plus the initial attempt, 3 attempts total
	maxRetryBackoff   = 10 * time.Second
)

// retryBackoff computes the exponential backoff for attempt (0-indexed),
// capped at maxRetryBackoff so a high attempt count never produces an
// unreasonably long wait.
func retryBackoff(base time.Duration, attempt int) time.Duration {
	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if backoff > maxRetryBackoff {
		return maxRetryBackoff
	}
	return backoff
}
