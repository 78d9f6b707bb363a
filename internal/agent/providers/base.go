package providers

import (
	"context"
	"time"
)

// BaseProvider holds shared retry configuration for LLM providers.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider creates a base provider with sane defaults.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryBase
	}
	return BaseProvider{
		name:       name,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// RetryWithBackoff executes op, retrying while isRetryable returns true,
// waiting backoffFn(attempt) between attempts. attempt passed to backoffFn
// is 1-indexed (the delay before the second attempt is backoffFn(1)).
// op runs at most maxRetries+1 times: the initial attempt plus maxRetries
// retries.
func (b *BaseProvider) RetryWithBackoff(ctx context.Context, isRetryable func(error) bool, op func() error, backoffFn func(attempt int) time.Duration) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries+1; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt > b.maxRetries {
				break
			}
			delay := b.retryDelay * time.Duration(attempt)
			if backoffFn != nil {
				delay = backoffFn(attempt)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

// Retry executes op with the shared exponential backoff (retryBackoff) if
// isRetryable returns true, at most maxRetries+1 times in total.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries+1; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt > b.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff(b.retryDelay, attempt-1)):
			}
		}
	}
	return lastErr
}
