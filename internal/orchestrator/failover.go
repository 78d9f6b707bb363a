package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/vtcode-ai/vtcode/internal/agent"
)

// Retry/backoff shape grounded on internal/agent/failover.go's
// FailoverOrchestrator.tryProvider (exponential backoff doubling up to a
// cap, ctx-aware sleep), recalibrated to SPEC_FULL.md's C8 numbers: the
// primary model gets up to 3 attempts with backoff capped at 60s, then
// exactly one fallback attempt whose own empty response is fatal.
const (
	primaryMaxAttempts  = 3
	primaryInitialDelay = 1 * time.Second
	primaryMaxDelay     = 60 * time.Second
)

// failoverProvider wraps a primary and fallback agent.LLMProvider behind a
// single agent.LLMProvider, applying the orchestrator's retry policy before
// either ever streams a chunk back to a caller. It does not implement
// agent.LLMProvider recursively over another failoverProvider, an
// Orchestrator, or a runner.Runner — none of those types implement
// agent.LLMProvider, so this wrapper can never be constructed around one by
// the type system.
type failoverProvider struct {
	primary  agent.LLMProvider
	fallback agent.LLMProvider
}

func (f *failoverProvider) Name() string {
	return "orchestrator-failover:" + f.primary.Name()
}

func (f *failoverProvider) Models() []agent.Model { return f.primary.Models() }

func (f *failoverProvider) SupportsTools() bool { return f.primary.SupportsTools() }

// Complete drains the primary up to primaryMaxAttempts times (retrying on
// error or an empty response), then makes exactly one fallback attempt if
// the primary is exhausted. An empty or failing fallback response is fatal.
func (f *failoverProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	delay := primaryInitialDelay
	var lastErr error

	for attempt := 1; attempt <= primaryMaxAttempts; attempt++ {
		chunks, err := drainComplete(ctx, f.primary, req)
		if err == nil && !isEmptyResponse(chunks) {
			return replay(chunks), nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("empty response from primary provider %q", f.primary.Name())
		}
		if attempt == primaryMaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
			delay *= 2
			if delay > primaryMaxDelay {
				delay = primaryMaxDelay
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.fallback == nil {
		return nil, fmt.Errorf("orchestrator: primary provider exhausted after %d attempts: %w", primaryMaxAttempts, lastErr)
	}

	chunks, err := drainComplete(ctx, f.fallback, req)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: fallback provider %q failed: %w", f.fallback.Name(), err)
	}
	if isEmptyResponse(chunks) {
		return nil, fmt.Errorf("orchestrator: fallback provider %q returned an empty response", f.fallback.Name())
	}
	return replay(chunks), nil
}

// drainComplete runs one full completion call and collects every chunk,
// surfacing the first chunk-level error (if any) as a Go error.
func drainComplete(ctx context.Context, provider agent.LLMProvider, req *agent.CompletionRequest) ([]*agent.CompletionChunk, error) {
	stream, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	var chunks []*agent.CompletionChunk
	for chunk := range stream {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func isEmptyResponse(chunks []*agent.CompletionChunk) bool {
	for _, c := range chunks {
		if c.Text != "" || c.ToolCall != nil {
			return false
		}
	}
	return true
}

func replay(chunks []*agent.CompletionChunk) <-chan *agent.CompletionChunk {
	out := make(chan *agent.CompletionChunk, len(chunks))
	for _, c := range chunks {
		out <- c
	}
	close(out)
	return out
}
