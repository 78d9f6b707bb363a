package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/vtcode-ai/vtcode/internal/agent"
)

// firstChunkTimeout and interChunkTimeout bound how long a stream may sit
// silent before it's treated as stalled. The first chunk is allowed longer
// since providers may queue a request behind a cold model load; once
// streaming has started, a gap this long means the connection died without
// either side noticing.
const (
	firstChunkTimeout = 60 * time.Second
	interChunkTimeout = 30 * time.Second
)

// watchStream wraps a provider's raw completion stream with a silence
// watchdog: if no chunk (including Done/Error) arrives within the relevant
// timeout, the returned channel receives a single error chunk and closes.
// upstream is drained in the background to avoid leaking its producer
// goroutine after a timeout fires.
func watchStream(ctx context.Context, upstream <-chan *agent.CompletionChunk) <-chan *agent.CompletionChunk {
	out := make(chan *agent.CompletionChunk)
	go func() {
		defer close(out)
		timeout := firstChunkTimeout
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		for {
			select {
			case chunk, ok := <-upstream:
				if !ok {
					return
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
				if chunk.Done || chunk.Error != nil {
					return
				}
				timeout = interChunkTimeout
				timer.Reset(timeout)
			case <-timer.C:
				select {
				case out <- &agent.CompletionChunk{Error: fmt.Errorf("stream stalled: no data for %s", timeout)}:
				case <-ctx.Done():
				}
				go func() {
					for range upstream {
					}
				}()
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
