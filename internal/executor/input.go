package executor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultUserInput is the sentinel substituted when no user response
// arrives within the input timeout. The step proceeds with it rather than
// failing.
const DefaultUserInput = "timeout_default_input"

// InputRequest asks the outside world for a value a step needs.
type InputRequest struct {
	StepID      string            `json:"step_id"`
	Description string            `json:"description"`
	Schema      map[string]string `json:"schema,omitempty"`
}

// InputBroker is the per-step request/response future between the executor
// and an external input provider. The executor publishes a request and
// blocks; the provider calls Provide to fulfil it.
type InputBroker struct {
	mu       sync.Mutex
	pending  map[string]chan string
	requests chan InputRequest
}

// NewInputBroker creates a broker. The requests channel is buffered so the
// executor never blocks on an absent listener.
func NewInputBroker() *InputBroker {
	return &InputBroker{
		pending:  map[string]chan string{},
		requests: make(chan InputRequest, 16),
	}
}

// Requests exposes the stream of outstanding input requests.
func (b *InputBroker) Requests() <-chan InputRequest {
	return b.requests
}

// Provide fulfils a pending request. A request can be resolved once;
// further values for the same step are rejected. The send happens under
// the lock so an accepted value is always observable to the waiter.
func (b *InputBroker) Provide(stepID, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.pending[stepID]
	if !ok {
		return fmt.Errorf("no pending input request for step %s", stepID)
	}
	delete(b.pending, stepID)
	ch <- value
	return nil
}

// Await publishes the request and blocks until a value arrives, the timeout
// elapses, or the context is canceled. Timeout and cancellation resolve to
// DefaultUserInput.
func (b *InputBroker) Await(ctx context.Context, req InputRequest, timeout time.Duration) string {
	ch := make(chan string, 1)
	b.mu.Lock()
	b.pending[req.StepID] = ch
	b.mu.Unlock()

	select {
	case b.requests <- req:
	default:
		// Nobody is draining requests; the timeout below still bounds the
		// wait.
	}

	select {
	case value := <-ch:
		return value
	case <-time.After(timeout):
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, req.StepID)
	// Provide may have accepted a value at the same instant the timeout
	// fired; it must win, or the caller would see success while the step
	// ran with the sentinel.
	select {
	case value := <-ch:
		return value
	default:
	}
	return DefaultUserInput
}
