package llm

import (
	"context"
	"sync"
)

// FakeClient is a scripted Client for tests. Replies are returned in order;
// when the script is exhausted the last reply repeats. A nil or empty
// FakeClient behaves as an unavailable service.
type FakeClient struct {
	mu      sync.Mutex
	Replies []string
	Err     error
	Calls   []([]Message)
	next    int
}

// Complete returns the next scripted reply.
func (f *FakeClient) Complete(_ context.Context, messages []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, messages)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Replies) == 0 {
		return "", ErrUnavailable
	}
	idx := f.next
	if idx >= len(f.Replies) {
		idx = len(f.Replies) - 1
	}
	reply := f.Replies[idx]
	f.next++
	return reply, nil
}

// CallCount reports how many completions were requested.
func (f *FakeClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
