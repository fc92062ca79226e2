package llm

import (
	"context"
	"sync"
	"time"
)

// MockClient returns scripted replies, in order, then repeats the last one.
// With no script it echoes a canned acknowledgement. Used by tests and by
// the "mock" provider for offline runs.
type MockClient struct {
	mu      sync.Mutex
	replies []string
	next    int

	// Err, when set, is returned from every call.
	Err error

	// Delay simulates provider latency; the call still honors ctx.
	Delay time.Duration

	calls []string
}

// NewMockClient creates an unscripted mock.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Script sets the replies returned by subsequent calls.
func (m *MockClient) Script(replies ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = replies
	m.next = 0
	return m
}

// Calls returns the prompts received so far.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockClient) Name() string { return "mock" }

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *MockClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, prompt)

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.replies) == 0 {
		return `{"action": "add_comment", "content": "# acknowledged", "explanation": "mock reply"}`, nil
	}

	reply := m.replies[m.next]
	if m.next < len(m.replies)-1 {
		m.next++
	}
	return reply, nil
}

func (m *MockClient) Close() error { return nil }
