package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
// It also backs the "mock" provider for offline runs.
type MockClient struct {
	Response *Response
	Err      error
	// Func, when set, takes precedence over Response and Err.
	Func func(ctx context.Context, prompt string) (*Response, error)

	mu    sync.Mutex
	Calls []string // records prompts sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, prompt)
	m.mu.Unlock()

	if m.Func != nil {
		return m.Func(ctx, prompt)
	}
	return m.Response, m.Err
}

// CallCount returns how many prompts have been sent.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
