package mock

import (
	"context"
	"sync"
)

// EmptyNPCResponse is the default MockCompleter reply.
const EmptyNPCResponse = `{"npcs": []}`

// Call records the prompts of a single Complete invocation.
type Call struct {
	SystemPrompt string
	UserPrompt   string
}

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns EmptyNPCResponse.
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	mu    sync.Mutex
	calls []Call
}

// NewMockCompleter creates a mock completer with default behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// WithCompleteFunc installs custom completion behavior.
func (m *MockCompleter) WithCompleteFunc(fn func(ctx context.Context, systemPrompt, userPrompt string) (string, error)) *MockCompleter {
	m.CompleteFunc = fn
	return m
}

// WithResponse makes every call return the given reply.
func (m *MockCompleter) WithResponse(reply string) *MockCompleter {
	return m.WithCompleteFunc(func(context.Context, string, string) (string, error) {
		return reply, nil
	})
}

// Complete records the call and returns the configured reply.
func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, systemPrompt, userPrompt)
	}
	return EmptyNPCResponse, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls.
func (m *MockCompleter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears the recorded calls and custom function.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.CompleteFunc = nil
}
