// Package mock provides a scriptable completer for tests and local
// development without API credentials.
package mock

import (
	"context"
	"sync"
)

// MockCompleter returns canned responses and records calls.
type MockCompleter struct {
	mu sync.Mutex

	// Response is returned by Complete when Err is nil.
	Response string

	// Err is returned by both Complete and Probe when set.
	Err error

	// Prompts records every prompt passed to Complete.
	Prompts []string

	probeCalls int
}

// New creates a mock completer with a fixed response.
func New(response string) *MockCompleter {
	return &MockCompleter{Response: response}
}

// Complete returns the canned response.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Prompts = append(m.Prompts, prompt)
	return m.Response, nil
}

// Probe succeeds unless Err is set.
func (m *MockCompleter) Probe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeCalls++
	return m.Err
}

// ProbeCalls reports how many times Probe ran.
func (m *MockCompleter) ProbeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probeCalls
}
