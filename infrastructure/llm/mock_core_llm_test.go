package llm

import (
	"context"
	"sync"
	"time"
)

// mockCoreLLM is a scriptable CoreLLM for middleware tests.
type mockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration
	// FailFirst makes the first N calls return Error before succeeding.
	FailFirst int

	calls       int
	lastPrompt  string
	lastOpts    map[string]any
	lastContext context.Context
}

func newMockCoreLLM() *mockCoreLLM {
	return &mockCoreLLM{
		Response:  "YES",
		TokensIn:  10,
		TokensOut: 1,
		Model:     "test-model",
	}
}

func (m *mockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.lastPrompt = prompt
	m.lastOpts = opts
	m.lastContext = ctx
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil && (m.FailFirst == 0 || call <= m.FailFirst) {
		return "", 0, 0, m.Error
	}
	return m.Response, m.TokensIn, m.TokensOut, nil
}

func (m *mockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

func (m *mockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

func (m *mockCoreLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockCoreLLM) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastContext
}
