package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// MockResponse defines a pre-configured response pattern for the mock client.
type MockResponse struct {
	// Pattern is matched against the prompt as a substring. An empty
	// pattern matches everything.
	Pattern string
	// Response is the text returned for matching prompts.
	Response string
}

// MockLLMClient implements ports.LLMClient with deterministic responses.
// Responses are checked in the order they were added. Queued errors are
// returned, one per call, before any response is served.
type MockLLMClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	errs      []error
	prompts   []string
	options   []map[string]any
}

var _ ports.LLMClient = (*MockLLMClient)(nil)

// NewMockLLMClient creates a client that answers NO unless a response
// pattern says otherwise.
func NewMockLLMClient(model string, responses ...MockResponse) *MockLLMClient {
	return &MockLLMClient{model: model, responses: responses}
}

// AddResponse appends a response pattern.
func (m *MockLLMClient) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// FailNext queues errs to be returned by the next calls, in order.
func (m *MockLLMClient) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, options)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	for _, r := range m.responses {
		if strings.Contains(prompt, r.Pattern) {
			return r.Response, nil
		}
	}
	return "NO", nil
}

// EstimateTokens approximates four characters per token.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(len(text)/4, 1), nil
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string { return m.model }

// Prompts returns every prompt received so far.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the options of the most recent call, or nil.
func (m *MockLLMClient) LastOptions() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return nil
	}
	return m.options[len(m.options)-1]
}
