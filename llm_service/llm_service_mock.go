package llm_service

import (
	"context"
	"sync"
)

// MockLLMService is a test double recording every prompt it receives.
type MockLLMService struct {
	Response string
	Err      error

	// Respond overrides Response when set.
	Respond func(prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
}

func (m *MockLLMService) Generate(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(prompt)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLMService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
