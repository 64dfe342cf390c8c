package llm_service

import (
	"context"
	"errors"
)

// ErrUnavailable marks transport or timeout failures talking to the
// generation service. It is fatal for the current request once the configured
// retry budget is exhausted; no answer can be produced without generation.
var ErrUnavailable = errors.New("generation service unavailable")

// LLMService generates text from a prompt. Implementations are stateless per
// call and safe for concurrent use.
type LLMService interface {
	Generate(ctx context.Context, prompt, model string, temperature float64) (string, error)
}

// ModelLister reports the models currently loaded on the generation service.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
