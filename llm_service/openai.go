package llm_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OpenAIService talks to an OpenAI-compatible completion server (LM Studio,
// Ollama with the OpenAI shim, or the hosted API).
type OpenAIService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewOpenAIService(baseURL, apiKey string, timeout time.Duration, maxRetries int, logger *slog.Logger) *OpenAIService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &OpenAIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: 2 * time.Second,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *OpenAIService) Generate(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		response, err := s.callChatCompletions(ctx, prompt, model, temperature)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if attempt == s.maxRetries || ctx.Err() != nil {
			break
		}
		s.logger.Warn("Generation attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", s.retryDelay),
			slog.String("error", err.Error()))
		select {
		case <-time.After(s.retryDelay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}

	s.logger.Error("Generation failed after multiple attempts",
		slog.Int("attempts", s.maxRetries),
		slog.String("error", lastErr.Error()))
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (s *OpenAIService) callChatCompletions(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	requestBody, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newHTTPError(resp)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return result.Choices[0].Message.Content, nil
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels returns the model IDs currently loaded on the server.
func (s *OpenAIService) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating models request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(resp)
	}

	var result modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding models response: %w", err)
	}

	models := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		models = append(models, m.ID)
	}
	return models, nil
}
