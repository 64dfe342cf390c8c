package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable marks failures to reach the embedding service. Callers treat
// it as fatal for the current request after the configured retries.
var ErrUnavailable = errors.New("embedding service unavailable")

// Client is a thin adapter over an OpenAI-compatible /v1/embeddings endpoint.
// It converts text into a fixed-length vector; the vector length is decided
// by the remote model and validated downstream by the document store.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: 2 * time.Second,
		logger:     logger,
	}
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		vector, err := c.embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err

		if attempt == c.maxRetries || ctx.Err() != nil {
			break
		}
		c.logger.Warn("Embedding attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}

	c.logger.Error("Embedding service unreachable after retries",
		slog.Int("attempts", c.maxRetries),
		slog.String("error", lastErr.Error()))
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	requestBody, err := json.Marshal(embeddingRequest{
		Input: text,
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embeddingResp.Data) == 0 || len(embeddingResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding data received")
	}

	return embeddingResp.Data[0].Embedding, nil
}
