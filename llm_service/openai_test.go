package llm_service_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koios-ai/koios/llm_service"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

func TestGenerateReturnsCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3.2", body.Model)
		assert.InDelta(t, 0.5, body.Temperature, 1e-9)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "What is 2+2?", body.Messages[0].Content)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "The answer is 4."}},
			},
		})
	}))
	defer server.Close()

	svc := llm_service.NewOpenAIService(server.URL, "key", 5*time.Second, 1, testLogger())
	got, err := svc.Generate(context.Background(), "What is 2+2?", "llama3.2", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", got)
}

func TestGenerateUnavailableAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "model crashed", "type": "server_error"},
		})
	}))
	defer server.Close()

	svc := llm_service.NewOpenAIService(server.URL, "key", 5*time.Second, 2, testLogger())
	_, err := svc.Generate(context.Background(), "q", "m", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm_service.ErrUnavailable))
	assert.Contains(t, err.Error(), "model crashed")
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateStopsWhenContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := llm_service.NewOpenAIService(server.URL, "key", 5*time.Second, 3, testLogger())
	_, err := svc.Generate(ctx, "q", "m", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm_service.ErrUnavailable))
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"id": "llama3.2"},
				{"id": "qwen2.5-coder"},
			},
		})
	}))
	defer server.Close()

	svc := llm_service.NewOpenAIService(server.URL, "key", 5*time.Second, 1, testLogger())
	models, err := svc.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2", "qwen2.5-coder"}, models)
}

func TestListModelsUnreachable(t *testing.T) {
	svc := llm_service.NewOpenAIService("http://127.0.0.1:1", "key", time.Second, 1, testLogger())
	_, err := svc.ListModels(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm_service.ErrUnavailable))
}
