package llm_service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenAIError represents the error structure returned by OpenAI-compatible APIs
type OpenAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

type OpenAIHttpError struct {
	StatusCode int
	Message    string
	ErrorType  string
	RawBody    string
}

func (e *OpenAIHttpError) Error() string {
	return fmt.Sprintf("generation API error (HTTP %d): %s (Type: %s)", e.StatusCode, e.Message, e.ErrorType)
}

// newHTTPError extracts error information from OpenAI-compatible error responses.
func newHTTPError(resp *http.Response) *OpenAIHttpError {
	httpErr := &OpenAIHttpError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return httpErr
	}
	httpErr.RawBody = string(body)

	var openAIErr OpenAIError
	if err := json.Unmarshal(body, &openAIErr); err == nil && openAIErr.Error.Message != "" {
		httpErr.Message = openAIErr.Error.Message
		httpErr.ErrorType = openAIErr.Error.Type
	}
	return httpErr
}
