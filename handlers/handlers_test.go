package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koios-ai/koios/agent"
	"github.com/koios-ai/koios/document_store"
	"github.com/koios-ai/koios/handlers"
	"github.com/koios-ai/koios/llm_service"
	"github.com/koios-ai/koios/search_provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	docs      []document_store.Document
	ingested  []string
	deleted   []string
	resets    int
	ingestErr error
	listErr   error
}

func (s *fakeStore) Ingest(ctx context.Context, filename, text string) (*document_store.Document, error) {
	if s.ingestErr != nil {
		return nil, s.ingestErr
	}
	s.ingested = append(s.ingested, filename)
	return &document_store.Document{
		ID:         "doc-1",
		Filename:   filename,
		ChunkCount: 1,
		IngestedAt: time.Now(),
	}, nil
}

func (s *fakeStore) Search(ctx context.Context, query string, k int) (document_store.RetrievalResult, error) {
	return nil, nil
}

func (s *fakeStore) Delete(ctx context.Context, documentID string) error {
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *fakeStore) Documents(ctx context.Context) ([]document_store.Document, error) {
	return s.docs, s.listErr
}

func (s *fakeStore) Reset(ctx context.Context) error {
	s.resets++
	return nil
}

func (s *fakeStore) Close() error { return nil }

func newTestWorkflow(llm llm_service.LLMService) *agent.Workflow {
	chain := search_provider.NewChain(3, time.Second, testLogger())
	return agent.NewWorkflow(&fakeStore{}, chain, llm, agent.NewEvaluator(nil, ""), agent.Settings{
		DefaultModel: "llama3.2",
	}, testLogger())
}

func TestQueryHandlerAnswers(t *testing.T) {
	llm := &llm_service.MockLLMService{Response: "The answer is 4."}
	h := handlers.NewQueryHandler(newTestWorkflow(llm), false, testLogger())

	body := `{"query": "What is 2+2?", "name": "Ada", "temperature": 0.2}`
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Query      string `json:"query"`
		Name       string `json:"name"`
		Generation string `json:"generation"`
		Model      string `json:"model"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "What is 2+2?", resp.Query)
	assert.Equal(t, "Ada", resp.Name)
	assert.Equal(t, "The answer is 4.", resp.Generation)
	assert.Equal(t, "llama3.2", resp.Model, "default model filled in")
}

func TestQueryHandlerRejectsMalformedBody(t *testing.T) {
	h := handlers.NewQueryHandler(newTestWorkflow(&llm_service.MockLLMService{}), false, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQueryHandlerRejectsEmptyQuestion(t *testing.T) {
	h := handlers.NewQueryHandler(newTestWorkflow(&llm_service.MockLLMService{}), false, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "   "}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")
}

func TestQueryHandlerReportsGenerationFailure(t *testing.T) {
	llm := &llm_service.MockLLMService{Err: llm_service.ErrUnavailable}
	h := handlers.NewQueryHandler(newTestWorkflow(llm), false, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "q"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "ErrUnavailable", "internal detail must not leak")
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadHandlerIngestsTextFile(t *testing.T) {
	store := &fakeStore{}
	h := handlers.NewUploadHandler(store, testLogger())

	body, contentType := multipartBody(t, "notes.txt", "The capital of Freedonia is Lagrange.")
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"notes.txt"}, store.ingested)
	assert.Contains(t, rr.Body.String(), "doc-1")
}

func TestUploadHandlerRejectsUnsupportedExtension(t *testing.T) {
	store := &fakeStore{}
	h := handlers.NewUploadHandler(store, testLogger())

	body, contentType := multipartBody(t, "image.png", "not text")
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, store.ingested)
}

func TestUploadHandlerReportsIngestFailure(t *testing.T) {
	store := &fakeStore{ingestErr: errors.New("embedding service down")}
	h := handlers.NewUploadHandler(store, testLogger())

	body, contentType := multipartBody(t, "notes.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestDocumentsListEmptyIsArray(t *testing.T) {
	h := handlers.NewDocumentsHandler(&fakeStore{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"documents": []}`, rr.Body.String())
}

func TestDocumentsDeleteByID(t *testing.T) {
	store := &fakeStore{}
	h := handlers.NewDocumentsHandler(store, testLogger())

	r := mux.NewRouter()
	r.HandleFunc("/documents/{id}", h.Delete).Methods("DELETE")

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-42", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"doc-42"}, store.deleted)
}

func TestDocumentsReset(t *testing.T) {
	store := &fakeStore{}
	h := handlers.NewDocumentsHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/documents", nil)
	rr := httptest.NewRecorder()
	h.Reset(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, store.resets)
}

type fakeLister struct {
	models []string
	err    error
}

func (l *fakeLister) ListModels(ctx context.Context) ([]string, error) {
	return l.models, l.err
}

func TestModelsHandlerListsModels(t *testing.T) {
	h := handlers.NewModelsHandler(&fakeLister{models: []string{"llama3.2", "qwen2.5"}}, "llama3.2", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"models": ["llama3.2", "qwen2.5"]}`, rr.Body.String())
}

func TestModelsHandlerFallsBackToDefault(t *testing.T) {
	h := handlers.NewModelsHandler(&fakeLister{err: errors.New("connection refused")}, "llama3.2", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"models": ["llama3.2"]}`, rr.Body.String())
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handlers.Health(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}
