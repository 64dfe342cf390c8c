package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/koios-ai/koios/agent"
)

type QueryHandler struct {
	workflow      *agent.Workflow
	defaultSearch bool
	logger        *slog.Logger
}

func NewQueryHandler(workflow *agent.Workflow, defaultSearch bool, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{
		workflow:      workflow,
		defaultSearch: defaultSearch,
		logger:        logger,
	}
}

type queryRequest struct {
	Query                string   `json:"query"`
	Name                 string   `json:"name"`
	Model                string   `json:"model"`
	Temperature          *float64 `json:"temperature"`
	EnableInternetSearch *bool    `json:"enable_internet_search"`
}

type queryResponse struct {
	Query      string `json:"query"`
	Name       string `json:"name"`
	Generation string `json:"generation"`
	Model      string `json:"model"`
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	temperature := 0.5
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	enableSearch := h.defaultSearch
	if req.EnableInternetSearch != nil {
		enableSearch = *req.EnableInternetSearch
	}

	h.logger.Info("Received query request",
		slog.String("query", req.Query),
		slog.String("model", req.Model),
		slog.Bool("enable_internet_search", enableSearch))

	result, err := h.workflow.Run(r.Context(), agent.Query{
		Question:             req.Query,
		Name:                 req.Name,
		Model:                req.Model,
		Temperature:          temperature,
		EnableInternetSearch: enableSearch,
	})
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrInvalidQuery):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, agent.ErrPipelineTimeout):
			writeJSONError(w, "The pipeline timed out before producing an answer", http.StatusGatewayTimeout)
		default:
			h.logger.Error("Pipeline run failed",
				slog.String("query", req.Query),
				slog.String("error", err.Error()))
			writeJSONError(w, "Failed to answer the query", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Query:      result.Question,
		Name:       result.Name,
		Generation: result.Generation,
		Model:      result.Model,
	})
}
