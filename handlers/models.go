package handlers

import (
	"log/slog"
	"net/http"

	"github.com/koios-ai/koios/llm_service"
)

type ModelsHandler struct {
	lister       llm_service.ModelLister
	defaultModel string
	logger       *slog.Logger
}

func NewModelsHandler(lister llm_service.ModelLister, defaultModel string, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{
		lister:       lister,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	models, err := h.lister.ListModels(r.Context())
	if err != nil || len(models) == 0 {
		// The UI still needs something to offer when the model service is
		// down, so fall back to the configured default.
		if err != nil {
			h.logger.Warn("Model listing unavailable, using default",
				slog.String("error", err.Error()))
		}
		models = []string{h.defaultModel}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"models": models})
}
