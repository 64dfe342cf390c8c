package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/koios-ai/koios/document_store"
)

type DocumentsHandler struct {
	store  document_store.Store
	logger *slog.Logger
}

func NewDocumentsHandler(store document_store.Store, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{store: store, logger: logger}
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.Documents(r.Context())
	if err != nil {
		h.logger.Error("Failed to list documents", slog.String("error", err.Error()))
		writeJSONError(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []document_store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), documentID); err != nil {
		h.logger.Error("Failed to delete document",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to delete document", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

func (h *DocumentsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		h.logger.Error("Failed to reset index", slog.String("error", err.Error()))
		writeJSONError(w, "Failed to reset index", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All documents deleted"})
}
