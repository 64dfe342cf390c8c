package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/koios-ai/koios/document_store"
)

type UploadHandler struct {
	store     document_store.Store
	extractor *document_store.Extractor
	logger    *slog.Logger
}

func NewUploadHandler(store document_store.Store, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		store:     store,
		extractor: document_store.NewExtractor(logger),
		logger:    logger,
	}
}

type uploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received file upload request")

	// Parse the incoming multipart form
	err := r.ParseMultipartForm(10 << 20) // 10 MB limit
	if err != nil {
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Starting text extraction",
		slog.String("filename", header.Filename),
		slog.String("content_type", header.Header.Get("Content-Type")),
		slog.Int64("size", header.Size))

	extractStart := time.Now()
	text, err := h.extractor.ExtractText(header.Filename, buf.Bytes())
	if err != nil {
		h.logger.Error("Text extraction failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to extract text from document", http.StatusBadRequest)
		return
	}

	h.logger.Debug("Text extraction complete",
		slog.String("filename", header.Filename),
		slog.Float64("extraction_seconds", time.Since(extractStart).Seconds()))

	doc, err := h.store.Ingest(r.Context(), header.Filename, text)
	if err != nil {
		h.logger.Error("Document ingestion failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to index the document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:    "File uploaded and indexed successfully",
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		ChunkCount: doc.ChunkCount,
	})
}
