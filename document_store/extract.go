package document_store

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

// Extractor converts uploaded file bytes into plain text ready for chunking.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractText dispatches on the file extension. Supported: .pdf, .doc,
// .docx, .txt, .md.
func (e *Extractor) ExtractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return e.extractPDF(data)
	case ".doc", ".docx":
		return e.extractWord(data)
	case ".txt", ".md":
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
}

func (e *Extractor) extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Error("Failed to create PDF reader",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return "", fmt.Errorf("failed to create PDF reader: %v", err)
	}

	totalPage := reader.NumPage()
	var fullText strings.Builder
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered",
				slog.Int("page_number", pageIndex))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %v", pageIndex, err)
		}
		fullText.WriteString(text)
	}

	if fullText.Len() == 0 {
		return "", fmt.Errorf("no text content extracted from PDF")
	}

	e.logger.Info("Extracted text from PDF",
		slog.Int("total_pages", totalPage),
		slog.Int("total_text_length", fullText.Len()))
	return fullText.String(), nil
}

func (e *Extractor) extractWord(data []byte) (string, error) {
	mimeType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	result, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return "", fmt.Errorf("failed to convert Word document: %v", err)
	}
	if len(result.Body) == 0 {
		return "", fmt.Errorf("no text content extracted from Word document")
	}

	return result.Body, nil
}
